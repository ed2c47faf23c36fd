package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "society_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	periodGenerateTotal   *prometheus.CounterVec
	periodGenerateLatency *prometheus.HistogramVec
	obligationsGenerated  prometheus.Counter

	paymentTotal   *prometheus.CounterVec
	paymentLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		periodGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_generate_total",
				Help: "Total billing period generation runs by result",
			},
			[]string{"result"},
		)
		periodGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "period_generate_latency_seconds",
				Help:    "Billing period generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		obligationsGenerated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "obligations_generated_total",
				Help: "Total obligations created by period generation",
			},
		)

		paymentTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_record_total",
				Help: "Total payment recordings by result",
			},
			[]string{"result"},
		)
		paymentLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_record_latency_seconds",
				Help:    "Payment recording latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total ledger/document exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			periodGenerateTotal,
			periodGenerateLatency,
			obligationsGenerated,
			paymentTotal,
			paymentLatency,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "obligations_unpaid",
			Help: "Stored obligations not yet fully paid",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM maintenance_obligations WHERE status <> 'paid'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "residences_active",
			Help: "Active residences on the roster",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM residences WHERE active = TRUE")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

// ObservePeriodGenerate records generation latency and result.
func ObservePeriodGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if periodGenerateTotal != nil {
		periodGenerateTotal.WithLabelValues(result).Inc()
	}
	if periodGenerateLatency != nil {
		periodGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddObligationsGenerated increments the created-obligation counter.
func AddObligationsGenerated(count int) {
	if count <= 0 {
		return
	}
	if obligationsGenerated != nil {
		obligationsGenerated.Add(float64(count))
	}
}

// ObservePayment records payment latency and result.
func ObservePayment(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if paymentTotal != nil {
		paymentTotal.WithLabelValues(result).Inc()
	}
	if paymentLatency != nil {
		paymentLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency by format and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
