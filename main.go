package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"society-cloud/internal/audit"
	"society-cloud/internal/auth"
	"society-cloud/internal/billing/application"
	billing "society-cloud/internal/billing/domain"
	billingrepo "society-cloud/internal/billing/infrastructure/postgres"
	billinginterfaces "society-cloud/internal/billing/interfaces"
	"society-cloud/internal/document/layout"
	"society-cloud/internal/observability/metrics"
	registryrepo "society-cloud/internal/registry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	society, err := application.LoadSocietyConfig()
	if err != nil {
		logger.Fatalf("society config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	residenceRepo := registryrepo.NewResidenceRepository(db)
	obligationRepo := billingrepo.NewObligationRepository(db)
	chargeLineRepo := billingrepo.NewChargeLineRepository(db)
	clock := systemClock{}

	if err := seedChargeLines(chargeLineRepo, society); err != nil {
		logger.Fatalf("charge line seed error: %v", err)
	}

	periodService, err := application.NewPeriodService(obligationRepo, residenceRepo, chargeLineRepo, clock)
	if err != nil {
		logger.Fatalf("period service error: %v", err)
	}
	ledgerService, err := application.NewLedgerService(obligationRepo, chargeLineRepo, clock)
	if err != nil {
		logger.Fatalf("ledger service error: %v", err)
	}
	chargeLineService, err := application.NewChargeLineService(chargeLineRepo)
	if err != nil {
		logger.Fatalf("charge line service error: %v", err)
	}

	societyLayout := layout.Society{
		Name:         society.Name,
		Registration: society.Registration,
		Address:      society.Address,
		Phone:        society.Phone,
	}

	billingHandler, err := billinginterfaces.NewBillingHandler(ledgerService, periodService, chargeLineService, residenceRepo, societyLayout, auditRepo)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}
	chargeLineHandler, err := billinginterfaces.NewChargeLineHandler(chargeLineService, auditRepo)
	if err != nil {
		logger.Fatalf("charge line handler error: %v", err)
	}
	exportHandler, err := billinginterfaces.NewExportHandler(ledgerService, chargeLineService, residenceRepo, societyLayout, clock, cfg.ExportBulkDelay, auditRepo)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/billing/generate", billingHandler)
	mux.Handle("/api/v1/billing/obligations", billingHandler)
	mux.Handle("/api/v1/billing/obligations/", billingHandler)
	mux.Handle("/api/v1/billing/summary", billingHandler)
	mux.Handle("/api/v1/chargelines", chargeLineHandler)
	mux.Handle("/api/v1/chargelines/", chargeLineHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// seedChargeLines writes the configured breakdown when the store is empty.
func seedChargeLines(repo *billingrepo.ChargeLineRepository, cfg application.SocietyConfig) error {
	if len(cfg.ChargeLines) == 0 {
		return nil
	}
	ctx := context.Background()
	existing, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	lines := make([]billing.ChargeLine, 0, len(cfg.ChargeLines))
	for i, line := range cfg.ChargeLines {
		lines = append(lines, billing.ChargeLine{
			ID:     strconv.Itoa(i + 1),
			Label:  line.Label,
			Amount: decimal.NewFromFloat(line.Amount),
		})
	}
	return repo.Save(ctx, billing.NewChargeLineSet(lines))
}

type config struct {
	DatabaseURL     string
	HTTPAddr        string
	JWTSecret       string
	ExportBulkDelay time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ExportBulkDelay: getenvDuration("EXPORT_BULK_DELAY", 200*time.Millisecond),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
