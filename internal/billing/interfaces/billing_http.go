package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"society-cloud/internal/audit"
	"society-cloud/internal/auth"
	"society-cloud/internal/billing/application"
	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/document/layout"
	"society-cloud/internal/observability/metrics"
	registry "society-cloud/internal/registry/domain"

	"github.com/shopspring/decimal"
)

// ResidenceGetter resolves roster entries for document rendering.
type ResidenceGetter interface {
	Get(ctx context.Context, id string) (*registry.Residence, error)
}

// BillingHandler serves the billing APIs under /api/v1/billing.
type BillingHandler struct {
	ledger      *application.LedgerService
	periods     *application.PeriodService
	charges     *application.ChargeLineService
	residences  ResidenceGetter
	society     layout.Society
	auditLogger audit.Logger
}

// NewBillingHandler constructs a handler.
func NewBillingHandler(ledger *application.LedgerService, periods *application.PeriodService, charges *application.ChargeLineService, residences ResidenceGetter, society layout.Society, auditLogger audit.Logger) (*BillingHandler, error) {
	if ledger == nil {
		return nil, errors.New("billing handler: nil ledger service")
	}
	if periods == nil {
		return nil, errors.New("billing handler: nil period service")
	}
	if charges == nil {
		return nil, errors.New("billing handler: nil charge line service")
	}
	return &BillingHandler{
		ledger:      ledger,
		periods:     periods,
		charges:     charges,
		residences:  residences,
		society:     society,
		auditLogger: auditLogger,
	}, nil
}

// ServeHTTP routes billing requests.
func (h *BillingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/billing/generate" && r.Method == http.MethodPost:
		h.handleGenerate(w, r)
	case path == "/api/v1/billing/obligations" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case path == "/api/v1/billing/summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r)
	case strings.HasPrefix(path, "/api/v1/billing/obligations/"):
		h.handleByID(w, r, strings.TrimPrefix(path, "/api/v1/billing/obligations/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BillingHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	result, err := h.periods.Generate(r.Context(), req.Month, req.Year)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	resp := map[string]any{
		"period":  result.Period.Key(),
		"created": result.Created,
		"skipped": result.Skipped,
		"amount":  result.Amount.StringFixed(2),
	}
	if result.NothingToDo() {
		resp["message"] = "all residences already billed for this period"
	}
	writeJSON(w, resp)
	h.logAudit(r, "billing.generate", result.Period.Key(), map[string]any{
		"month":   req.Month,
		"year":    req.Year,
		"created": result.Created,
	})
}

func (h *BillingHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	obligations, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	views := make([]obligationView, 0, len(obligations))
	for _, obligation := range obligations {
		views = append(views, newObligationView(obligation))
	}
	writeJSON(w, views)
}

func (h *BillingHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Summary(r.Context())
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"collected":       summary.Collected.StringFixed(2),
		"pending":         summary.Pending.StringFixed(2),
		"overdue":         summary.Overdue.StringFixed(2),
		"collection_rate": summary.CollectionRate,
	})
}

func (h *BillingHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "payment":
			if r.Method == http.MethodPost {
				h.handlePayment(w, r, id)
				return
			}
		case "receipt.pdf":
			if r.Method == http.MethodGet {
				h.handleReceiptPDF(w, r, id)
				return
			}
		case "invoice.pdf":
			if r.Method == http.MethodGet {
				h.handleInvoicePDF(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *BillingHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	obligation, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newObligationView(obligation))
}

func (h *BillingHandler) handlePayment(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Amount string `json:"amount"`
		Method string `json:"method"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	obligation, err := h.ledger.RecordPayment(r.Context(), id, amount, req.Method, req.Notes)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newObligationView(obligation))
	h.logAudit(r, "billing.payment", obligation.ID, map[string]any{
		"amount":  req.Amount,
		"method":  req.Method,
		"receipt": obligation.ReceiptNumber,
	})
}

func (h *BillingHandler) handleReceiptPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("receipt_pdf", result, time.Since(start))
	}()

	obligation, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	receipt, err := BuildReceiptData(obligation, h.lookupResidence(r.Context(), obligation.ResidenceID))
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	data, err := layout.BuildReceiptPDF(h.society, []layout.ReceiptData{receipt})
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "render receipt error", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("Receipt_%s_%s.pdf", obligation.ReceiptNumber, obligation.FlatLabel)
	servePDF(w, filename, data)
	h.logAudit(r, "billing.export", obligation.ID, map[string]any{"format": "receipt_pdf"})
}

func (h *BillingHandler) handleInvoicePDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("invoice_pdf", result, time.Since(start))
	}()

	obligation, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	// Unpaid bills follow the latest configured breakdown.
	if obligation.Status != billing.StatusPaid {
		if err := h.ledger.SyncAmountToChargeTotal(r.Context(), obligation); err != nil {
			result = metrics.ResultError
			respondBillingError(w, err)
			return
		}
	}
	set, err := h.charges.Current(r.Context())
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	invoice, err := BuildInvoiceData(obligation, set, h.lookupResidence(r.Context(), obligation.ResidenceID))
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	data, err := layout.BuildInvoicePDF(h.society, []layout.InvoiceData{invoice})
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "render invoice error", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("Invoice_%s_%02d_%04d.pdf", obligation.FlatLabel, obligation.Month, obligation.Year)
	servePDF(w, filename, data)
	h.logAudit(r, "billing.export", obligation.ID, map[string]any{"format": "invoice_pdf"})
}

func (h *BillingHandler) lookupResidence(ctx context.Context, id string) *registry.Residence {
	if h.residences == nil {
		return nil
	}
	residence, err := h.residences.Get(ctx, id)
	if err != nil {
		return nil
	}
	return residence
}

func (h *BillingHandler) logAudit(r *http.Request, action, resourceID string, meta map[string]any) {
	logAudit(h.auditLogger, r, action, "obligation", resourceID, meta)
}

type obligationView struct {
	ID            string `json:"id"`
	ResidenceID   string `json:"residence_id"`
	FlatLabel     string `json:"flat_label"`
	ResidentName  string `json:"resident_name"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	Amount        string `json:"amount"`
	LateFee       string `json:"late_fee"`
	TotalDue      string `json:"total_due"`
	DueDate       string `json:"due_date"`
	PaidDate      string `json:"paid_date,omitempty"`
	Status        string `json:"status"`
	AmountPaid    string `json:"amount_paid"`
	PaymentMethod string `json:"payment_method,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Notes         string `json:"notes,omitempty"`
	PaidInFull    bool   `json:"paid_in_full"`
}

func newObligationView(o *billing.Obligation) obligationView {
	view := obligationView{
		ID:            o.ID,
		ResidenceID:   o.ResidenceID,
		FlatLabel:     o.FlatLabel,
		ResidentName:  o.ResidentName,
		Month:         o.Month,
		Year:          o.Year,
		Amount:        o.Amount.StringFixed(2),
		LateFee:       o.LateFee.StringFixed(2),
		TotalDue:      o.TotalDue().StringFixed(2),
		DueDate:       o.DueDate.Format("2006-01-02"),
		Status:        string(o.Status),
		AmountPaid:    o.AmountPaid.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		ReceiptNumber: o.ReceiptNumber,
		Notes:         o.Notes,
		PaidInFull:    o.PaidInFull,
	}
	if !o.PaidDate.IsZero() {
		view.PaidDate = o.PaidDate.Format("2006-01-02")
	}
	return view
}

func parseFilter(r *http.Request) (billing.ObligationFilter, error) {
	var filter billing.ObligationFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			status := billing.Status(strings.TrimSpace(value))
			if !billing.ValidStoredStatus(status) && status != billing.StatusOverdue {
				return filter, fmt.Errorf("invalid status %q", value)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("invalid month")
		}
		filter.Month = month
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("invalid year")
		}
		filter.Year = year
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func servePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func respondBillingError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, billing.ErrObligationNotFound),
		errors.Is(err, billing.ErrChargeLineNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, billing.ErrInvalidPeriod),
		errors.Is(err, billing.ErrNoResidences),
		errors.Is(err, billing.ErrInvalidPayment),
		errors.Is(err, billing.ErrPaymentExceedsDue),
		errors.Is(err, billing.ErrMissingPaymentMethod),
		errors.Is(err, billing.ErrNegativeAmount),
		errors.Is(err, billing.ErrLastChargeLine),
		errors.Is(err, ErrNoPaymentRecorded):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func logAudit(logger audit.Logger, r *http.Request, action, resourceType, resourceID string, meta map[string]any) {
	if logger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = logger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
