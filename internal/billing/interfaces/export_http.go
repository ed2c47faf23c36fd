package interfaces

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"society-cloud/internal/audit"
	"society-cloud/internal/billing/application"
	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/document/layout"
	"society-cloud/internal/observability/metrics"
	registry "society-cloud/internal/registry/domain"

	"github.com/xuri/excelize/v2"
)

// ExportHandler serves the bulk export APIs under /api/v1/exports.
type ExportHandler struct {
	ledger      *application.LedgerService
	charges     *application.ChargeLineService
	residences  ResidenceGetter
	society     layout.Society
	clock       billing.Clock
	bulkDelay   time.Duration
	auditLogger audit.Logger
}

// NewExportHandler constructs a handler. bulkDelay paces per-document
// rendering during selection exports so large batches do not starve the
// request loop.
func NewExportHandler(ledger *application.LedgerService, charges *application.ChargeLineService, residences ResidenceGetter, society layout.Society, clock billing.Clock, bulkDelay time.Duration, auditLogger audit.Logger) (*ExportHandler, error) {
	if ledger == nil {
		return nil, errors.New("export handler: nil ledger service")
	}
	if charges == nil {
		return nil, errors.New("export handler: nil charge line service")
	}
	if clock == nil {
		return nil, errors.New("export handler: nil clock")
	}
	return &ExportHandler{
		ledger:      ledger,
		charges:     charges,
		residences:  residences,
		society:     society,
		clock:       clock,
		bulkDelay:   bulkDelay,
		auditLogger: auditLogger,
	}, nil
}

// ServeHTTP routes export requests.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/exports/payments.csv" && r.Method == http.MethodGet:
		h.handlePaymentsCSV(w, r)
	case r.URL.Path == "/api/v1/exports/payments.xlsx" && r.Method == http.MethodGet:
		h.handlePaymentsXLSX(w, r)
	case r.URL.Path == "/api/v1/exports/receipts.pdf" && r.Method == http.MethodGet:
		h.handleReceiptsPDF(w, r)
	case r.URL.Path == "/api/v1/exports/invoices.pdf" && r.Method == http.MethodGet:
		h.handleInvoicesPDF(w, r)
	case r.URL.Path == "/api/v1/exports/receipts.zip" && r.Method == http.MethodPost:
		h.handleReceiptsZip(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var paymentExportHeader = []string{
	"flat", "resident", "month", "year", "amount", "late_fee", "total_due",
	"due_date", "status", "amount_paid", "paid_date", "payment_method",
	"receipt_number", "notes",
}

func paymentExportRow(o *billing.Obligation, today time.Time) []string {
	paidDate := ""
	if !o.PaidDate.IsZero() {
		paidDate = o.PaidDate.Format("2006-01-02")
	}
	return []string{
		o.FlatLabel,
		o.ResidentName,
		fmt.Sprintf("%02d", o.Month),
		fmt.Sprintf("%04d", o.Year),
		o.Amount.StringFixed(2),
		o.LateFee.StringFixed(2),
		o.TotalDue().StringFixed(2),
		o.DueDate.Format("2006-01-02"),
		string(o.EffectiveStatus(today)),
		o.AmountPaid.StringFixed(2),
		paidDate,
		o.PaymentMethod,
		o.ReceiptNumber,
		o.Notes,
	}
}

func (h *ExportHandler) handlePaymentsCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("payments_csv", result, time.Since(start))
	}()

	obligations, err := h.listForExport(w, r)
	if err != nil {
		result = metrics.ResultError
		return
	}
	now := h.clock.Now()
	filename := fmt.Sprintf("Maintenance_Payments_%s.csv", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	_, _ = io.WriteString(w, quoteCSVRecord(paymentExportHeader))
	for _, obligation := range obligations {
		_, _ = io.WriteString(w, quoteCSVRecord(paymentExportRow(obligation, now)))
	}
	h.logAudit(r, "payments_csv", len(obligations))
}

// quoteCSVRecord renders one record with every field double-quoted,
// embedded quotes doubled. Spreadsheet imports of the ledger expect the
// quote-wrapped form regardless of field content.
func quoteCSVRecord(record []string) string {
	var b strings.Builder
	for i, field := range record {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return b.String()
}

func (h *ExportHandler) handlePaymentsXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("payments_xlsx", result, time.Since(start))
	}()

	obligations, err := h.listForExport(w, r)
	if err != nil {
		result = metrics.ResultError
		return
	}
	now := h.clock.Now()
	f := excelize.NewFile()
	sheet := "payments"
	f.SetSheetName("Sheet1", sheet)
	for col, header := range paymentExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, obligation := range obligations {
		for col, value := range paymentExportRow(obligation, now) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		result = metrics.ResultError
		http.Error(w, "render xlsx error", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("Maintenance_Payments_%s.xlsx", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
	h.logAudit(r, "payments_xlsx", len(obligations))
}

func (h *ExportHandler) handleReceiptsPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("receipts_pdf", result, time.Since(start))
	}()

	obligations, err := h.listForExport(w, r)
	if err != nil {
		result = metrics.ResultError
		return
	}
	var receipts []layout.ReceiptData
	for _, obligation := range obligations {
		if !obligation.IsSettled() {
			continue
		}
		receipt, err := BuildReceiptData(obligation, h.lookupResidence(r.Context(), obligation.ResidenceID))
		if err != nil {
			continue
		}
		receipts = append(receipts, receipt)
	}
	if len(receipts) == 0 {
		result = metrics.ResultError
		http.Error(w, "no settled obligations to export", http.StatusNotFound)
		return
	}
	data, err := layout.BuildReceiptPDF(h.society, receipts)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "render receipts error", http.StatusInternalServerError)
		return
	}
	servePDF(w, "All_Receipts.pdf", data)
	h.logAudit(r, "receipts_pdf", len(receipts))
}

func (h *ExportHandler) handleInvoicesPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("invoices_pdf", result, time.Since(start))
	}()

	obligations, err := h.listForExport(w, r)
	if err != nil {
		result = metrics.ResultError
		return
	}
	set, err := h.charges.Current(r.Context())
	if err != nil {
		result = metrics.ResultError
		respondBillingError(w, err)
		return
	}
	var invoices []layout.InvoiceData
	for _, obligation := range obligations {
		invoice, err := BuildInvoiceData(obligation, set, h.lookupResidence(r.Context(), obligation.ResidenceID))
		if err != nil {
			continue
		}
		invoices = append(invoices, invoice)
	}
	if len(invoices) == 0 {
		result = metrics.ResultError
		http.Error(w, "no obligations to export", http.StatusNotFound)
		return
	}
	data, err := layout.BuildInvoicePDF(h.society, invoices)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "render invoices error", http.StatusInternalServerError)
		return
	}
	servePDF(w, "All_Invoices.pdf", data)
	h.logAudit(r, "invoices_pdf", len(invoices))
}

// bulkItemResult reports the outcome of one document in a selection export.
type bulkItemResult struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *ExportHandler) handleReceiptsZip(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("receipts_zip", result, time.Since(start))
	}()

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		result = metrics.ResultError
		http.Error(w, "empty selection", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	var succeeded, failed []bulkItemResult
	for i, id := range req.IDs {
		if i > 0 && h.bulkDelay > 0 {
			select {
			case <-r.Context().Done():
				result = metrics.ResultError
				http.Error(w, "request cancelled", http.StatusRequestTimeout)
				return
			case <-time.After(h.bulkDelay):
			}
		}
		filename, data, err := h.renderReceiptFor(r, id)
		if err != nil {
			failed = append(failed, bulkItemResult{ID: id, Error: err.Error()})
			continue
		}
		entry, err := archive.Create(filename)
		if err != nil {
			failed = append(failed, bulkItemResult{ID: id, Error: err.Error()})
			continue
		}
		if _, err := entry.Write(data); err != nil {
			failed = append(failed, bulkItemResult{ID: id, Error: err.Error()})
			continue
		}
		succeeded = append(succeeded, bulkItemResult{ID: id, Filename: filename})
	}

	report, err := archive.Create("report.json")
	if err == nil {
		_ = json.NewEncoder(report).Encode(map[string]any{
			"requested": len(req.IDs),
			"succeeded": succeeded,
			"failed":    failed,
		})
	}
	if err := archive.Close(); err != nil {
		result = metrics.ResultError
		http.Error(w, "archive error", http.StatusInternalServerError)
		return
	}
	if len(succeeded) == 0 {
		result = metrics.ResultError
		http.Error(w, "no receipts exported", http.StatusUnprocessableEntity)
		return
	}

	filename := fmt.Sprintf("Receipts_%s.zip", h.clock.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Export-Requested", fmt.Sprintf("%d", len(req.IDs)))
	w.Header().Set("X-Export-Failed", fmt.Sprintf("%d", len(failed)))
	_, _ = w.Write(buf.Bytes())
	h.logAudit(r, "receipts_zip", len(succeeded))
}

func (h *ExportHandler) renderReceiptFor(r *http.Request, id string) (string, []byte, error) {
	obligation, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		return "", nil, err
	}
	receipt, err := BuildReceiptData(obligation, h.lookupResidence(r.Context(), obligation.ResidenceID))
	if err != nil {
		return "", nil, err
	}
	data, err := layout.BuildReceiptPDF(h.society, []layout.ReceiptData{receipt})
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("Receipt_%s_%s.pdf", obligation.ReceiptNumber, obligation.FlatLabel)
	return filename, data, nil
}

func (h *ExportHandler) listForExport(w http.ResponseWriter, r *http.Request) ([]*billing.Obligation, error) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}
	obligations, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		respondBillingError(w, err)
		return nil, err
	}
	return obligations, nil
}

func (h *ExportHandler) lookupResidence(ctx context.Context, id string) *registry.Residence {
	if h.residences == nil {
		return nil
	}
	residence, err := h.residences.Get(ctx, id)
	if err != nil {
		return nil
	}
	return residence
}

func (h *ExportHandler) logAudit(r *http.Request, format string, count int) {
	logAudit(h.auditLogger, r, "billing.export", "export", format, map[string]any{
		"format": format,
		"count":  count,
	})
}
