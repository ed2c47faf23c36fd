package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"society-cloud/internal/billing/application"
	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/billing/infrastructure/memory"
	registry "society-cloud/internal/registry/domain"

	"github.com/shopspring/decimal"
)

type stubRoster struct {
	roster []registry.Residence
}

func (s stubRoster) ListActive(ctx context.Context) ([]registry.Residence, error) {
	_ = ctx
	return s.roster, nil
}

type billingFixture struct {
	repo    *memory.ObligationRepository
	handler *BillingHandler
}

func newBillingFixture(t *testing.T, now time.Time) billingFixture {
	t.Helper()
	clock := fixedClock{now: now}
	repo := memory.NewObligationRepository()
	store := memory.NewChargeLineStore(nil)

	roster := []registry.Residence{
		{ID: "res-1", Building: "A", Floor: "1", FlatLabel: "A-101", OwnerName: "R. Sharma", Active: true},
		{ID: "res-2", Building: "A", Floor: "1", FlatLabel: "A-102", OwnerName: "S. Patel", Active: true},
	}

	periods, err := application.NewPeriodService(repo, stubRoster{roster: roster}, store, clock)
	if err != nil {
		t.Fatalf("new period service: %v", err)
	}
	ledger, err := application.NewLedgerService(repo, store, clock)
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	charges, err := application.NewChargeLineService(store)
	if err != nil {
		t.Fatalf("new charge line service: %v", err)
	}
	residences := stubResidenceGetter{residences: map[string]*registry.Residence{
		"res-1": &roster[0],
		"res-2": &roster[1],
	}}
	handler, err := NewBillingHandler(ledger, periods, charges, residences, testSociety, nil)
	if err != nil {
		t.Fatalf("new billing handler: %v", err)
	}
	return billingFixture{repo: repo, handler: handler}
}

func (f billingFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestBillingGenerate(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Period  string `json:"period"`
		Created int    `json:"created"`
		Skipped int    `json:"skipped"`
		Amount  string `json:"amount"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if body.Period != "2026-03" || body.Created != 2 || body.Amount != "1700.00" {
		t.Fatalf("unexpected response %+v", body)
	}

	// Rerun is a no-op, not an error.
	resp = fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on rerun, got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse rerun: %v", err)
	}
	if body.Created != 0 || body.Skipped != 2 {
		t.Fatalf("expected idempotent rerun, got %+v", body)
	}
}

func TestBillingGenerate_InvalidPeriod(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":13,"year":2026}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBillingListAndSummary(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	if resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`); resp.Code != http.StatusOK {
		t.Fatalf("generate: %d", resp.Code)
	}

	resp := fixture.do(t, http.MethodGet, "/api/v1/billing/obligations?status=overdue", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var views []obligationView
	if err := json.Unmarshal(resp.Body.Bytes(), &views); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	// Generated on March 10, due March 5: both read as overdue.
	if len(views) != 2 {
		t.Fatalf("expected 2 overdue obligations, got %d", len(views))
	}
	for _, view := range views {
		if view.Status != "overdue" {
			t.Fatalf("expected overdue, got %s", view.Status)
		}
	}

	resp = fixture.do(t, http.MethodGet, "/api/v1/billing/summary", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var summary struct {
		Collected string `json:"collected"`
		Pending   string `json:"pending"`
		Overdue   string `json:"overdue"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if summary.Pending != "3400.00" || summary.Overdue != "3400.00" || summary.Collected != "0.00" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestBillingList_InvalidStatus(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	resp := fixture.do(t, http.MethodGet, "/api/v1/billing/obligations?status=bogus", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBillingPaymentFlow(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	if resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`); resp.Code != http.StatusOK {
		t.Fatalf("generate: %d", resp.Code)
	}
	id := fixture.firstObligationID(t)

	resp := fixture.do(t, http.MethodPost, "/api/v1/billing/obligations/"+id+"/payment", `{"amount":"1700","method":"UPI","notes":"march dues"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var view obligationView
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("parse payment: %v", err)
	}
	if view.Status != "paid" || !view.PaidInFull || view.ReceiptNumber == "" {
		t.Fatalf("unexpected payment view %+v", view)
	}

	// The settled obligation now serves a receipt PDF.
	resp = fixture.do(t, http.MethodGet, "/api/v1/billing/obligations/"+id+"/receipt.pdf", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "Receipt_"+view.ReceiptNumber+"_"+view.FlatLabel+".pdf") {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestBillingPayment_Overpayment(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	if resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`); resp.Code != http.StatusOK {
		t.Fatalf("generate: %d", resp.Code)
	}
	id := fixture.firstObligationID(t)

	resp := fixture.do(t, http.MethodPost, "/api/v1/billing/obligations/"+id+"/payment", `{"amount":"1700.01","method":"Cash"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBillingPayment_NotFound(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	resp := fixture.do(t, http.MethodPost, "/api/v1/billing/obligations/obl-missing/payment", `{"amount":"100","method":"Cash"}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestBillingReceiptPDF_UnsettledRejected(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	if resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`); resp.Code != http.StatusOK {
		t.Fatalf("generate: %d", resp.Code)
	}
	id := fixture.firstObligationID(t)

	resp := fixture.do(t, http.MethodGet, "/api/v1/billing/obligations/"+id+"/receipt.pdf", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsettled receipt, got %d", resp.Code)
	}
}

func TestBillingInvoicePDF(t *testing.T) {
	fixture := newBillingFixture(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	if resp := fixture.do(t, http.MethodPost, "/api/v1/billing/generate", `{"month":3,"year":2026}`); resp.Code != http.StatusOK {
		t.Fatalf("generate: %d", resp.Code)
	}
	id := fixture.firstObligationID(t)

	resp := fixture.do(t, http.MethodGet, "/api/v1/billing/obligations/"+id+"/invoice.pdf", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}
}

func (f billingFixture) firstObligationID(t *testing.T) string {
	t.Helper()
	obligations, err := f.repo.List(context.Background(), billing.ObligationFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(obligations) == 0 {
		t.Fatalf("no obligations stored")
	}
	return obligations[0].ID
}

func TestBuildReceiptData_MatchesSingleAndBatch(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	obligation, err := billing.NewObligation("res-1", "A-101", "R. Sharma", billing.Period{Month: 3, Year: 2026}, decimal.NewFromInt(1700), now.AddDate(0, 0, -9))
	if err != nil {
		t.Fatalf("new obligation: %v", err)
	}
	if err := obligation.RecordPayment(decimal.NewFromInt(1700), "Cheque", "", "1003269999", now); err != nil {
		t.Fatalf("payment: %v", err)
	}
	residence := &registry.Residence{ID: "res-1", Building: "A", Floor: "1", FlatLabel: "A-101"}

	first, err := BuildReceiptData(obligation, residence)
	if err != nil {
		t.Fatalf("build receipt: %v", err)
	}
	second, err := BuildReceiptData(obligation, residence)
	if err != nil {
		t.Fatalf("build receipt: %v", err)
	}
	if first != second {
		t.Fatalf("receipt data must be deterministic:\n%+v\n%+v", first, second)
	}
	if !strings.Contains(first.AmountInWords, "One Thousand Seven Hundred") {
		t.Fatalf("unexpected amount in words %q", first.AmountInWords)
	}
	if first.Remarks != "Recd Agnst Bill No. A-101/03-2026 Dt.01/03/2026" {
		t.Fatalf("unexpected remarks %q", first.Remarks)
	}
}

func TestBuildReceiptData_NotesFallbackWithoutBillReference(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	obligation, err := billing.NewObligation("res-9", "", "R. Sharma", billing.Period{Month: 3, Year: 2026}, decimal.NewFromInt(1700), now.AddDate(0, 0, -9))
	if err != nil {
		t.Fatalf("new obligation: %v", err)
	}
	if err := obligation.RecordPayment(decimal.NewFromInt(1700), "Cash", "adjustment against deposit", "1003268888", now); err != nil {
		t.Fatalf("payment: %v", err)
	}

	receipt, err := BuildReceiptData(obligation, nil)
	if err != nil {
		t.Fatalf("build receipt: %v", err)
	}
	if receipt.Remarks != "adjustment against deposit" {
		t.Fatalf("expected free-text notes as remarks, got %q", receipt.Remarks)
	}
}

func TestBuildReceiptData_RequiresPayment(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	obligation, err := billing.NewObligation("res-1", "A-101", "R. Sharma", billing.Period{Month: 3, Year: 2026}, decimal.NewFromInt(1700), now)
	if err != nil {
		t.Fatalf("new obligation: %v", err)
	}
	if _, err := BuildReceiptData(obligation, nil); err != ErrNoPaymentRecorded {
		t.Fatalf("expected ErrNoPaymentRecorded, got %v", err)
	}
}

func TestBuildInvoiceData_DefaultBreakdown(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	obligation, err := billing.NewObligation("res-1", "A-101", "R. Sharma", billing.Period{Month: 3, Year: 2026}, decimal.NewFromInt(1700), now)
	if err != nil {
		t.Fatalf("new obligation: %v", err)
	}
	invoice, err := BuildInvoiceData(obligation, nil, nil)
	if err != nil {
		t.Fatalf("build invoice: %v", err)
	}
	if len(invoice.Lines) != 3 {
		t.Fatalf("expected default 3 lines, got %d", len(invoice.Lines))
	}
	if invoice.PeriodLabel != "March 2026" {
		t.Fatalf("unexpected period label %q", invoice.PeriodLabel)
	}
	if !invoice.GrandTotal.Equal(decimal.NewFromInt(1700)) {
		t.Fatalf("unexpected grand total %s", invoice.GrandTotal)
	}
}
