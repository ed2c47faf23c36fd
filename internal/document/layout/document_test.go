package layout

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testSociety() Society {
	return Society{
		Name:         "Green Acres CHS Ltd",
		Registration: "MUM/HSG/1234/2001",
		Address:      "Plot 12, Link Road, Mumbai 400064",
		Phone:        "022-26771234",
	}
}

func testReceipt() ReceiptData {
	return ReceiptData{
		ReceiptNumber: "0501260042",
		Date:          time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Building:      "A",
		Floor:         "3",
		Flat:          "A-301",
		ResidentName:  "Jane Doe",
		AmountPaid:    decimal.NewFromInt(1700),
		AmountInWords: "the sum of Rupees One Thousand Seven Hundred only.",
		PaymentMethod: "Cheque",
		BillNumber:    "A-301/01-2026",
		BillDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FullPayment:   true,
		Remarks:       "Recd Agnst Bill No. A-301/01-2026 Dt.01/01/2026",
	}
}

func pageMarkers(data []byte) int {
	return bytes.Count(data, []byte("/Type /Page"))
}

func TestBuildReceiptPDFProducesOutput(t *testing.T) {
	data, err := BuildReceiptPDF(testSociety(), []ReceiptData{testReceipt()})
	if err != nil {
		t.Fatalf("build receipt pdf: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty pdf output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a pdf")
	}
}

func TestBuildReceiptPDFBatchAddsPagePerRecord(t *testing.T) {
	single, err := BuildReceiptPDF(testSociety(), []ReceiptData{testReceipt()})
	if err != nil {
		t.Fatalf("build single: %v", err)
	}
	batch, err := BuildReceiptPDF(testSociety(), []ReceiptData{testReceipt(), testReceipt(), testReceipt()})
	if err != nil {
		t.Fatalf("build batch: %v", err)
	}
	if diff := pageMarkers(batch) - pageMarkers(single); diff != 2 {
		t.Fatalf("expected 2 extra pages in batch, got %d", diff)
	}
}

func TestBuildInvoicePDFProducesOutput(t *testing.T) {
	invoice := InvoiceData{
		BillNumber:   "A-301/01-2026",
		BillDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Building:     "A",
		Floor:        "3",
		Flat:         "A-301",
		ResidentName: "Jane Doe",
		PeriodLabel:  "January 2026",
		Lines: []InvoiceLine{
			{Label: "Maintenance Charges", Amount: decimal.NewFromInt(1000)},
			{Label: "Service Charges", Amount: decimal.NewFromInt(500)},
			{Label: "Sinking Fund", Amount: decimal.NewFromInt(200)},
		},
		GrandTotal:   decimal.NewFromInt(1700),
		TotalInWords: "the sum of Rupees One Thousand Seven Hundred only.",
	}
	data, err := BuildInvoicePDF(testSociety(), []InvoiceData{invoice})
	if err != nil {
		t.Fatalf("build invoice pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a pdf")
	}
}
