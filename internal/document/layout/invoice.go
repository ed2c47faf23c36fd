package layout

import (
	"bytes"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/shopspring/decimal"
)

// InvoiceLine is one row of the itemized charge table.
type InvoiceLine struct {
	Label  string
	Amount decimal.Decimal
}

// InvoiceData is the renderable view of one obligation's maintenance bill.
type InvoiceData struct {
	BillNumber string
	BillDate   time.Time
	DueDate    time.Time

	Building     string
	Floor        string
	Flat         string
	ResidentName string
	PeriodLabel  string

	Lines         []InvoiceLine
	Arrears       decimal.Decimal
	Interest      decimal.Decimal
	CreditBalance decimal.Decimal
	LateFee       decimal.Decimal

	GrandTotal   decimal.Decimal
	TotalInWords string
}

// BuildInvoicePDF renders invoices into a single PDF, one page per invoice,
// sharing the per-record routine between single and batch output.
func BuildInvoicePDF(society Society, invoices []InvoiceData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(false, PageMargin)
	for _, invoice := range invoices {
		pdf.AddPage()
		renderInvoice(pdf, society, invoice)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderInvoice(pdf *gofpdf.Fpdf, society Society, d InvoiceData) {
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*PageMargin
	left := PageMargin
	pdf.SetXY(left, PageMargin)

	renderSocietyHeader(pdf, society, contentW)
	pdf.Ln(2)

	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(contentW, 7, "MAINTENANCE BILL", "", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(contentW/2, lineHeight, "Bill No. : "+d.BillNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, lineHeight, "Date : "+d.BillDate.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, lineHeight, "Name : "+d.ResidentName, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, lineHeight, "Period : "+d.PeriodLabel, "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/3, lineHeight, "Building : "+d.Building, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/3, lineHeight, "Floor : "+d.Floor, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/3, lineHeight, "Flat : "+d.Flat, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	labelW := contentW * 0.7
	amountW := contentW - labelW

	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(labelW, 6, "Particulars", "1", 0, "C", false, 0, "")
	pdf.CellFormat(amountW, 6, "Amount (Rs.)", "1", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	for _, line := range d.Lines {
		pdf.CellFormat(labelW, 6, line.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(amountW, 6, line.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	renderAdjustmentRow(pdf, "Arrears", d.Arrears, labelW, amountW, false)
	renderAdjustmentRow(pdf, "Interest on Arrears", d.Interest, labelW, amountW, false)
	renderAdjustmentRow(pdf, "Late Payment Fee", d.LateFee, labelW, amountW, false)
	renderAdjustmentRow(pdf, "Less: Credit Balance", d.CreditBalance, labelW, amountW, true)

	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(labelW, 7, "Grand Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(amountW, 7, d.GrandTotal.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(2)

	renderWrapped(pdf, "Amount in words: "+d.TotalInWords, left, contentW)
	renderWrapped(pdf, "Payable on or before "+d.DueDate.Format("02/01/2006")+". Interest is charged on amounts outstanding past the due date.", left, contentW)
	pdf.Ln(2)

	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(contentW, lineHeight, "For "+society.Name, "", 1, "R", false, 0, "")
}

func renderAdjustmentRow(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal, labelW, amountW float64, negative bool) {
	if amount.IsZero() {
		return
	}
	value := amount.StringFixed(2)
	if negative {
		value = "-" + value
	}
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(labelW, 6, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(amountW, 6, value, "1", 1, "R", false, 0, "")
}
