package layout

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/shopspring/decimal"
)

const receiptDisclaimer = "Subject to realisation of cheque. Errors and omissions excepted."

// ReceiptData is the renderable view of one recorded payment. It is built on
// demand from an obligation and discarded after rendering.
type ReceiptData struct {
	ReceiptNumber string
	Date          time.Time

	Building     string
	Floor        string
	Flat         string
	ResidentName string

	AmountPaid    decimal.Decimal
	AmountInWords string
	PaymentMethod string

	BillNumber  string
	BillDate    time.Time
	FullPayment bool
	Remarks     string
}

// BuildReceiptPDF renders receipts into a single PDF, one page per receipt.
// The single-document and batch paths share this routine: a one-element
// batch is exactly the single artifact.
func BuildReceiptPDF(society Society, receipts []ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(false, PageMargin)
	for _, receipt := range receipts {
		pdf.AddPage()
		renderReceipt(pdf, society, receipt)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderReceipt(pdf *gofpdf.Fpdf, society Society, d ReceiptData) {
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*PageMargin
	left := PageMargin
	pdf.SetXY(left, PageMargin)

	renderSocietyHeader(pdf, society, contentW)
	pdf.Ln(2)

	// The bordered RECEIPT box is sized to its content: remember the top,
	// place everything, draw the rectangle last.
	boxTop := pdf.GetY()
	inner := left + boxPadding
	innerW := contentW - 2*boxPadding
	pdf.SetY(boxTop + boxPadding)

	pdf.SetX(inner)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(innerW, lineHeight+1, "RECEIPT", "", 1, "C", false, 0, "")

	pdf.SetX(inner)
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(innerW/2, lineHeight, "Receipt No. : "+d.ReceiptNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(innerW/2, lineHeight, "Date : "+d.Date.Format("02/01/2006"), "", 1, "R", false, 0, "")

	pdf.SetX(inner)
	pdf.CellFormat(innerW/3, lineHeight, "Building : "+d.Building, "", 0, "L", false, 0, "")
	pdf.CellFormat(innerW/3, lineHeight, "Floor : "+d.Floor, "", 0, "L", false, 0, "")
	pdf.CellFormat(innerW/3, lineHeight, "Flat : "+d.Flat, "", 1, "L", false, 0, "")
	pdf.Ln(1)

	renderPaymentSentence(pdf, d, inner, innerW)

	dated := fmt.Sprintf("Dated %s in %s payment of Bill No. %s dated %s",
		d.Date.Format("02/01/2006"), fullOrPart(d.FullPayment), d.BillNumber, d.BillDate.Format("02/01/2006"))
	renderWrapped(pdf, dated, inner, innerW)

	renderWrapped(pdf, "Remarks : "+d.Remarks, inner, innerW)
	pdf.Ln(1)

	pdf.SetX(inner)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(innerW/2, lineHeight+1, "Rs. "+d.AmountPaid.StringFixed(2), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(innerW/2, lineHeight+1, "For "+society.Name, "", 1, "R", false, 0, "")

	pdf.SetX(inner)
	pdf.SetFont(fontFamily, "I", 7)
	pdf.CellFormat(innerW, lineHeight-1, receiptDisclaimer, "", 1, "C", false, 0, "")

	boxBottom := pdf.GetY() + boxPadding
	pdf.Rect(left, boxTop, contentW, boxBottom-boxTop, "D")
}

// renderPaymentSentence draws the mixed-run sentence with the resident's
// name bold and underlined no matter where the wrap lands.
func renderPaymentSentence(pdf *gofpdf.Fpdf, d ReceiptData, x, width float64) {
	before := "Received with thanks from "
	after := " " + d.AmountInWords + " By " + d.PaymentMethod

	// measure switches the active font so bold runs report their real width;
	// it also leaves that font selected for the draw that follows.
	measure := func(text string, style Style) float64 {
		if style == StyleEmphasis {
			pdf.SetFont(fontFamily, "B", 10)
		} else {
			pdf.SetFont(fontFamily, "", 10)
		}
		return pdf.GetStringWidth(text)
	}
	lines := Wrap(before, d.ResidentName, after, width, measure)

	for _, line := range lines {
		y := pdf.GetY()
		cursor := x
		for _, seg := range line.Segments {
			segW := measure(seg.Text, seg.Style)
			pdf.SetXY(cursor, y)
			pdf.CellFormat(segW, lineHeight, seg.Text, "", 0, "L", false, 0, "")
			cursor += segW
		}
		underlineY := y + lineHeight - underlineGap
		for _, span := range line.Underlines {
			pdf.Line(x+span.Offset, underlineY, x+span.Offset+span.Width, underlineY)
		}
		pdf.SetY(y + lineHeight)
	}
	pdf.SetFont(fontFamily, "", 10)
}

func renderWrapped(pdf *gofpdf.Fpdf, text string, x, width float64) {
	pdf.SetFont(fontFamily, "", 10)
	measure := func(t string, _ Style) float64 { return pdf.GetStringWidth(t) }
	for _, line := range WrapPlain(text, width, measure) {
		pdf.SetX(x)
		pdf.CellFormat(width, lineHeight, line, "", 1, "L", false, 0, "")
	}
}

func renderSocietyHeader(pdf *gofpdf.Fpdf, society Society, contentW float64) {
	if society.Name != "" {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(contentW, 7, society.Name, "", 1, "C", false, 0, "")
	}
	pdf.SetFont(fontFamily, "", 8)
	if society.Registration != "" {
		pdf.CellFormat(contentW, 4, "Regn. No. "+society.Registration, "", 1, "C", false, 0, "")
	}
	if society.Address != "" {
		pdf.CellFormat(contentW, 4, society.Address, "", 1, "C", false, 0, "")
	}
	if society.Phone != "" {
		pdf.CellFormat(contentW, 4, "Phone: "+society.Phone, "", 1, "C", false, 0, "")
	}
}

func fullOrPart(full bool) string {
	if full {
		return "Full"
	}
	return "Part"
}
