package interfaces

import (
	"errors"
	"fmt"

	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/document/layout"
	"society-cloud/internal/document/numwords"
	registry "society-cloud/internal/registry/domain"
)

// ErrNoPaymentRecorded is returned when a receipt is requested for an
// obligation without a recorded payment.
var ErrNoPaymentRecorded = errors.New("billing: no payment recorded for obligation")

// BuildReceiptData builds the ephemeral receipt view for one settled
// obligation. The residence supplies building/floor detail and may be nil.
func BuildReceiptData(obligation *billing.Obligation, residence *registry.Residence) (layout.ReceiptData, error) {
	if obligation == nil {
		return layout.ReceiptData{}, billing.ErrNilObligation
	}
	if !obligation.IsSettled() {
		return layout.ReceiptData{}, ErrNoPaymentRecorded
	}
	data := layout.ReceiptData{
		ReceiptNumber: obligation.ReceiptNumber,
		Date:          obligation.PaidDate,
		Flat:          obligation.FlatLabel,
		ResidentName:  obligation.ResidentName,
		AmountPaid:    obligation.AmountPaid,
		AmountInWords: numwords.CurrencySentence(obligation.AmountPaid),
		PaymentMethod: obligation.PaymentMethod,
		BillNumber:    obligation.BillNumber(),
		BillDate:      obligation.CreatedAt,
		FullPayment:   obligation.PaidInFull,
		Remarks:       receiptRemarks(obligation),
	}
	if residence != nil {
		data.Building = residence.Building
		data.Floor = residence.Floor
	}
	return data, nil
}

// receiptRemarks auto-builds the bill reference line; payments recorded
// without one fall back to the free-text notes.
func receiptRemarks(obligation *billing.Obligation) string {
	if obligation.FlatLabel == "" {
		return obligation.Notes
	}
	return fmt.Sprintf("Recd Agnst Bill No. %s Dt.%s",
		obligation.BillNumber(), obligation.CreatedAt.Format("02/01/2006"))
}

// BuildInvoiceData builds the ephemeral invoice view for one obligation
// using the active charge line set (the default breakdown when none is
// configured).
func BuildInvoiceData(obligation *billing.Obligation, set *billing.ChargeLineSet, residence *registry.Residence) (layout.InvoiceData, error) {
	if obligation == nil {
		return layout.InvoiceData{}, billing.ErrNilObligation
	}
	if set == nil || len(set.Lines) == 0 {
		set = billing.NewChargeLineSet(billing.DefaultChargeLines())
	}

	lines := make([]layout.InvoiceLine, 0, len(set.Lines))
	for _, line := range set.Lines {
		lines = append(lines, layout.InvoiceLine{Label: line.Label, Amount: line.Amount})
	}

	total := obligation.TotalDue()
	data := layout.InvoiceData{
		BillNumber:   obligation.BillNumber(),
		BillDate:     obligation.CreatedAt,
		DueDate:      obligation.DueDate,
		Flat:         obligation.FlatLabel,
		ResidentName: obligation.ResidentName,
		PeriodLabel:  obligation.Period().Label(),
		Lines:        lines,
		LateFee:      obligation.LateFee,
		GrandTotal:   total,
		TotalInWords: numwords.CurrencySentence(total),
	}
	if residence != nil {
		data.Building = residence.Building
		data.Floor = residence.Floor
	}
	return data, nil
}
