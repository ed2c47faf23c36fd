package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Obligation is one residence's maintenance charge for one billing period.
// Identity: residence + month + year.
type Obligation struct {
	ID           string
	ResidenceID  string
	FlatLabel    string
	ResidentName string
	Month        int
	Year         int

	Amount  decimal.Decimal
	LateFee decimal.Decimal

	DueDate  time.Time
	PaidDate time.Time

	Status        Status
	AmountPaid    decimal.Decimal
	PaymentMethod string
	ReceiptNumber string
	Notes         string

	// PaidInFull is fixed at payment time so a later late-fee change cannot
	// reclassify an already issued receipt.
	PaidInFull bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildObligationID derives the deterministic identity for residence+period.
func BuildObligationID(residenceID string, period Period) (string, error) {
	if residenceID == "" {
		return "", ErrNilObligation
	}
	if _, err := NewPeriod(period.Month, period.Year); err != nil {
		return "", err
	}
	base := residenceID + "|" + period.Key()
	hash := sha256.Sum256([]byte(base))
	return "obl-" + hex.EncodeToString(hash[:8]), nil
}

// NewObligation creates an unpaid obligation for a residence and period.
func NewObligation(residenceID, flatLabel, residentName string, period Period, amount decimal.Decimal, now time.Time) (*Obligation, error) {
	id, err := BuildObligationID(residenceID, period)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return &Obligation{
		ID:           id,
		ResidenceID:  residenceID,
		FlatLabel:    flatLabel,
		ResidentName: residentName,
		Month:        period.Month,
		Year:         period.Year,
		Amount:       amount,
		LateFee:      decimal.Zero,
		AmountPaid:   decimal.Zero,
		DueDate:      period.DueDate(),
		Status:       StatusUnpaid,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// Period returns the obligation's billing period.
func (o *Obligation) Period() Period {
	return Period{Month: o.Month, Year: o.Year}
}

// TotalDue returns base amount plus late fee.
func (o *Obligation) TotalDue() decimal.Decimal {
	return o.Amount.Add(o.LateFee)
}

// EffectiveStatus applies the overdue derivation rule: unpaid past the due
// date reads as overdue. Every other stored status passes through unchanged.
func (o *Obligation) EffectiveStatus(today time.Time) Status {
	if o.Status == StatusUnpaid && o.DueDate.Before(truncateDay(today)) {
		return StatusOverdue
	}
	return o.Status
}

// IsSettled reports whether payment details are fully recorded.
func (o *Obligation) IsSettled() bool {
	return o.PaymentMethod != "" && o.ReceiptNumber != "" && !o.PaidDate.IsZero()
}

// RecordPayment applies a payment to the obligation. amount must be positive
// and no greater than the outstanding balance, so the cumulative total paid
// never exceeds the total due; violations leave the obligation unchanged.
func (o *Obligation) RecordPayment(amount decimal.Decimal, method, notes, receiptNumber string, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPayment
	}
	if amount.GreaterThan(o.TotalDue().Sub(o.AmountPaid)) {
		return ErrPaymentExceedsDue
	}
	if method == "" {
		return ErrMissingPaymentMethod
	}

	paid := o.AmountPaid.Add(amount)
	full := paid.GreaterThanOrEqual(o.TotalDue())
	if full {
		o.Status = StatusPaid
	} else {
		o.Status = StatusPartial
	}
	o.PaidInFull = full
	o.AmountPaid = paid
	o.PaidDate = truncateDay(now.UTC())
	o.PaymentMethod = method
	o.ReceiptNumber = receiptNumber
	o.Notes = notes
	o.UpdatedAt = now.UTC()
	return nil
}

// BillNumber returns the document reference printed on invoices and receipts.
func (o *Obligation) BillNumber() string {
	return fmt.Sprintf("%s/%02d-%04d", o.FlatLabel, o.Month, o.Year)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
