package billing

import "errors"

var (
	// ErrInvalidPeriod is returned when month/year do not form a valid billing period.
	ErrInvalidPeriod = errors.New("billing: invalid billing period")
	// ErrNoResidences is returned when generation runs against an empty roster.
	ErrNoResidences = errors.New("billing: no residences found, add residences first")
	// ErrNegativeAmount is returned when a charge or fee is negative.
	ErrNegativeAmount = errors.New("billing: negative amount")
	// ErrInvalidPayment is returned when the paid amount is zero or negative.
	ErrInvalidPayment = errors.New("billing: payment amount must be positive")
	// ErrPaymentExceedsDue is returned when the paid amount exceeds the total due.
	ErrPaymentExceedsDue = errors.New("billing: payment exceeds total due")
	// ErrMissingPaymentMethod is returned when no payment method was supplied.
	ErrMissingPaymentMethod = errors.New("billing: payment method required")
	// ErrObligationNotFound is returned when an obligation does not exist.
	ErrObligationNotFound = errors.New("billing: obligation not found")
	// ErrConflict is returned when a concurrent writer changed the obligation first.
	ErrConflict = errors.New("billing: obligation modified concurrently")
	// ErrNilObligation is returned when persisting a nil obligation.
	ErrNilObligation = errors.New("billing: nil obligation")
	// ErrLastChargeLine is returned when removing the only remaining charge line.
	ErrLastChargeLine = errors.New("billing: at least one charge line must remain")
	// ErrChargeLineNotFound is returned when a charge line id does not exist.
	ErrChargeLineNotFound = errors.New("billing: charge line not found")
)
