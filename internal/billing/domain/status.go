package billing

// Status is the payment lifecycle state of an obligation.
//
// StatusOverdue is derived at read time and never stored: a persisted
// obligation only ever carries unpaid, partial or paid.
type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// ValidStoredStatus reports whether a status may be persisted.
func ValidStoredStatus(s Status) bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid:
		return true
	}
	return false
}
