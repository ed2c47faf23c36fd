package billing

import (
	"fmt"
	"time"
)

// Maintenance charges fall due on the 5th of the billed month.
const dueDayOfMonth = 5

// Period identifies one billing month.
type Period struct {
	Month int
	Year  int
}

// NewPeriod validates month/year and builds a period.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriod
	}
	if year < 2000 || year > 2200 {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Month: month, Year: year}, nil
}

// ParsePeriod parses a "YYYY-MM" period string.
func ParsePeriod(value string) (Period, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return NewPeriod(int(t.Month()), t.Year())
}

// DueDate returns the due date for the period.
func (p Period) DueDate() time.Time {
	return time.Date(p.Year, time.Month(p.Month), dueDayOfMonth, 0, 0, 0, 0, time.UTC)
}

// Start returns the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Key returns the canonical "YYYY-MM" key.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Label returns the human-readable "January 2026" form used on documents.
func (p Period) Label() string {
	return p.Start().Format("January 2006")
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}
