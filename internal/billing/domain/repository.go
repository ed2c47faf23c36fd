package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ObligationFilter narrows obligation listings. Zero values mean "no filter".
type ObligationFilter struct {
	Statuses []Status
	Month    int
	Year     int
}

// ObligationRepository persists billing obligations.
type ObligationRepository interface {
	// CreateBatch inserts obligations, silently skipping residence+period
	// keys that already exist, and returns the number actually created.
	CreateBatch(ctx context.Context, obligations []*Obligation) (int, error)
	// ExistingResidenceIDs returns residences already billed for the period.
	ExistingResidenceIDs(ctx context.Context, period Period) (map[string]struct{}, error)
	GetByID(ctx context.Context, id string) (*Obligation, error)
	// List returns obligations ordered by (year desc, month desc, flat asc).
	List(ctx context.Context, filter ObligationFilter) ([]*Obligation, error)
	// UpdatePayment persists payment fields iff the stored status still
	// equals expected; returns ErrConflict otherwise.
	UpdatePayment(ctx context.Context, obligation *Obligation, expected Status) error
	// UpdateAmount syncs the stored base amount to the configured total.
	UpdateAmount(ctx context.Context, id string, amount decimal.Decimal, updatedAt time.Time) error
}

// ChargeLineStore persists the configured charge line set.
type ChargeLineStore interface {
	Load(ctx context.Context) (*ChargeLineSet, error)
	Save(ctx context.Context, set *ChargeLineSet) error
}

// Clock abstracts time for services.
type Clock interface {
	Now() time.Time
}
