// Package memory provides in-memory stores used by unit tests and local
// development. Semantics mirror the postgres repositories, including the
// residence+period unique key and the optimistic payment update.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	billing "society-cloud/internal/billing/domain"

	"github.com/shopspring/decimal"
)

// ObligationRepository is an in-memory obligation store.
type ObligationRepository struct {
	mu   sync.RWMutex
	data map[string]*billing.Obligation
	keys map[string]string // residence|period key -> obligation id
}

// NewObligationRepository constructs a repository.
func NewObligationRepository() *ObligationRepository {
	return &ObligationRepository{
		data: make(map[string]*billing.Obligation),
		keys: make(map[string]string),
	}
}

// CreateBatch inserts obligations, skipping existing residence+period keys.
func (r *ObligationRepository) CreateBatch(ctx context.Context, obligations []*billing.Obligation) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, obligation := range obligations {
		if obligation == nil {
			return created, billing.ErrNilObligation
		}
		key := periodKey(obligation.ResidenceID, obligation.Period())
		if _, exists := r.keys[key]; exists {
			continue
		}
		clone := *obligation
		r.data[obligation.ID] = &clone
		r.keys[key] = obligation.ID
		created++
	}
	return created, nil
}

// ExistingResidenceIDs returns residences already billed for the period.
func (r *ObligationRepository) ExistingResidenceIDs(ctx context.Context, period billing.Period) (map[string]struct{}, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]struct{})
	for _, obligation := range r.data {
		if obligation.Month == period.Month && obligation.Year == period.Year {
			result[obligation.ResidenceID] = struct{}{}
		}
	}
	return result, nil
}

// GetByID fetches a detached copy of one obligation.
func (r *ObligationRepository) GetByID(ctx context.Context, id string) (*billing.Obligation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	obligation := r.data[id]
	if obligation == nil {
		return nil, nil
	}
	clone := *obligation
	return &clone, nil
}

// List returns copies ordered by (year desc, month desc, flat asc).
func (r *ObligationRepository) List(ctx context.Context, filter billing.ObligationFilter) ([]*billing.Obligation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*billing.Obligation
	for _, obligation := range r.data {
		if filter.Month != 0 && obligation.Month != filter.Month {
			continue
		}
		if filter.Year != 0 && obligation.Year != filter.Year {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(filter.Statuses, obligation.Status) {
			continue
		}
		clone := *obligation
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		if result[i].Month != result[j].Month {
			return result[i].Month > result[j].Month
		}
		return result[i].FlatLabel < result[j].FlatLabel
	})
	return result, nil
}

// UpdatePayment applies payment fields iff the stored status matches
// expected; otherwise billing.ErrConflict.
func (r *ObligationRepository) UpdatePayment(ctx context.Context, obligation *billing.Obligation, expected billing.Status) error {
	_ = ctx
	if obligation == nil {
		return billing.ErrNilObligation
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.data[obligation.ID]
	if stored == nil {
		return billing.ErrObligationNotFound
	}
	if stored.Status != expected {
		return billing.ErrConflict
	}
	clone := *obligation
	r.data[obligation.ID] = &clone
	return nil
}

// UpdateAmount syncs the stored base amount.
func (r *ObligationRepository) UpdateAmount(ctx context.Context, id string, amount decimal.Decimal, updatedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.data[id]
	if stored == nil {
		return billing.ErrObligationNotFound
	}
	stored.Amount = amount
	stored.UpdatedAt = updatedAt.UTC()
	return nil
}

func periodKey(residenceID string, period billing.Period) string {
	return residenceID + "|" + period.Key()
}

func statusIn(statuses []billing.Status, status billing.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

var _ billing.ObligationRepository = (*ObligationRepository)(nil)

// ChargeLineStore is an in-memory charge line configuration store.
type ChargeLineStore struct {
	mu  sync.RWMutex
	set *billing.ChargeLineSet
}

// NewChargeLineStore constructs a store, optionally pre-seeded.
func NewChargeLineStore(set *billing.ChargeLineSet) *ChargeLineStore {
	return &ChargeLineStore{set: cloneSet(set)}
}

// Load returns a detached copy of the stored set, or nil when unset.
func (s *ChargeLineStore) Load(ctx context.Context) (*billing.ChargeLineSet, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.set), nil
}

// Save replaces the stored set.
func (s *ChargeLineStore) Save(ctx context.Context, set *billing.ChargeLineSet) error {
	_ = ctx
	if set == nil {
		return errors.New("charge line store: nil set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = cloneSet(set)
	return nil
}

func cloneSet(set *billing.ChargeLineSet) *billing.ChargeLineSet {
	if set == nil {
		return nil
	}
	clone := billing.NewChargeLineSet(set.Lines)
	clone.ManualTotal = set.ManualTotal
	clone.HasOverride = set.HasOverride
	return clone
}

var _ billing.ChargeLineStore = (*ChargeLineStore)(nil)
