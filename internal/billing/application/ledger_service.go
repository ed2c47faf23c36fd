package application

import (
	"context"
	"errors"
	"time"

	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/observability/metrics"

	"github.com/shopspring/decimal"
)

// LedgerSummary aggregates the ledger: collected covers paid obligations,
// pending everything else, overdue the effectively overdue subset of pending.
type LedgerSummary struct {
	Collected      decimal.Decimal
	Pending        decimal.Decimal
	Overdue        decimal.Decimal
	CollectionRate float64
}

// LedgerService owns the obligation collection: listings with the derived
// overdue status applied, payment recording, amount sync and aggregates.
type LedgerService struct {
	obligations billing.ObligationRepository
	charges     billing.ChargeLineStore
	clock       billing.Clock
}

// NewLedgerService constructs a service.
func NewLedgerService(obligations billing.ObligationRepository, charges billing.ChargeLineStore, clock billing.Clock) (*LedgerService, error) {
	if obligations == nil {
		return nil, errors.New("ledger service: nil obligation repository")
	}
	if charges == nil {
		return nil, errors.New("ledger service: nil charge line store")
	}
	if clock == nil {
		return nil, errors.New("ledger service: nil clock")
	}
	return &LedgerService{obligations: obligations, charges: charges, clock: clock}, nil
}

// List returns obligations with their effective status in place of the
// stored one. Filtering on overdue matches the derived value; the derived
// status is never written back.
func (s *LedgerService) List(ctx context.Context, filter billing.ObligationFilter) ([]*billing.Obligation, error) {
	stored := filter
	stored.Statuses = storedStatuses(filter.Statuses)
	obligations, err := s.obligations.List(ctx, stored)
	if err != nil {
		return nil, err
	}
	today := s.clock.Now()
	var result []*billing.Obligation
	for _, obligation := range obligations {
		obligation.Status = obligation.EffectiveStatus(today)
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, obligation.Status) {
			continue
		}
		result = append(result, obligation)
	}
	return result, nil
}

// Get returns one obligation with its effective status applied.
func (s *LedgerService) Get(ctx context.Context, id string) (*billing.Obligation, error) {
	obligation, err := s.obligations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obligation == nil {
		return nil, billing.ErrObligationNotFound
	}
	obligation.Status = obligation.EffectiveStatus(s.clock.Now())
	return obligation, nil
}

// RecordPayment validates and applies a payment, generating a fresh receipt
// number. The store write carries the expected prior status; a concurrent
// writer surfaces as billing.ErrConflict and nothing is mutated.
func (s *LedgerService) RecordPayment(ctx context.Context, obligationID string, amount decimal.Decimal, method, notes string) (*billing.Obligation, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePayment(result, time.Since(start))
	}()

	obligation, err := s.obligations.GetByID(ctx, obligationID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if obligation == nil {
		result = metrics.ResultError
		return nil, billing.ErrObligationNotFound
	}

	expected := obligation.Status
	now := s.clock.Now()
	receipt := billing.NewReceiptNumber(now)
	if err := obligation.RecordPayment(amount, method, notes, receipt, now); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.obligations.UpdatePayment(ctx, obligation, expected); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return obligation, nil
}

// SyncAmountToChargeTotal aligns a not-yet-rendered obligation amount with
// the currently configured charge total before invoice generation. Latest
// configuration wins over historical snapshots.
func (s *LedgerService) SyncAmountToChargeTotal(ctx context.Context, obligation *billing.Obligation) error {
	if obligation == nil {
		return billing.ErrNilObligation
	}
	set, err := s.charges.Load(ctx)
	if err != nil {
		return err
	}
	if set == nil || len(set.Lines) == 0 {
		return nil
	}
	total := set.Total()
	if obligation.Amount.Equal(total) {
		return nil
	}
	now := s.clock.Now()
	if err := s.obligations.UpdateAmount(ctx, obligation.ID, total, now); err != nil {
		return err
	}
	obligation.Amount = total
	obligation.UpdatedAt = now.UTC()
	return nil
}

// Summary computes ledger aggregates over all obligations.
func (s *LedgerService) Summary(ctx context.Context) (LedgerSummary, error) {
	obligations, err := s.obligations.List(ctx, billing.ObligationFilter{})
	if err != nil {
		return LedgerSummary{}, err
	}
	today := s.clock.Now()
	summary := LedgerSummary{
		Collected: decimal.Zero,
		Pending:   decimal.Zero,
		Overdue:   decimal.Zero,
	}
	for _, obligation := range obligations {
		due := obligation.TotalDue()
		status := obligation.EffectiveStatus(today)
		if status == billing.StatusPaid {
			summary.Collected = summary.Collected.Add(due)
		} else {
			summary.Pending = summary.Pending.Add(due)
		}
		if status == billing.StatusOverdue {
			summary.Overdue = summary.Overdue.Add(due)
		}
	}
	denominator := summary.Collected.Add(summary.Pending)
	if denominator.IsPositive() {
		rate, _ := summary.Collected.Div(denominator).Float64()
		summary.CollectionRate = rate
	}
	return summary, nil
}

// storedStatuses maps a requested status filter onto storable values:
// overdue rows are stored as unpaid.
func storedStatuses(statuses []billing.Status) []billing.Status {
	if len(statuses) == 0 {
		return nil
	}
	seen := make(map[billing.Status]struct{}, len(statuses))
	var result []billing.Status
	for _, status := range statuses {
		if status == billing.StatusOverdue {
			status = billing.StatusUnpaid
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		result = append(result, status)
	}
	return result
}

func containsStatus(statuses []billing.Status, status billing.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
