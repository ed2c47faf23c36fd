package application

import (
	"context"
	"errors"
	"time"

	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/observability/metrics"
	registry "society-cloud/internal/registry/domain"

	"github.com/shopspring/decimal"
)

// ResidenceSource supplies the residence roster. The roster itself is
// maintained outside this subsystem; generation only reads it.
type ResidenceSource interface {
	ListActive(ctx context.Context) ([]registry.Residence, error)
}

// GenerateResult reports one generation run.
type GenerateResult struct {
	Period  billing.Period
	Created int
	Skipped int
	Amount  decimal.Decimal
}

// NothingToDo reports whether every residence was already billed.
func (r GenerateResult) NothingToDo() bool {
	return r.Created == 0
}

// PeriodService produces the monthly obligations for every residence not yet
// billed for the period. Safe to invoke repeatedly: the residence+period key
// is unique both here and in the store.
type PeriodService struct {
	obligations billing.ObligationRepository
	residences  ResidenceSource
	charges     billing.ChargeLineStore
	clock       billing.Clock
}

// NewPeriodService constructs a service.
func NewPeriodService(obligations billing.ObligationRepository, residences ResidenceSource, charges billing.ChargeLineStore, clock billing.Clock) (*PeriodService, error) {
	if obligations == nil {
		return nil, errors.New("period service: nil obligation repository")
	}
	if residences == nil {
		return nil, errors.New("period service: nil residence source")
	}
	if charges == nil {
		return nil, errors.New("period service: nil charge line store")
	}
	if clock == nil {
		return nil, errors.New("period service: nil clock")
	}
	return &PeriodService{obligations: obligations, residences: residences, charges: charges, clock: clock}, nil
}

// Generate creates one obligation per residence without one for the period,
// using the currently configured charge total and the day-5 due date rule.
func (s *PeriodService) Generate(ctx context.Context, month, year int) (GenerateResult, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePeriodGenerate(result, time.Since(start))
	}()

	period, err := billing.NewPeriod(month, year)
	if err != nil {
		result = metrics.ResultError
		return GenerateResult{}, err
	}

	roster, err := s.residences.ListActive(ctx)
	if err != nil {
		result = metrics.ResultError
		return GenerateResult{}, err
	}
	if len(roster) == 0 {
		result = metrics.ResultError
		return GenerateResult{}, billing.ErrNoResidences
	}

	total, err := s.currentChargeTotal(ctx)
	if err != nil {
		result = metrics.ResultError
		return GenerateResult{}, err
	}

	existing, err := s.obligations.ExistingResidenceIDs(ctx, period)
	if err != nil {
		result = metrics.ResultError
		return GenerateResult{}, err
	}

	now := s.clock.Now()
	var pending []*billing.Obligation
	for _, residence := range roster {
		if _, billed := existing[residence.ID]; billed {
			continue
		}
		obligation, err := billing.NewObligation(residence.ID, residence.FlatLabel, residence.OwnerName, period, total, now)
		if err != nil {
			result = metrics.ResultError
			return GenerateResult{}, err
		}
		pending = append(pending, obligation)
	}

	created := 0
	if len(pending) > 0 {
		// The store enforces the residence+period unique key as well, so a
		// concurrent generation run cannot duplicate obligations.
		created, err = s.obligations.CreateBatch(ctx, pending)
		if err != nil {
			result = metrics.ResultError
			return GenerateResult{}, err
		}
	}
	metrics.AddObligationsGenerated(created)

	return GenerateResult{
		Period:  period,
		Created: created,
		Skipped: len(roster) - created,
		Amount:  total,
	}, nil
}

func (s *PeriodService) currentChargeTotal(ctx context.Context) (decimal.Decimal, error) {
	set, err := s.charges.Load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if set == nil || len(set.Lines) == 0 {
		set = billing.NewChargeLineSet(billing.DefaultChargeLines())
	}
	return set.Total(), nil
}
