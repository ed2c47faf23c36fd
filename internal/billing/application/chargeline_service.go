package application

import (
	"context"
	"errors"

	billing "society-cloud/internal/billing/domain"

	"github.com/shopspring/decimal"
)

// ChargeLineService administers the configured charge line set that period
// generation and invoice rendering read from.
type ChargeLineService struct {
	store billing.ChargeLineStore
}

// NewChargeLineService constructs a service.
func NewChargeLineService(store billing.ChargeLineStore) (*ChargeLineService, error) {
	if store == nil {
		return nil, errors.New("charge line service: nil store")
	}
	return &ChargeLineService{store: store}, nil
}

// Current returns the configured set, falling back to the default breakdown.
func (s *ChargeLineService) Current(ctx context.Context) (*billing.ChargeLineSet, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if set == nil || len(set.Lines) == 0 {
		set = billing.NewChargeLineSet(billing.DefaultChargeLines())
	}
	return set, nil
}

// AddLine appends an empty line.
func (s *ChargeLineService) AddLine(ctx context.Context) (*billing.ChargeLineSet, error) {
	return s.mutate(ctx, func(set *billing.ChargeLineSet) error {
		set.AddLine()
		return nil
	})
}

// RemoveLine deletes a line; removing the last line is rejected.
func (s *ChargeLineService) RemoveLine(ctx context.Context, id string) (*billing.ChargeLineSet, error) {
	return s.mutate(ctx, func(set *billing.ChargeLineSet) error {
		return set.RemoveLine(id)
	})
}

// UpdateLine edits label and/or amount; any manual total override is cleared.
func (s *ChargeLineService) UpdateLine(ctx context.Context, id string, label *string, amount *decimal.Decimal) (*billing.ChargeLineSet, error) {
	return s.mutate(ctx, func(set *billing.ChargeLineSet) error {
		if label != nil {
			if err := set.UpdateLabel(id, *label); err != nil {
				return err
			}
		}
		if amount != nil {
			if err := set.UpdateAmount(id, *amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetTotal forces the effective total, folding the delta into the
// adjustment line.
func (s *ChargeLineService) SetTotal(ctx context.Context, total decimal.Decimal) (*billing.ChargeLineSet, error) {
	return s.mutate(ctx, func(set *billing.ChargeLineSet) error {
		return set.SetTotal(total)
	})
}

func (s *ChargeLineService) mutate(ctx context.Context, apply func(*billing.ChargeLineSet) error) (*billing.ChargeLineSet, error) {
	set, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := apply(set); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}
