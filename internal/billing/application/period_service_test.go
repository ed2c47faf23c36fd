package application

import (
	"context"
	"errors"
	"testing"
	"time"

	billing "society-cloud/internal/billing/domain"
	"society-cloud/internal/billing/infrastructure/memory"
	registry "society-cloud/internal/registry/domain"

	"github.com/shopspring/decimal"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubResidences struct {
	roster []registry.Residence
	err    error
}

func (s stubResidences) ListActive(ctx context.Context) ([]registry.Residence, error) {
	_ = ctx
	return s.roster, s.err
}

func testRoster() []registry.Residence {
	return []registry.Residence{
		{ID: "res-1", Building: "A", Floor: "1", FlatLabel: "A-101", OwnerName: "R. Sharma", Active: true},
		{ID: "res-2", Building: "A", Floor: "1", FlatLabel: "A-102", OwnerName: "S. Patel", Active: true},
		{ID: "res-3", Building: "B", Floor: "2", FlatLabel: "B-201", OwnerName: "K. Rao", Active: true},
	}
}

func newPeriodService(t *testing.T, repo *memory.ObligationRepository, roster []registry.Residence) *PeriodService {
	t.Helper()
	clock := fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	service, err := NewPeriodService(repo, stubResidences{roster: roster}, memory.NewChargeLineStore(nil), clock)
	if err != nil {
		t.Fatalf("new period service: %v", err)
	}
	return service
}

func TestGenerate_CreatesObligationsForRoster(t *testing.T) {
	repo := memory.NewObligationRepository()
	service := newPeriodService(t, repo, testRoster())

	result, err := service.Generate(context.Background(), 3, 2026)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Created != 3 || result.Skipped != 0 {
		t.Fatalf("expected 3 created, got created=%d skipped=%d", result.Created, result.Skipped)
	}
	if !result.Amount.Equal(decimal.NewFromInt(1700)) {
		t.Fatalf("expected default charge total 1700, got %s", result.Amount)
	}

	obligations, err := repo.List(context.Background(), billing.ObligationFilter{Month: 3, Year: 2026})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(obligations) != 3 {
		t.Fatalf("expected 3 stored obligations, got %d", len(obligations))
	}
	for _, obligation := range obligations {
		if obligation.Status != billing.StatusUnpaid {
			t.Fatalf("expected unpaid, got %s", obligation.Status)
		}
		if !obligation.DueDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("expected due date March 5, got %v", obligation.DueDate)
		}
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	repo := memory.NewObligationRepository()
	service := newPeriodService(t, repo, testRoster())

	if _, err := service.Generate(context.Background(), 3, 2026); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	result, err := service.Generate(context.Background(), 3, 2026)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if result.Created != 0 || result.Skipped != 3 {
		t.Fatalf("expected idempotent rerun, got created=%d skipped=%d", result.Created, result.Skipped)
	}
	if !result.NothingToDo() {
		t.Fatalf("expected NothingToDo")
	}
}

func TestGenerate_OnlyUnbilledResidences(t *testing.T) {
	repo := memory.NewObligationRepository()
	service := newPeriodService(t, repo, testRoster()[:1])
	if _, err := service.Generate(context.Background(), 3, 2026); err != nil {
		t.Fatalf("seed generate: %v", err)
	}

	service = newPeriodService(t, repo, testRoster())
	result, err := service.Generate(context.Background(), 3, 2026)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Created != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 new obligations, got created=%d skipped=%d", result.Created, result.Skipped)
	}
}

func TestGenerate_InvalidPeriod(t *testing.T) {
	repo := memory.NewObligationRepository()
	service := newPeriodService(t, repo, testRoster())
	if _, err := service.Generate(context.Background(), 13, 2026); !errors.Is(err, billing.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestGenerate_EmptyRoster(t *testing.T) {
	repo := memory.NewObligationRepository()
	service := newPeriodService(t, repo, nil)
	if _, err := service.Generate(context.Background(), 3, 2026); !errors.Is(err, billing.ErrNoResidences) {
		t.Fatalf("expected ErrNoResidences, got %v", err)
	}
}

func TestGenerate_UsesConfiguredChargeTotal(t *testing.T) {
	repo := memory.NewObligationRepository()
	set := billing.NewChargeLineSet(billing.DefaultChargeLines())
	if err := set.SetTotal(decimal.NewFromInt(2100)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	store := memory.NewChargeLineStore(set)
	clock := fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	service, err := NewPeriodService(repo, stubResidences{roster: testRoster()}, store, clock)
	if err != nil {
		t.Fatalf("new period service: %v", err)
	}

	result, err := service.Generate(context.Background(), 3, 2026)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !result.Amount.Equal(decimal.NewFromInt(2100)) {
		t.Fatalf("expected override total 2100, got %s", result.Amount)
	}
}
