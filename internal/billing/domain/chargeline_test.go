package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestChargeLineSet_TotalDefaults(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	if got := set.Total(); !got.Equal(decimal.NewFromInt(1700)) {
		t.Fatalf("expected 1700, got %s", got)
	}
}

func TestPickAdjustmentLine(t *testing.T) {
	byLabel := []ChargeLine{
		{ID: "1", Label: "Maintenance"},
		{ID: "2", Label: "Sinking Fund"},
		{ID: "3", Label: "Service Charges"},
	}
	if got := PickAdjustmentLine(byLabel); got != 2 {
		t.Fatalf("expected service charge line 2, got %d", got)
	}

	byPosition := []ChargeLine{
		{ID: "1", Label: "Maintenance"},
		{ID: "2", Label: "Sinking Fund"},
	}
	if got := PickAdjustmentLine(byPosition); got != 1 {
		t.Fatalf("expected second line, got %d", got)
	}

	single := []ChargeLine{{ID: "1", Label: "Maintenance"}}
	if got := PickAdjustmentLine(single); got != 0 {
		t.Fatalf("expected only line, got %d", got)
	}
}

func TestSetTotal_FoldsDeltaIntoAdjustmentLine(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	if err := set.SetTotal(decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	if !set.HasOverride {
		t.Fatalf("expected override active")
	}
	if got := set.Total(); !got.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected total 2000, got %s", got)
	}
	// Delta +300 lands on the Service Charges line.
	if got := set.Lines[1].Amount; !got.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected adjustment line 800, got %s", got)
	}
}

func TestSetTotal_ClampsAdjustmentAtZero(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	if err := set.SetTotal(decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	// Delta -700 would push Service Charges to -200; it clamps to zero while
	// the override total stays authoritative.
	if got := set.Lines[1].Amount; !got.IsZero() {
		t.Fatalf("expected clamped adjustment line, got %s", got)
	}
	if got := set.Total(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected override total 1000, got %s", got)
	}
}

func TestSetTotal_NegativeRejected(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	if err := set.SetTotal(decimal.NewFromInt(-1)); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestUpdateAmount_ClearsOverride(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	if err := set.SetTotal(decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	if err := set.UpdateAmount("1", decimal.NewFromInt(1200)); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	if set.HasOverride {
		t.Fatalf("expected override cleared")
	}
	if got := set.Total(); !got.Equal(decimal.NewFromInt(2200)) {
		t.Fatalf("expected natural sum 2200, got %s", got)
	}
}

func TestRemoveLine_LastLineRejected(t *testing.T) {
	set := NewChargeLineSet([]ChargeLine{{ID: "1", Label: "Maintenance", Amount: decimal.NewFromInt(1000)}})
	if err := set.RemoveLine("1"); err != ErrLastChargeLine {
		t.Fatalf("expected ErrLastChargeLine, got %v", err)
	}
	if err := set.RemoveLine("99"); err != ErrChargeLineNotFound {
		t.Fatalf("expected ErrChargeLineNotFound, got %v", err)
	}
}

func TestAddLine_UniqueIDs(t *testing.T) {
	set := NewChargeLineSet(DefaultChargeLines())
	added := set.AddLine()
	for _, line := range set.Lines[:len(set.Lines)-1] {
		if line.ID == added.ID {
			t.Fatalf("duplicate line id %s", added.ID)
		}
	}
}
