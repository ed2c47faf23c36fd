package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ChargeLine is one named component of the monthly maintenance total.
type ChargeLine struct {
	ID     string
	Label  string
	Amount decimal.Decimal
}

// ChargeLineSet is the ordered list of configured charge lines plus an
// optional manual total override. When the override is active it is
// authoritative and its delta against the natural sum has been folded into
// the adjustment line.
type ChargeLineSet struct {
	Lines       []ChargeLine
	ManualTotal decimal.Decimal
	HasOverride bool

	nextID int
}

// NewChargeLineSet builds a set from existing lines.
func NewChargeLineSet(lines []ChargeLine) *ChargeLineSet {
	set := &ChargeLineSet{Lines: append([]ChargeLine(nil), lines...)}
	set.nextID = len(lines) + 1
	return set
}

// DefaultChargeLines is the fallback breakdown used when nothing is configured.
func DefaultChargeLines() []ChargeLine {
	return []ChargeLine{
		{ID: "1", Label: "Maintenance Charges", Amount: decimal.NewFromInt(1000)},
		{ID: "2", Label: "Service Charges", Amount: decimal.NewFromInt(500)},
		{ID: "3", Label: "Sinking Fund", Amount: decimal.NewFromInt(200)},
	}
}

// PickAdjustmentLine selects the line that absorbs a manual total delta:
// the first line labelled "service charge" (case-insensitive, prefix match),
// else the second line, else the only line.
func PickAdjustmentLine(lines []ChargeLine) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line.Label)), "service charge") {
			return i
		}
	}
	if len(lines) >= 2 {
		return 1
	}
	return 0
}

// AddLine appends an empty line and returns it.
func (s *ChargeLineSet) AddLine() ChargeLine {
	line := ChargeLine{ID: s.newID(), Amount: decimal.Zero}
	s.Lines = append(s.Lines, line)
	return line
}

// RemoveLine deletes a line; the last remaining line may not be removed.
func (s *ChargeLineSet) RemoveLine(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrChargeLineNotFound
	}
	if len(s.Lines) == 1 {
		return ErrLastChargeLine
	}
	s.Lines = append(s.Lines[:idx], s.Lines[idx+1:]...)
	return nil
}

// UpdateLabel renames a line and clears any manual total override.
func (s *ChargeLineSet) UpdateLabel(id, label string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrChargeLineNotFound
	}
	s.Lines[idx].Label = label
	s.clearOverride()
	return nil
}

// UpdateAmount changes a line amount and clears any manual total override.
func (s *ChargeLineSet) UpdateAmount(id string, amount decimal.Decimal) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrChargeLineNotFound
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	s.Lines[idx].Amount = amount
	s.clearOverride()
	return nil
}

// Total returns the manual override when active, else the sum of all lines.
func (s *ChargeLineSet) Total() decimal.Decimal {
	if s.HasOverride {
		return s.ManualTotal
	}
	return s.naturalSum()
}

// SetTotal forces the effective total. The delta against the natural sum is
// applied to the adjustment line, clamped so that line never goes negative,
// and the override is activated.
func (s *ChargeLineSet) SetTotal(newTotal decimal.Decimal) error {
	if newTotal.IsNegative() {
		return ErrNegativeAmount
	}
	if len(s.Lines) == 0 {
		s.AddLine()
	}
	idx := PickAdjustmentLine(s.Lines)
	delta := newTotal.Sub(s.naturalSum())
	adjusted := s.Lines[idx].Amount.Add(delta)
	if adjusted.IsNegative() {
		adjusted = decimal.Zero
	}
	s.Lines[idx].Amount = adjusted
	s.ManualTotal = newTotal
	s.HasOverride = true
	return nil
}

func (s *ChargeLineSet) naturalSum() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range s.Lines {
		sum = sum.Add(line.Amount)
	}
	return sum
}

func (s *ChargeLineSet) clearOverride() {
	s.ManualTotal = decimal.Zero
	s.HasOverride = false
}

func (s *ChargeLineSet) indexOf(id string) int {
	for i, line := range s.Lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}

func (s *ChargeLineSet) newID() string {
	// Line ids only need to be unique within the set.
	for _, line := range s.Lines {
		if v, err := strconv.Atoi(line.ID); err == nil && v >= s.nextID {
			s.nextID = v + 1
		}
	}
	id := s.nextID
	s.nextID++
	return strconv.Itoa(id)
}
