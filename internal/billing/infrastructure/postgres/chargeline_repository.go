package postgres

import (
	"context"
	"database/sql"
	"errors"

	billing "society-cloud/internal/billing/domain"

	"github.com/shopspring/decimal"
)

// ChargeLineRepository persists the configured charge line set. Lines live
// in charge_lines ordered by position; the single-row charge_line_config
// table carries the optional manual total override.
type ChargeLineRepository struct {
	db *sql.DB
}

// NewChargeLineRepository constructs a repository.
func NewChargeLineRepository(db *sql.DB) *ChargeLineRepository {
	return &ChargeLineRepository{db: db}
}

// Load reads the configured set; returns nil when nothing is configured.
func (r *ChargeLineRepository) Load(ctx context.Context) (*billing.ChargeLineSet, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge line repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, label, amount
FROM charge_lines
ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []billing.ChargeLine
	for rows.Next() {
		var line billing.ChargeLine
		if err := rows.Scan(&line.ID, &line.Label, &line.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	set := billing.NewChargeLineSet(lines)
	var manualTotal decimal.NullDecimal
	err = r.db.QueryRowContext(ctx, `
SELECT manual_total
FROM charge_line_config
WHERE id = 1`).Scan(&manualTotal)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if manualTotal.Valid {
		set.ManualTotal = manualTotal.Decimal
		set.HasOverride = true
	}
	return set, nil
}

// Save replaces the stored set with the given one.
func (r *ChargeLineRepository) Save(ctx context.Context, set *billing.ChargeLineSet) error {
	if r == nil || r.db == nil {
		return errors.New("charge line repo: nil db")
	}
	if set == nil {
		return errors.New("charge line repo: nil set")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM charge_lines`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for position, line := range set.Lines {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO charge_lines (id, position, label, amount)
VALUES ($1,$2,$3,$4)`, line.ID, position, line.Label, line.Amount); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	var manualTotal any
	if set.HasOverride {
		manualTotal = set.ManualTotal
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO charge_line_config (id, manual_total)
VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET manual_total = EXCLUDED.manual_total`, manualTotal); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
