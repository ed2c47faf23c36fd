package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	billing "society-cloud/internal/billing/domain"

	"github.com/shopspring/decimal"
)

const obligationColumns = `
	id, residence_id, flat_label, resident_name, month, year,
	amount, late_fee, due_date, paid_date, status, amount_paid,
	payment_method, receipt_number, notes, paid_in_full, created_at, updated_at`

// ObligationRepository persists billing obligations. The table carries a
// UNIQUE (residence_id, month, year) constraint so generation stays
// idempotent even under concurrent writers.
type ObligationRepository struct {
	db *sql.DB
}

// NewObligationRepository constructs a repository.
func NewObligationRepository(db *sql.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

// CreateBatch inserts obligations inside one transaction, skipping rows
// whose residence+period key already exists. Returns the created count.
func (r *ObligationRepository) CreateBatch(ctx context.Context, obligations []*billing.Obligation) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("obligation repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, obligation := range obligations {
		if obligation == nil {
			_ = tx.Rollback()
			return 0, billing.ErrNilObligation
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO maintenance_obligations (
	id, residence_id, flat_label, resident_name, month, year,
	amount, late_fee, due_date, status, amount_paid, paid_in_full,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (residence_id, month, year) DO NOTHING`,
			obligation.ID, obligation.ResidenceID, obligation.FlatLabel, obligation.ResidentName,
			obligation.Month, obligation.Year, obligation.Amount, obligation.LateFee,
			obligation.DueDate, obligation.Status, obligation.AmountPaid, obligation.PaidInFull,
			obligation.CreatedAt, obligation.UpdatedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		created += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

// ExistingResidenceIDs returns residences already billed for the period.
func (r *ObligationRepository) ExistingResidenceIDs(ctx context.Context, period billing.Period) (map[string]struct{}, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("obligation repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT residence_id
FROM maintenance_obligations
WHERE month = $1 AND year = $2`, period.Month, period.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID fetches one obligation.
func (r *ObligationRepository) GetByID(ctx context.Context, id string) (*billing.Obligation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("obligation repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+obligationColumns+`
FROM maintenance_obligations
WHERE id = $1
LIMIT 1`, id)
	return scanObligation(row)
}

// List returns obligations ordered by (year desc, month desc, flat asc).
func (r *ObligationRepository) List(ctx context.Context, filter billing.ObligationFilter) ([]*billing.Obligation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("obligation repo: nil db")
	}

	var conditions []string
	var args []any
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.Month != 0 {
		args = append(args, filter.Month)
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}

	query := `
SELECT ` + obligationColumns + `
FROM maintenance_obligations`
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY year DESC, month DESC, flat_label ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*billing.Obligation
	for rows.Next() {
		obligation, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		if obligation != nil {
			result = append(result, obligation)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePayment persists payment fields guarded by the expected prior
// status. A row that moved on concurrently returns billing.ErrConflict.
func (r *ObligationRepository) UpdatePayment(ctx context.Context, obligation *billing.Obligation, expected billing.Status) error {
	if r == nil || r.db == nil {
		return errors.New("obligation repo: nil db")
	}
	if obligation == nil {
		return billing.ErrNilObligation
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE maintenance_obligations
SET status = $1, amount_paid = $2, paid_date = $3, payment_method = $4,
	receipt_number = $5, notes = $6, paid_in_full = $7, updated_at = $8
WHERE id = $9 AND status = $10`,
		obligation.Status, obligation.AmountPaid, obligation.PaidDate, obligation.PaymentMethod,
		obligation.ReceiptNumber, obligation.Notes, obligation.PaidInFull, obligation.UpdatedAt,
		obligation.ID, expected,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, obligation.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return billing.ErrObligationNotFound
		}
		return billing.ErrConflict
	}
	return nil
}

// UpdateAmount syncs the stored base amount to the configured charge total.
func (r *ObligationRepository) UpdateAmount(ctx context.Context, id string, amount decimal.Decimal, updatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("obligation repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE maintenance_obligations
SET amount = $1, updated_at = $2
WHERE id = $3`, amount, updatedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrObligationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (*billing.Obligation, error) {
	var obligation billing.Obligation
	var paidDate sql.NullTime
	var method sql.NullString
	var receipt sql.NullString
	var notes sql.NullString
	err := row.Scan(
		&obligation.ID,
		&obligation.ResidenceID,
		&obligation.FlatLabel,
		&obligation.ResidentName,
		&obligation.Month,
		&obligation.Year,
		&obligation.Amount,
		&obligation.LateFee,
		&obligation.DueDate,
		&paidDate,
		&obligation.Status,
		&obligation.AmountPaid,
		&method,
		&receipt,
		&notes,
		&obligation.PaidInFull,
		&obligation.CreatedAt,
		&obligation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if paidDate.Valid {
		obligation.PaidDate = paidDate.Time.UTC()
	}
	if method.Valid {
		obligation.PaymentMethod = method.String
	}
	if receipt.Valid {
		obligation.ReceiptNumber = receipt.String
	}
	if notes.Valid {
		obligation.Notes = notes.String
	}
	obligation.DueDate = obligation.DueDate.UTC()
	obligation.CreatedAt = obligation.CreatedAt.UTC()
	obligation.UpdatedAt = obligation.UpdatedAt.UTC()
	return &obligation, nil
}
