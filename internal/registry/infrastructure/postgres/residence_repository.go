package postgres

import (
	"context"
	"database/sql"
	"errors"

	registry "society-cloud/internal/registry/domain"
)

// ResidenceRepository reads the residence roster.
type ResidenceRepository struct {
	db *sql.DB
}

// NewResidenceRepository constructs a repository.
func NewResidenceRepository(db *sql.DB) *ResidenceRepository {
	return &ResidenceRepository{db: db}
}

// ListActive returns all active residences ordered by flat label.
func (r *ResidenceRepository) ListActive(ctx context.Context) ([]registry.Residence, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("residence repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, building, floor, flat_label, owner_name, phone, active
FROM residences
WHERE active = TRUE
ORDER BY flat_label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []registry.Residence
	for rows.Next() {
		var res registry.Residence
		if err := rows.Scan(&res.ID, &res.Building, &res.Floor, &res.FlatLabel, &res.OwnerName, &res.Phone, &res.Active); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get fetches a single residence.
func (r *ResidenceRepository) Get(ctx context.Context, id string) (*registry.Residence, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("residence repo: nil db")
	}
	if id == "" {
		return nil, registry.ErrEmptyResidenceID
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, building, floor, flat_label, owner_name, phone, active
FROM residences
WHERE id = $1
LIMIT 1`, id)
	var res registry.Residence
	err := row.Scan(&res.ID, &res.Building, &res.Floor, &res.FlatLabel, &res.OwnerName, &res.Phone, &res.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}
