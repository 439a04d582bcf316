package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository runs the read-only dashboard queries on a plain sqlx handle.
type Repository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Count returns the number of rows in table. Callers pass fixed table names
// only.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type requestRow struct {
	CreatedAt time.Time `db:"created_at"`
}

// RequestTimes returns the creation times of the asset requests made in
// [from, to).
func (r *Repository) RequestTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := r.db.Rebind(`SELECT created_at FROM asset_requests WHERE created_at >= ? AND created_at < ? ORDER BY created_at`)
	var rows []requestRow
	if err := r.db.SelectContext(ctx, &rows, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("select asset requests: %w", err)
	}
	out := make([]time.Time, len(rows))
	for i, row := range rows {
		out[i] = row.CreatedAt
	}
	return out, nil
}
