package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

// Fixed-width UTC layout so that stored timestamps compare lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// VisitRepository handles database operations for page visits
type VisitRepository struct {
	db *DB
}

func NewVisitRepository(db *DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) RecordVisit(ctx context.Context, visit usage.Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO visits (id, user_name, user_email, path, product, language, update_type, page, visited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, visit.ID, visit.UserName, visit.UserEmail, visit.Path, visit.Product, visit.Language,
		visit.UpdateType, visit.Page, visit.Timestamp.UTC().Format(timestampLayout))

	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	return nil
}

func (r *VisitRepository) ListVisits(ctx context.Context, start, end time.Time) ([]usage.Visit, error) {
	var conditions []string
	var args []any

	if !start.IsZero() {
		conditions = append(conditions, "visited_at >= ?")
		args = append(args, start.UTC().Format(timestampLayout))
	}
	if !end.IsZero() {
		conditions = append(conditions, "visited_at < ?")
		args = append(args, end.UTC().Format(timestampLayout))
	}

	query := `SELECT id, user_name, user_email, path, product, language, update_type, page, visited_at FROM visits`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY visited_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []usage.Visit
	for rows.Next() {
		var v usage.Visit
		var visitedAt string

		if err := rows.Scan(&v.ID, &v.UserName, &v.UserEmail, &v.Path, &v.Product, &v.Language,
			&v.UpdateType, &v.Page, &visitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}

		v.Timestamp, err = time.Parse(timestampLayout, visitedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse visit timestamp %q: %w", visitedAt, err)
		}

		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}

	return visits, nil
}
