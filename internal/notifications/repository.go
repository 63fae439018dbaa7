package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpinghands/console/internal/models"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository handles notification_runs persistence.
type Repository struct {
	db DB
}

// NewRepository creates a notification run repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Record inserts a finished run.
func (r *Repository) Record(ctx context.Context, run *models.NotificationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	const q = `INSERT INTO notification_runs (id, trigger, sent, failed, total, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, q, run.ID, run.Trigger, run.Sent, run.Failed, run.Total, run.Error, run.StartedAt, run.FinishedAt)
	return err
}

// Recent returns the latest runs, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.NotificationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, trigger, sent, failed, total, error, started_at, finished_at
		FROM notification_runs
		ORDER BY started_at DESC
		LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.NotificationRun{}
	for rows.Next() {
		var run models.NotificationRun
		if err := rows.Scan(&run.ID, &run.Trigger, &run.Sent, &run.Failed, &run.Total, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}
