package reports

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpinghands/console/internal/models"
)

// ErrNotFound is returned when an export record or certificate does not exist.
var ErrNotFound = errors.New("not found")

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository handles export_records and certificates persistence.
type Repository struct {
	db DB
}

// NewRepository creates a reports repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const exportColumns = `id, user_id, kind, format, filename, storage_key, size_bytes, status, error, created_at, updated_at`

// Create inserts a pending export record and fills in its timestamps.
func (r *Repository) Create(ctx context.Context, rec *models.ExportRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = models.ExportStatusPending
	}
	const q = `INSERT INTO export_records (id, user_id, kind, format, filename, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, q, rec.ID, rec.UserID, rec.Kind, rec.Format, rec.Filename, rec.Status).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// MarkCompleted records where the finished file was archived.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, filename, key string, size int64) error {
	const q = `UPDATE export_records
		SET status = 'completed', filename = $2, storage_key = $3, size_bytes = $4, error = '', updated_at = NOW()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, filename, key, size)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed stores the failure reason shown in the export history.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE export_records SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one export record.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.ExportRecord, error) {
	q := `SELECT ` + exportColumns + ` FROM export_records WHERE id = $1`
	rec, err := scanExport(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListByUser returns a user's most recent exports, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + exportColumns + ` FROM export_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ExportRecord{}
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func scanExport(row pgx.Row) (*models.ExportRecord, error) {
	var rec models.ExportRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Format, &rec.Filename, &rec.StorageKey,
		&rec.SizeBytes, &rec.Status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveCertificate stores an issued certificate. Reissuing the same certificate keeps the first row.
func (r *Repository) SaveCertificate(ctx context.Context, c *models.CertificateRecord) error {
	const q = `INSERT INTO certificates (code, user_id, recipient_name, hours, events_attended, issued_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING`
	_, err := r.db.Exec(ctx, q, c.Code, c.UserID, c.RecipientName, c.Hours, c.EventsAttended, c.IssuedOn)
	return err
}

// GetCertificate looks a certificate up by its verification code.
func (r *Repository) GetCertificate(ctx context.Context, code string) (*models.CertificateRecord, error) {
	const q = `SELECT code, user_id, recipient_name, hours, events_attended, issued_on, created_at
		FROM certificates WHERE code = $1`
	var c models.CertificateRecord
	err := r.db.QueryRow(ctx, q, code).Scan(&c.Code, &c.UserID, &c.RecipientName, &c.Hours, &c.EventsAttended, &c.IssuedOn, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
