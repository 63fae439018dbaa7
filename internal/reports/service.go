package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/export"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/pkg/queue"
	"github.com/helpinghands/console/pkg/storage"
)

// ErrUnavailable is returned for asynchronous exports when no job queue is configured.
var ErrUnavailable = errors.New("report archive is not configured")

// MetricsSource fetches the figures behind each report kind.
type MetricsSource interface {
	AdminMetrics(ctx context.Context) (*models.AdminMetrics, error)
	OrganizerMetrics(ctx context.Context, orgID int64) (*models.OrganizerMetrics, error)
	VolunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error)
}

// Store persists export history and issued certificates.
type Store interface {
	Create(ctx context.Context, rec *models.ExportRecord) error
	MarkCompleted(ctx context.Context, id uuid.UUID, filename, key string, size int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Get(ctx context.Context, id uuid.UUID) (*models.ExportRecord, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.ExportRecord, error)
	SaveCertificate(ctx context.Context, c *models.CertificateRecord) error
	GetCertificate(ctx context.Context, code string) (*models.CertificateRecord, error)
}

// Archive keeps finished files and hands out download links.
type Archive interface {
	PutReport(ctx context.Context, key, contentType string, data []byte) error
	ReportURL(ctx context.Context, key, filename string) (string, error)
	DeleteReport(ctx context.Context, key string) error
}

// Enqueuer schedules asynchronous exports.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// Request describes one report to produce.
type Request struct {
	Kind        string
	Format      string
	UserID      int64 // requester
	Email       string
	Role        string
	SubjectID   int64 // organization id, or the volunteer when not the requester
	SubjectName string
}

// Validate checks kind and format.
func (r Request) Validate() error {
	switch r.Kind {
	case export.KindAdmin, export.KindVolunteer:
	case export.KindOrganizer:
		if r.SubjectID == 0 {
			return fmt.Errorf("organizer report needs an organization")
		}
	default:
		return fmt.Errorf("unknown report kind %q", r.Kind)
	}
	if r.Format != models.FormatPDF && r.Format != models.FormatXLSX {
		return fmt.Errorf("unsupported export format %q", r.Format)
	}
	return nil
}

// Service builds reports, archives them and records the export history.
// store, archive and queue are optional; without them exports are download-only.
type Service struct {
	metrics MetricsSource
	store   Store
	archive Archive
	queue   Enqueuer
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a report service.
func NewService(metrics MetricsSource, store Store, archive Archive, q Enqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{metrics: metrics, store: store, archive: archive, queue: q, now: time.Now, logger: logger}
}

// Build fetches the metrics for req and lays them out as a report.
func (s *Service) Build(ctx context.Context, req Request) (export.Report, error) {
	now := s.now()
	switch req.Kind {
	case export.KindAdmin:
		m, err := s.metrics.AdminMetrics(ctx)
		if err != nil {
			return export.Report{}, err
		}
		return export.AdminReport(m, now), nil
	case export.KindOrganizer:
		m, err := s.metrics.OrganizerMetrics(ctx, req.SubjectID)
		if err != nil {
			return export.Report{}, err
		}
		return export.OrganizerReport(req.SubjectName, m, now), nil
	case export.KindVolunteer:
		subject := req.UserID
		if req.SubjectID != 0 {
			subject = req.SubjectID
		}
		m, err := s.metrics.VolunteerMetrics(ctx, subject)
		if err != nil {
			return export.Report{}, err
		}
		return export.VolunteerReport(req.SubjectName, m, now), nil
	}
	return export.Report{}, fmt.Errorf("unknown report kind %q", req.Kind)
}

// Export renders req for an immediate download. The file is archived afterwards when an
// archive is configured; archiving failures are logged and never fail the download.
func (s *Service) Export(ctx context.Context, req Request) (*export.File, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := s.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	file, err := export.Render(r, req.Format)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		rec := &models.ExportRecord{UserID: req.UserID, Kind: req.Kind, Format: req.Format, Filename: file.Name}
		if err := s.store.Create(ctx, rec); err != nil {
			s.logger.Warn("record export failed", zap.Int64("user_id", req.UserID), zap.Error(err))
			return file, nil
		}
		if err := s.Archive(ctx, rec, file); err != nil {
			s.logger.Warn("archive export failed", zap.String("export_id", rec.ID.String()), zap.Error(err))
		}
	}
	return file, nil
}

// Archive uploads file for rec and marks the record completed (or failed).
func (s *Service) Archive(ctx context.Context, rec *models.ExportRecord, file *export.File) error {
	key := ""
	if s.archive != nil {
		key = storage.ReportKey(rec.UserID, rec.ID.String(), file.Name)
		if err := s.archive.PutReport(ctx, key, file.ContentType, file.Data); err != nil {
			s.fail(ctx, rec.ID, "upload failed")
			return err
		}
	}
	if err := s.store.MarkCompleted(ctx, rec.ID, file.Name, key, int64(len(file.Data))); err != nil {
		// No record points at the upload, so nobody could ever download it.
		if key != "" {
			if derr := s.archive.DeleteReport(context.WithoutCancel(ctx), key); derr != nil {
				s.logger.Warn("delete orphaned report failed", zap.String("key", key), zap.Error(derr))
			}
		}
		return err
	}
	return nil
}

// Enqueue records a pending export and schedules it for the worker.
func (s *Service) Enqueue(ctx context.Context, req Request) (*models.ExportRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.store == nil || s.queue == nil || s.archive == nil {
		return nil, ErrUnavailable
	}
	rec := &models.ExportRecord{
		UserID:   req.UserID,
		Kind:     req.Kind,
		Format:   req.Format,
		Filename: export.Filename(reportLabel(req), req.Format, s.now()),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}
	err := s.queue.EnqueueExport(ctx, queue.ExportPayload{
		ExportID:    rec.ID,
		UserID:      req.UserID,
		Email:       req.Email,
		Role:        req.Role,
		Kind:        req.Kind,
		Format:      req.Format,
		SubjectID:   req.SubjectID,
		SubjectName: req.SubjectName,
	})
	if err != nil {
		s.fail(ctx, rec.ID, "could not schedule export")
		return nil, fmt.Errorf("enqueue export: %w", err)
	}
	return rec, nil
}

func reportLabel(req Request) string {
	if req.Kind == export.KindAdmin || req.SubjectName == "" {
		return req.Kind
	}
	return req.SubjectName
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.store.MarkFailed(ctx, id, reason); err != nil {
		s.logger.Warn("mark export failed", zap.String("export_id", id.String()), zap.Error(err))
	}
}

// History lists a user's exports, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.ExportRecord, error) {
	if s.store == nil {
		return []models.ExportRecord{}, nil
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// DownloadURL returns a presigned link to an archived export owned by userID.
// Admins may fetch any export.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, userID int64, admin bool) (string, *models.ExportRecord, error) {
	if s.store == nil || s.archive == nil {
		return "", nil, ErrUnavailable
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if rec.UserID != userID && !admin {
		return "", nil, ErrNotFound
	}
	if rec.Status != models.ExportStatusCompleted || rec.StorageKey == "" {
		return "", rec, nil
	}
	url, err := s.archive.ReportURL(ctx, rec.StorageKey, rec.Filename)
	if err != nil {
		return "", rec, err
	}
	return url, rec, nil
}

// Certificate renders c and records it so its code can later be verified.
func (s *Service) Certificate(ctx context.Context, c export.Certificate) (*export.File, error) {
	file, err := export.RenderCertificate(c)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		err := s.store.SaveCertificate(ctx, &models.CertificateRecord{
			Code:           c.Code(),
			UserID:         c.UserID,
			RecipientName:  c.Name,
			Hours:          c.Hours,
			EventsAttended: c.EventsAttended,
			IssuedOn:       c.IssuedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("save certificate: %w", err)
		}
	}
	return file, nil
}

// Verify looks up an issued certificate.
func (s *Service) Verify(ctx context.Context, code string) (*models.CertificateRecord, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}
	return s.store.GetCertificate(ctx, code)
}

func (s *Service) presignExpire() time.Duration {
	if a, ok := s.archive.(interface{ PresignExpire() time.Duration }); ok {
		return a.PresignExpire()
	}
	return 15 * time.Minute
}
