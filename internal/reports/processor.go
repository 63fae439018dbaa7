package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/export"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/pkg/queue"
)

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// Notifier delivers a realtime event to a room on any server instance.
type Notifier interface {
	Notify(room, event string, payload interface{}) error
}

// TokenIssuer mints a bearer token so the worker can call the backend as the requester.
type TokenIssuer func(userID int64, email, role string) (string, error)

// ExportReady is the payload of realtime.EventExportReady.
type ExportReady struct {
	ExportID string `json:"export_id"`
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Processor renders queued exports: fetch metrics, render, upload to S3, update the record.
type Processor struct {
	svc     *Service
	jobs    JobSource
	issue   TokenIssuer
	notify  Notifier
	backoff time.Duration
	poll    time.Duration
	logger  *zap.Logger
}

// NewProcessor creates an export processor. notify may be nil.
func NewProcessor(svc *Service, jobs JobSource, issue TokenIssuer, notify Notifier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		svc:     svc,
		jobs:    jobs,
		issue:   issue,
		notify:  notify,
		backoff: queue.RetryBackoff,
		poll:    5 * time.Second,
		logger:  logger,
	}
}

// permanentError marks failures that a retry cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) || errors.Is(err, export.ErrGeneration) {
		return true
	}
	status := apiclient.StatusCode(err)
	return status >= 400 && status < 500
}

// Process executes one export job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeExport {
		return &permanentError{fmt.Errorf("unknown job type: %s", job.Type)}
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return &permanentError{fmt.Errorf("unmarshal payload: %w", err)}
	}

	rec, err := p.svc.store.Get(ctx, payload.ExportID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &permanentError{fmt.Errorf("export record not found: %s", payload.ExportID)}
		}
		return err
	}
	if rec.Status == models.ExportStatusCompleted {
		p.logger.Info("export already completed", zap.String("export_id", rec.ID.String()))
		return nil
	}

	if p.issue != nil {
		token, err := p.issue(payload.UserID, payload.Email, payload.Role)
		if err != nil {
			return &permanentError{fmt.Errorf("issue token: %w", err)}
		}
		ctx = apiclient.WithToken(ctx, token)
	}

	req := Request{
		Kind:        payload.Kind,
		Format:      payload.Format,
		UserID:      payload.UserID,
		Email:       payload.Email,
		Role:        payload.Role,
		SubjectID:   payload.SubjectID,
		SubjectName: payload.SubjectName,
	}
	if err := req.Validate(); err != nil {
		return &permanentError{err}
	}
	r, err := p.svc.Build(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}
	file, err := export.Render(r, req.Format)
	if err != nil {
		return err
	}
	if err := p.svc.Archive(ctx, rec, file); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	p.logger.Info("export completed", zap.String("export_id", rec.ID.String()), zap.String("filename", file.Name), zap.Int("size", len(file.Data)))
	p.publish(payload.UserID, ExportReady{ExportID: rec.ID.String(), Status: models.ExportStatusCompleted, Filename: file.Name})
	return nil
}

// Handle processes job and applies the retry policy: transient failures are re-queued
// until the queue gives up, permanent ones fail the export at once.
func (p *Processor) Handle(ctx context.Context, job *queue.Job) {
	err := p.Process(ctx, job)
	if err == nil {
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))

	if !isPermanent(err) {
		dlq, reErr := p.jobs.Retry(ctx, job)
		if reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
		if !dlq {
			p.sleep(ctx)
			return
		}
	}

	var payload queue.ExportPayload
	if json.Unmarshal(job.Payload, &payload) != nil || payload.ExportID == uuid.Nil {
		return
	}
	msg := apiclient.UserMessage(err)
	if errors.Is(err, export.ErrGeneration) {
		msg = export.ErrGeneration.Error()
	}
	p.svc.fail(ctx, payload.ExportID, msg)
	p.publish(payload.UserID, ExportReady{ExportID: payload.ExportID.String(), Status: models.ExportStatusFailed, Error: msg})
}

func (p *Processor) publish(userID int64, ev ExportReady) {
	if p.notify == nil {
		return
	}
	if err := p.notify.Notify(realtime.UserRoom(userID), realtime.EventExportReady, ev); err != nil {
		p.logger.Warn("export notification failed", zap.String("export_id", ev.ExportID), zap.Error(err))
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, p.poll)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		p.Handle(ctx, job)
	}
}
