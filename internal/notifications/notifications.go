// Package notifications triggers the backend's reminder generation and email delivery,
// on demand from the admin dashboard and periodically from the worker.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/models"
)

// ErrBusy is returned when a run is requested while another one is still going.
var ErrBusy = errors.New("notification run already in progress")

// Backend is the part of the API client this package drives.
type Backend interface {
	GenerateReminders(ctx context.Context) (*models.NotificationResult, error)
	ProcessPendingEmails(ctx context.Context) (*models.NotificationResult, error)
}

// History stores finished runs.
type History interface {
	Record(ctx context.Context, run *models.NotificationRun) error
	Recent(ctx context.Context, limit int) ([]models.NotificationRun, error)
}

// Summary is the outcome of one full run.
type Summary struct {
	Reminders *models.NotificationResult `json:"reminders,omitempty"`
	Emails    *models.NotificationResult `json:"emails,omitempty"`
}

// Service runs the notification triggers one at a time.
type Service struct {
	api     Backend
	history History
	running atomic.Bool
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a notification service.
func NewService(api Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, now: time.Now, logger: logger}
}

// SetHistory makes the service record every run. Without it runs are only logged.
func (s *Service) SetHistory(h History) {
	s.history = h
}

// Runs returns the most recent recorded runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]models.NotificationRun, error) {
	if s.history == nil {
		return []models.NotificationRun{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// record stores a run. A failure to record never fails the run itself.
func (s *Service) record(ctx context.Context, trigger string, started time.Time, results []*models.NotificationResult, runErr error) {
	if s.history == nil {
		return
	}
	run := &models.NotificationRun{Trigger: trigger, StartedAt: started, FinishedAt: s.now()}
	for _, r := range results {
		if r == nil {
			continue
		}
		run.Sent += r.Sent
		run.Failed += r.Failed
		run.Total += r.Total
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// The request context may already be cancelled once the backend call returned.
	if err := s.history.Record(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("record notification run failed", zap.String("trigger", trigger), zap.Error(err))
	}
}

func (s *Service) exclusive(fn func() error) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.running.Store(false)
	return fn()
}

// Reminders generates reminder notifications for upcoming events.
func (s *Service) Reminders(ctx context.Context) (*models.NotificationResult, error) {
	var res *models.NotificationResult
	started := s.now()
	err := s.exclusive(func() error {
		var err error
		res, err = s.api.GenerateReminders(ctx)
		s.record(ctx, models.RunTriggerReminders, started, []*models.NotificationResult{res}, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("reminders generated", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed), zap.Int("total", res.Total))
	return res, nil
}

// ProcessEmails sends the backend's queued notification emails.
func (s *Service) ProcessEmails(ctx context.Context) (*models.NotificationResult, error) {
	var res *models.NotificationResult
	started := s.now()
	err := s.exclusive(func() error {
		var err error
		res, err = s.api.ProcessPendingEmails(ctx)
		s.record(ctx, models.RunTriggerEmails, started, []*models.NotificationResult{res}, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pending emails processed", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed), zap.Int("total", res.Total))
	return res, nil
}

// RunOnce generates reminders and then delivers pending emails, so new reminders go
// out in the same run. Email delivery is attempted even when reminder generation fails.
func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary
	started := s.now()
	err := s.exclusive(func() error {
		var remErr, mailErr error
		sum.Reminders, remErr = s.api.GenerateReminders(ctx)
		sum.Emails, mailErr = s.api.ProcessPendingEmails(ctx)
		if remErr != nil {
			remErr = fmt.Errorf("generate reminders: %w", remErr)
		}
		if mailErr != nil {
			mailErr = fmt.Errorf("process emails: %w", mailErr)
		}
		err := errors.Join(remErr, mailErr)
		s.record(ctx, models.RunTriggerScheduled, started, []*models.NotificationResult{sum.Reminders, sum.Emails}, err)
		return err
	})
	return sum, err
}

// Runner calls RunOnce on a fixed interval.
type Runner struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewRunner creates a periodic runner. interval <= 0 disables it.
func NewRunner(svc *Service, interval time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{svc: svc, interval: interval, logger: logger}
}

// Run blocks until ctx is done, running once per interval.
func (r *Runner) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("periodic notifications disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("notification runner stopping")
			return
		case <-ticker.C:
			sum, err := r.svc.RunOnce(ctx)
			if err != nil {
				r.logger.Error("notification run failed", zap.Error(err))
				continue
			}
			r.logger.Info("notification run completed",
				zap.Int("reminders", sum.Reminders.Total),
				zap.Int("emails_sent", sum.Emails.Sent),
				zap.Int("emails_failed", sum.Emails.Failed),
			)
		}
	}
}
