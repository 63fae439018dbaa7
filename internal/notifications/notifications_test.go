package notifications

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpinghands/console/internal/models"
)

type fakeBackend struct {
	reminderErr error
	emailErr    error
	reminders   atomic.Int32
	emails      atomic.Int32
	block       chan struct{}
}

func (f *fakeBackend) GenerateReminders(ctx context.Context) (*models.NotificationResult, error) {
	f.reminders.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.reminderErr != nil {
		return nil, f.reminderErr
	}
	return &models.NotificationResult{Sent: 2, Total: 2}, nil
}

func (f *fakeBackend) ProcessPendingEmails(ctx context.Context) (*models.NotificationResult, error) {
	f.emails.Add(1)
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	return &models.NotificationResult{Sent: 3, Failed: 1, Total: 4}, nil
}

func TestService_Triggers(t *testing.T) {
	api := &fakeBackend{}
	svc := NewService(api, nil)

	res, err := svc.Reminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)

	res, err = svc.ProcessEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NotificationResult{Sent: 3, Failed: 1, Total: 4}, *res)
}

func TestService_RunOnceContinuesAfterReminderFailure(t *testing.T) {
	api := &fakeBackend{reminderErr: errors.New("boom")}
	svc := NewService(api, nil)

	sum, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "generate reminders")
	assert.Nil(t, sum.Reminders)
	require.NotNil(t, sum.Emails)
	assert.Equal(t, int32(1), api.emails.Load())
}

func TestService_RejectsOverlappingRuns(t *testing.T) {
	api := &fakeBackend{block: make(chan struct{})}
	svc := NewService(api, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Reminders(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return api.reminders.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.ProcessEmails(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(api.block)
	assert.NoError(t, <-done)
}

func TestRunner_RunsOnInterval(t *testing.T) {
	api := &fakeBackend{}
	r := NewRunner(NewService(api, nil), 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	assert.Eventually(t, func() bool { return api.emails.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRunner_DisabledReturnsImmediately(t *testing.T) {
	r := NewRunner(NewService(&fakeBackend{}, nil), 0, nil)
	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled runner did not return")
	}
}
