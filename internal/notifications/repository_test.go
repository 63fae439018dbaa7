package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpinghands/console/internal/models"
)

func TestRepository_RecordAndRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRepository(mock)

	started := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	run := &models.NotificationRun{Trigger: models.RunTriggerEmails, Sent: 3, Failed: 1, Total: 4, StartedAt: started, FinishedAt: started.Add(time.Second)}
	mock.ExpectExec("INSERT INTO notification_runs").
		WithArgs(pgxmock.AnyArg(), "emails", 3, 1, 4, "", started, started.Add(time.Second)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Record(context.Background(), run))
	assert.NotEqual(t, uuid.Nil, run.ID)

	mock.ExpectQuery("SELECT (.+) FROM notification_runs").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "trigger", "sent", "failed", "total", "error", "started_at", "finished_at"}).
			AddRow(run.ID, "emails", 3, 1, 4, "", started, started.Add(time.Second)))
	runs, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, *run, runs[0])

	require.NoError(t, mock.ExpectationsWereMet())
}

type memoryHistory struct {
	runs []models.NotificationRun
	err  error
}

func (m *memoryHistory) Record(ctx context.Context, run *models.NotificationRun) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryHistory) Recent(ctx context.Context, limit int) ([]models.NotificationRun, error) {
	return m.runs, nil
}

func TestService_RecordsRuns(t *testing.T) {
	api := &fakeBackend{reminderErr: errors.New("backend down")}
	hist := &memoryHistory{}
	svc := NewService(api, nil)
	svc.SetHistory(hist)

	_, err := svc.ProcessEmails(context.Background())
	require.NoError(t, err)
	_, err = svc.RunOnce(context.Background())
	require.Error(t, err)

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunTriggerEmails, runs[0].Trigger)
	assert.Equal(t, 3, runs[0].Sent)
	assert.Equal(t, models.RunTriggerScheduled, runs[1].Trigger)
	assert.Equal(t, 4, runs[1].Total)
	assert.Contains(t, runs[1].Error, "backend down")
}

func TestService_HistoryFailureDoesNotFailRun(t *testing.T) {
	svc := NewService(&fakeBackend{}, nil)
	svc.SetHistory(&memoryHistory{err: errors.New("db down")})

	res, err := svc.Reminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)

	runs, err := NewService(&fakeBackend{}, nil).Runs(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
