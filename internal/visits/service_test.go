package visits

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

const testOrg = "org-1"

var testNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, log *EventLog) (*Service, *directory.InMemoryRepository) {
	t.Helper()
	repo := directory.NewInMemoryRepository()
	service := NewService(repo, log, nil, logging.Default())
	service.now = func() time.Time { return testNow }
	return service, repo
}

func seedDoctor(t *testing.T, repo *directory.InMemoryRepository) *directory.Doctor {
	t.Helper()
	created, err := repo.CreateDoctor(context.Background(), testOrg, &directory.Doctor{
		FirstName: "Anna",
		LastName:  "Rossi",
		Notes:     "nota",
	})
	require.NoError(t, err)
	return created
}

func TestMarkVisitedToday(t *testing.T) {
	service, repo := newTestService(t, nil)
	created := seedDoctor(t, repo)

	doctor, err := service.MarkVisitedToday(context.Background(), testOrg, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", doctor.LastVisit)
	// Merge semantics: everything else is untouched.
	assert.Equal(t, "nota", doctor.Notes)
	assert.Equal(t, "", doctor.AppointmentDate)
}

func TestMarkVisitedTodayNotFound(t *testing.T) {
	service, _ := newTestService(t, nil)

	_, err := service.MarkVisitedToday(context.Background(), testOrg, "missing")
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}

func TestMarkVisitedTodayLogsEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service, repo := newTestService(t, NewEventLog(db))
	created := seedDoctor(t, repo)

	mock.ExpectExec("INSERT INTO visit_events").
		WithArgs(sqlmock.AnyArg(), string(EventVisitCompleted), testOrg, created.ID, "2026-03-15", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = service.MarkVisitedToday(context.Background(), testOrg, created.ID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkVisitedTodaySurvivesLogFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service, repo := newTestService(t, NewEventLog(db))
	created := seedDoctor(t, repo)

	mock.ExpectExec("INSERT INTO visit_events").
		WillReturnError(assert.AnError)

	doctor, err := service.MarkVisitedToday(context.Background(), testOrg, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", doctor.LastVisit)
}

func TestHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service, repo := newTestService(t, NewEventLog(db))
	created := seedDoctor(t, repo)

	rows := sqlmock.NewRows([]string{"id", "event_type", "org_id", "doctor_id", "visit_date", "created_at"}).
		AddRow("e2", string(EventVisitCompleted), testOrg, created.ID, "2026-03-15", testNow).
		AddRow("e1", string(EventVisitCompleted), testOrg, created.ID, "2026-02-10", testNow.AddDate(0, -1, 0))
	mock.ExpectQuery("SELECT (.+) FROM visit_events").
		WithArgs(testOrg, created.ID, 100).
		WillReturnRows(rows)

	events, err := service.History(context.Background(), testOrg, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2026-03-15", events[0].VisitDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryUnknownDoctor(t *testing.T) {
	service, _ := newTestService(t, nil)

	_, err := service.History(context.Background(), testOrg, "missing", 10)
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}

func TestHistoryNilLogReturnsEmpty(t *testing.T) {
	service, repo := newTestService(t, nil)
	created := seedDoctor(t, repo)

	events, err := service.History(context.Background(), testOrg, created.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

type recordingInvalidator struct {
	orgs []string
}

func (ri *recordingInvalidator) Invalidate(_ context.Context, orgID string) {
	ri.orgs = append(ri.orgs, orgID)
}

func TestMarkVisitedTodayInvalidatesSnapshot(t *testing.T) {
	repo := directory.NewInMemoryRepository()
	inv := &recordingInvalidator{}
	service := NewService(repo, nil, inv, logging.Default())
	service.now = func() time.Time { return testNow }
	created := seedDoctor(t, repo)

	_, err := service.MarkVisitedToday(context.Background(), testOrg, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{testOrg}, inv.orgs)

	_, err = service.MarkVisitedToday(context.Background(), testOrg, "missing")
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
	assert.Len(t, inv.orgs, 1)
}
