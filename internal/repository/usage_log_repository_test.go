package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-booking/internal/model"
)

var checkInAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func expectMembership(mock sqlmock.Sqlmock, kind, status string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, status, user_id FROM subscriptions WHERE id = ? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "status", "user_id"}).AddRow(kind, status, 12))
}

func expectVehicleLock(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM vehicles WHERE id = ? FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
}

func TestCheckInInsertsInProgressLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscription_vehicles")).
		WithArgs(3, 9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	expectVehicleLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM self_service_usage_logs WHERE vehicle_id = ? AND status = 'in_progress'")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO self_service_usage_logs")).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	l := &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt, AttendantName: "Sam"}
	require.NoError(t, repo.CheckIn(context.Background(), l))
	assert.Equal(t, uint64(77), l.ID)
	assert.Equal(t, model.UsageInProgress, l.Status)
	assert.Nil(t, l.CheckOutTime)
	require.NotNil(t, l.UserID)
	assert.Equal(t, uint64(12), *l.UserID)
}

func TestCheckInRejectsUnlinkedVehicle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscription_vehicles")).
		WithArgs(3, 9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt})
	assert.ErrorIs(t, err, ErrVehicleNotLinked)
}

func TestCheckInRejectsVehicleAlreadyInBay(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscription_vehicles")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	expectVehicleLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM self_service_usage_logs WHERE vehicle_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt})
	assert.ErrorIs(t, err, ErrVehicleBusy)
}

// Two memberships sharing a vehicle must queue on the vehicle row and
// count open sessions with a locking read, not a stale snapshot.
func TestCheckInLocksVehicleAcrossMemberships(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscription_vehicles")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	expectVehicleLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE vehicle_id = ? AND status = 'in_progress' FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt})
	assert.ErrorIs(t, err, ErrVehicleBusy)
}

func TestCheckInUnknownVehicle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "active")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscription_vehicles")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM vehicles WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckInRejectsCancelledMembership(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectBegin()
	expectMembership(mock, model.KindSelfService, "canceled")
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), &model.UsageLog{SubscriptionID: 3, VehicleID: 9, CheckInTime: checkInAt})
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
}

func TestCloseRejectsLogThatIsNotInProgress(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)
	out := checkInAt.Add(40 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE self_service_usage_logs SET check_out_time = ?")).
		WithArgs(out, model.UsageCompleted, "Sam", 77).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM self_service_usage_logs WHERE id = ?")).
		WithArgs(77).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subscription_id", "user_id", "vehicle_id", "check_in_time",
			"check_out_time", "status", "attendant_name", "checkout_attendant_name", "notes"}).
			AddRow(77, 3, 12, 9, checkInAt, out, "completed", "Sam", "Sam", ""))

	err := repo.Close(context.Background(), 77, model.UsageCompleted, "Sam", out)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCloseUnknownLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUsageLogRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE self_service_usage_logs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM self_service_usage_logs WHERE id = ?")).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.Close(context.Background(), 404, model.UsageCompleted, "Sam", checkInAt)
	assert.ErrorIs(t, err, ErrNotFound)
}
