package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func paidBooking() *model.Booking {
	return &model.Booking{
		ServicePackageID:  1,
		ServiceName:       "Basic Wash",
		ServicePrice:      decimal.NewFromInt(20),
		AddOnIDs:          []uint64{2},
		AppointmentDate:   "2025-06-01",
		AppointmentTime:   "10:00",
		TotalPrice:        decimal.NewFromInt(30),
		TotalDuration:     30,
		Status:            model.BookingPending,
		CustomerEmail:     "ana@example.com",
		PaymentIntentID:   "pi_1",
		CheckoutSessionID: "cs_1",
	}
}

func bookingRows() *sqlmock.Rows {
	created := time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "user_id", "vehicle_id", "service_package_id", "service_name", "service_price",
		"add_on_ids", "appointment_date", "appointment_time", "total_price", "total_duration", "status",
		"customer_name", "customer_email", "customer_phone", "payment_intent_id", "checkout_session_id",
		"created_at", "updated_at"}).
		AddRow(41, nil, 7, 1, "Basic Wash", "20.00", []byte("[2]"), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			"10:00", "30.00", 30, "pending", "Ana", "ana@example.com", "", "pi_1", "cs_1", created, created)
}

func TestCreatePaidInsertsVehicleAndBookingInOneTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	b := paidBooking()
	v := &model.Vehicle{Year: 2020, Make: "Toyota", Model: "Corolla", BodyType: "sedan"}
	created, err := repo.CreatePaid(context.Background(), b, v)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(41), b.ID)
	require.NotNil(t, b.VehicleID)
	assert.Equal(t, uint64(7), *b.VehicleID)
}

func TestCreatePaidDuplicateSessionIsNoop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'cs_1'"})
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE checkout_session_id = ?")).
		WithArgs("cs_1").
		WillReturnRows(bookingRows())

	b := paidBooking()
	v := &model.Vehicle{Year: 2020, Make: "Toyota", Model: "Corolla", BodyType: "sedan"}
	created, err := repo.CreatePaid(context.Background(), b, v)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(41), b.ID)
	assert.Equal(t, []uint64{2}, b.AddOnIDs)
	assert.Equal(t, "2025-06-01", b.AppointmentDate)
	assert.True(t, b.TotalPrice.Equal(decimal.NewFromInt(30)))
}

func TestUpdateStatusConflictWhenRowMoved(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ? AND status = ?")).
		WithArgs("completed", 41, "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 41, "confirmed", "completed")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCountBySlot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT appointment_time, COUNT(*) FROM bookings")).
		WithArgs("2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"appointment_time", "n"}).AddRow("10:00", 2).AddRow("10:30", 1))

	got, err := repo.CountBySlot(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"10:00": 2, "10:30": 1}, got)
}
