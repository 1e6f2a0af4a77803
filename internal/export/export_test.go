package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/carwash-booking/internal/model"
)

func sample() []model.Booking {
	return []model.Booking{
		{ID: 1, AppointmentDate: "2025-06-01", AppointmentTime: "10:00", CustomerName: "Zoë Marchand",
			CustomerEmail: "zoe@example.com", ServiceName: "Basic Wash", Status: model.BookingConfirmed,
			TotalPrice: decimal.RequireFromString("30.00")},
		{ID: 2, AppointmentDate: "2025-06-01", AppointmentTime: "10:30", CustomerName: "Ana Lima",
			CustomerEmail: "ana@example.com", ServiceName: "Full Detail", Status: model.BookingPending,
			TotalPrice: decimal.RequireFromString("89.5")},
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, "Bookings 2025-06-01", sample()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatExcel, "", sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "Zoë Marchand", rows[1][3])
	assert.Equal(t, "89.5", rows[2][8])
}

func TestUnsupportedFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "csv", "", nil))
	assert.Equal(t, "bookings-2025-06-01.pdf", FileName(FormatPDF, "2025-06-01"))
	assert.Equal(t, "bookings.xlsx", FileName(FormatExcel, ""))
}
