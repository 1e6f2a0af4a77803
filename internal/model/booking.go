package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.  A booking starts pending once its payment is
// confirmed by the provider webhook and moves forward through admin
// actions.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking is one paid, one-time appointment.  Service name and price are
// copied from the catalog at purchase time so later catalog edits do not
// rewrite history.  CheckoutSessionID is unique and makes webhook
// redelivery a no-op.
type Booking struct {
	ID                uint64          `json:"id"`
	UserID            *uint64         `json:"user_id,omitempty"`
	VehicleID         *uint64         `json:"vehicle_id,omitempty"`
	ServicePackageID  uint64          `json:"service_package_id"`
	ServiceName       string          `json:"service_name"`
	ServicePrice      decimal.Decimal `json:"service_price"`
	AddOnIDs          []uint64        `json:"add_on_ids"`
	AppointmentDate   string          `json:"appointment_date"` // YYYY-MM-DD
	AppointmentTime   string          `json:"appointment_time"` // HH:MM
	TotalPrice        decimal.Decimal `json:"total_price"`
	TotalDuration     int             `json:"total_duration"`
	Status            string          `json:"status"`
	CustomerName      string          `json:"customer_name"`
	CustomerEmail     string          `json:"customer_email"`
	CustomerPhone     string          `json:"customer_phone"`
	PaymentIntentID   string          `json:"payment_intent_id"`
	CheckoutSessionID string          `json:"checkout_session_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether an admin may move a booking from one
// status to another.  Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidBookingStatus reports whether s is one of the booking statuses.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}
