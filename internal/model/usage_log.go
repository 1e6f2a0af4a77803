package model

import "time"

// Usage log statuses for the self-service bay.
const (
	UsageInProgress = "in_progress"
	UsageCompleted  = "completed"
	UsageCancelled  = "cancelled"
)

// UsageLog is one check-in/check-out session at the self-service bay.  A
// log is in_progress exactly when CheckOutTime is nil.
type UsageLog struct {
	ID                    uint64     `json:"id"`
	SubscriptionID        uint64     `json:"subscription_id"`
	UserID                *uint64    `json:"user_id,omitempty"`
	VehicleID             uint64     `json:"vehicle_id"`
	CheckInTime           time.Time  `json:"check_in_time"`
	CheckOutTime          *time.Time `json:"check_out_time,omitempty"`
	Status                string     `json:"status"`
	AttendantName         string     `json:"attendant_name"`
	CheckoutAttendantName string     `json:"checkout_attendant_name,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	Duration              string     `json:"duration,omitempty"`
}
