// Package queue defines message payloads exchanged over the message broker
// together with the publisher and consumer of the notifications queue.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// NotificationsQueue carries every email the service sends asynchronously.
const NotificationsQueue = "notifications.email"

// Notification kinds.
const (
	KindBookingConfirmation = "booking_confirmation"
	KindTipRequest          = "tip_request"
	KindMembershipWelcome   = "membership_welcome"
)

// NotificationEvent asks the consumer to send one email.  It embeds enough
// of the booking or membership to render the message without querying the
// primary database.
type NotificationEvent struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	To         string         `json:"to"`
	Name       string         `json:"name"`
	Booking    *model.Booking `json:"booking,omitempty"`
	Membership *Membership    `json:"membership,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Membership is the membership summary rendered in welcome emails.
type Membership struct {
	Kind         string     `json:"kind"`
	PlanName     string     `json:"plan_name"`
	BillingCycle string     `json:"billing_cycle"`
	Price        string     `json:"price"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
}

// NewNotification stamps a notification with an id and creation time.
func NewNotification(kind, to, name string) NotificationEvent {
	return NotificationEvent{ID: uuid.NewString(), Kind: kind, To: to, Name: name, CreatedAt: time.Now().UTC()}
}
