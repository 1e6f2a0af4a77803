package model

import "time"

// Review is a customer's rating of a completed booking.  One review per
// booking.
type Review struct {
	ID        uint64    `json:"id"`
	BookingID uint64    `json:"booking_id"`
	UserID    uint64    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
