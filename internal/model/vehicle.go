package model

import "time"

// Vehicle is a customer car.  It is created when a paid booking is
// reconciled or when a vehicle is attached to a membership.  UserID is nil
// for guest bookings.
type Vehicle struct {
	ID            uint64    `json:"id"`
	UserID        *uint64   `json:"user_id,omitempty"`
	Year          int       `json:"year" validate:"required,min=1950,max=2100"`
	Make          string    `json:"make" validate:"required,max=80"`
	Model         string    `json:"model" validate:"required,max=80"`
	Trim          string    `json:"trim,omitempty" validate:"max=80"`
	BodyType      string    `json:"body_type" validate:"required,max=40"`
	ExteriorColor string    `json:"exterior_color,omitempty" validate:"max=40"`
	InteriorColor string    `json:"interior_color,omitempty" validate:"max=40"`
	LicensePlate  string    `json:"license_plate,omitempty" validate:"max=20"`
	CreatedAt     time.Time `json:"created_at"`
}
