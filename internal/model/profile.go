package model

import "time"

// Roles stored in profiles.role.  STAFF runs the self-service bay; ADMIN
// additionally manages the catalog, bookings and broadcasts.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
)

// Profile represents an account row in the `profiles` table.  Customers,
// bay attendants and administrators share the table and are told apart by
// Role.  Subscribed marks consent to broadcast newsletters.
type Profile struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	Subscribed   bool      `json:"subscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
