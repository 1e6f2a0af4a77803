package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// ReviewRepo stores customer reviews of completed bookings.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review.  A second review for the same booking yields
// ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (booking_id, user_id, rating, comment) VALUES (?,?,?,?)",
		rv.BookingID, rv.UserID, rv.Rating, rv.Comment)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListRecent returns the newest reviews for the public testimonials strip.
func (r *ReviewRepo) ListRecent(ctx context.Context, limit int) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, booking_id, user_id, rating, COALESCE(comment,''), created_at FROM reviews ORDER BY created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
