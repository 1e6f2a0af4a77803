package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	ListRecent(ctx context.Context, limit int) ([]model.Review, error)
}

// BookingGetter loads a single booking.
type BookingGetter interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
}

// ReviewService lets customers rate their completed washes.
type ReviewService struct {
	reviews  ReviewStore
	bookings BookingGetter
}

func NewReviewService(reviews ReviewStore, bookings BookingGetter) *ReviewService {
	return &ReviewService{reviews: reviews, bookings: bookings}
}

// Submit records a review of one of the user's completed bookings.  Each
// booking can be reviewed once.
func (s *ReviewService) Submit(ctx context.Context, userID, bookingID uint64, rating int, comment string) (model.Review, error) {
	if rating < 1 || rating > 5 {
		return model.Review{}, apperr.Validation("rating must be between 1 and 5")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Review{}, storeErr(err, "booking")
	}
	if b.UserID == nil || *b.UserID != userID {
		return model.Review{}, apperr.NotFound("booking not found")
	}
	if b.Status != model.BookingCompleted {
		return model.Review{}, apperr.Conflict("only completed bookings can be reviewed")
	}
	rv := model.Review{BookingID: bookingID, UserID: userID, Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := s.reviews.Create(ctx, &rv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Review{}, apperr.Conflict("booking already reviewed")
		}
		return model.Review{}, storeErr(err, "review")
	}
	return rv, nil
}

// Recent returns the newest reviews.
func (s *ReviewService) Recent(ctx context.Context, limit int) ([]model.Review, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	out, err := s.reviews.ListRecent(ctx, limit)
	if err != nil {
		return nil, storeErr(err, "reviews")
	}
	if out == nil {
		out = []model.Review{}
	}
	return out, nil
}
