package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

type memReviews struct{ rows []model.Review }

func (m *memReviews) Create(_ context.Context, rv *model.Review) error {
	for _, r := range m.rows {
		if r.BookingID == rv.BookingID {
			return repository.ErrConflict
		}
	}
	rv.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *rv)
	return nil
}

func (m *memReviews) ListRecent(_ context.Context, limit int) ([]model.Review, error) {
	if len(m.rows) > limit {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func TestSubmitReview(t *testing.T) {
	reviews := &memReviews{}
	svc := NewReviewService(reviews, seededBookings(model.BookingCompleted, model.BookingConfirmed))
	ctx := context.Background()

	rv, err := svc.Submit(ctx, 7, 1, 5, "  spotless  ")
	require.NoError(t, err)
	assert.Equal(t, "spotless", rv.Comment)
	assert.Equal(t, uint64(1), rv.ID)

	_, err = svc.Submit(ctx, 7, 1, 4, "again")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "one review per booking")

	_, err = svc.Submit(ctx, 7, 2, 4, "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "not completed yet")

	_, err = svc.Submit(ctx, 8, 1, 4, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "someone else's booking")

	_, err = svc.Submit(ctx, 7, 1, 6, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	recent, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
