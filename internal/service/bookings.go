package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/queue"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

// BookingStore is the admin and customer read/write surface of bookings.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string) error
}

// BookingService lists bookings and applies admin status changes.
type BookingService struct {
	store    BookingStore
	notifier Notifier
	feed     ChangePublisher
	log      *zap.Logger
}

func NewBookingService(store BookingStore, notifier Notifier, feed ChangePublisher, log *zap.Logger) *BookingService {
	return &BookingService{store: store, notifier: notifier, feed: feed, log: log}
}

// List returns bookings matching f.
func (s *BookingService) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	if f.Status != "" && !model.ValidBookingStatus(f.Status) {
		return nil, apperr.Validationf("unknown status %q", f.Status)
	}
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "bookings")
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// Get fetches one booking.
func (s *BookingService) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	return b, storeErr(err, "booking")
}

// SetStatus moves a booking to a new status.  Completing a booking sends
// the customer a tip request.
func (s *BookingService) SetStatus(ctx context.Context, id uint64, to string) (model.Booking, error) {
	if !model.ValidBookingStatus(to) {
		return model.Booking{}, apperr.Validationf("unknown status %q", to)
	}
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, storeErr(err, "booking")
	}
	if b.Status == to {
		return b, nil
	}
	if !model.CanTransition(b.Status, to) {
		return model.Booking{}, apperr.Conflict("cannot move a " + b.Status + " booking to " + to)
	}
	if err := s.store.UpdateStatus(ctx, id, b.Status, to); err != nil {
		return model.Booking{}, storeErr(err, "booking")
	}
	b.Status = to
	s.log.Info("booking status changed", zap.Uint64("booking_id", id), zap.String("status", to))

	if s.feed != nil {
		if err := s.feed.Publish(ctx, OpUpdate, b); err != nil {
			s.log.Warn("booking feed publish failed", zap.Error(err))
		}
	}
	if to == model.BookingCompleted && b.CustomerEmail != "" {
		if err := s.notify(ctx, b); err != nil {
			s.log.Error("tip request not sent", zap.Uint64("booking_id", id), zap.Error(err))
		}
	}
	return b, nil
}

// RequestTip sends the tip request email for a booking on demand.
func (s *BookingService) RequestTip(ctx context.Context, id uint64) error {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "booking")
	}
	if b.Status == model.BookingCancelled || b.Status == model.BookingPending {
		return apperr.Conflict("tip requests are only sent for confirmed or completed bookings")
	}
	if b.CustomerEmail == "" {
		return apperr.Validation("booking has no customer email")
	}
	if err := s.notify(ctx, b); err != nil {
		return apperr.External("could not send tip request", err)
	}
	return nil
}

func (s *BookingService) notify(ctx context.Context, b model.Booking) error {
	n := queue.NewNotification(queue.KindTipRequest, b.CustomerEmail, b.CustomerName)
	n.Booking = &b
	return s.notifier.Notify(ctx, n)
}
