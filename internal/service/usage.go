package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

// UsageStore persists self-service bay sessions.
type UsageStore interface {
	CheckIn(ctx context.Context, l *model.UsageLog) error
	Close(ctx context.Context, id uint64, status, attendant string, at time.Time) error
	GetByID(ctx context.Context, id uint64) (model.UsageLog, error)
	ListBySubscription(ctx context.Context, subscriptionID uint64, limit int) ([]model.UsageLog, error)
	ListInProgress(ctx context.Context) ([]model.UsageLog, error)
}

// LinkedVehicles lists the vehicles attached to a membership.
type LinkedVehicles interface {
	ListBySubscription(ctx context.Context, subscriptionID uint64) ([]model.Vehicle, error)
}

// UsageTracker runs the attendant check-in and check-out workflow of the
// self-service bay.
type UsageTracker struct {
	store    UsageStore
	vehicles LinkedVehicles
	now      func() time.Time
	log      *zap.Logger
}

func NewUsageTracker(store UsageStore, vehicles LinkedVehicles, log *zap.Logger) *UsageTracker {
	return &UsageTracker{store: store, vehicles: vehicles, now: time.Now, log: log}
}

func usageErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrVehicleNotLinked):
		return apperr.Validation("vehicle is not registered on this membership")
	case errors.Is(err, repository.ErrVehicleBusy):
		return apperr.Conflict("vehicle is already checked in")
	case errors.Is(err, repository.ErrSubscriptionInactive):
		return apperr.Conflict("membership is not an active self-service membership")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("session is not in progress")
	}
	return storeErr(err, "session")
}

// CheckIn opens a session for a vehicle linked to the membership.
func (t *UsageTracker) CheckIn(ctx context.Context, subscriptionID, vehicleID uint64, attendant, notes string) (model.UsageLog, error) {
	if vehicleID == 0 {
		return model.UsageLog{}, apperr.Validation("select a vehicle to check in")
	}
	l := model.UsageLog{
		SubscriptionID: subscriptionID,
		VehicleID:      vehicleID,
		CheckInTime:    t.now().UTC().Truncate(time.Second),
		AttendantName:  attendantName(attendant),
		Notes:          strings.TrimSpace(notes),
	}
	if err := t.store.CheckIn(ctx, &l); err != nil {
		return model.UsageLog{}, usageErr(err)
	}
	t.log.Info("self-service check-in", zap.Uint64("log_id", l.ID), zap.Uint64("subscription_id", subscriptionID), zap.Uint64("vehicle_id", vehicleID))
	return l, nil
}

// CheckOut completes an in-progress session.
func (t *UsageTracker) CheckOut(ctx context.Context, logID uint64, attendant string) (model.UsageLog, error) {
	return t.close(ctx, logID, model.UsageCompleted, attendant)
}

// Cancel voids an in-progress session.  The check-out time is still set so
// that only in-progress sessions lack one.
func (t *UsageTracker) Cancel(ctx context.Context, logID uint64, attendant string) (model.UsageLog, error) {
	return t.close(ctx, logID, model.UsageCancelled, attendant)
}

func (t *UsageTracker) close(ctx context.Context, logID uint64, status, attendant string) (model.UsageLog, error) {
	at := t.now().UTC().Truncate(time.Second)
	if err := t.store.Close(ctx, logID, status, attendantName(attendant), at); err != nil {
		return model.UsageLog{}, usageErr(err)
	}
	l, err := t.store.GetByID(ctx, logID)
	if err != nil {
		return model.UsageLog{}, usageErr(err)
	}
	withDuration(&l)
	t.log.Info("self-service session closed", zap.Uint64("log_id", logID), zap.String("status", status))
	return l, nil
}

// Logs returns the recent sessions of a membership with durations filled.
func (t *UsageTracker) Logs(ctx context.Context, subscriptionID uint64, limit int) ([]model.UsageLog, error) {
	logs, err := t.store.ListBySubscription(ctx, subscriptionID, limit)
	if err != nil {
		return nil, storeErr(err, "sessions")
	}
	for i := range logs {
		withDuration(&logs[i])
	}
	return logs, nil
}

// InBay returns every open session.
func (t *UsageTracker) InBay(ctx context.Context) ([]model.UsageLog, error) {
	logs, err := t.store.ListInProgress(ctx)
	if err != nil {
		return nil, storeErr(err, "sessions")
	}
	if logs == nil {
		logs = []model.UsageLog{}
	}
	return logs, nil
}

// Vehicles lists the vehicles an attendant can check in for a membership.
func (t *UsageTracker) Vehicles(ctx context.Context, subscriptionID uint64) ([]model.Vehicle, error) {
	vs, err := t.vehicles.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, storeErr(err, "vehicles")
	}
	if vs == nil {
		vs = []model.Vehicle{}
	}
	return vs, nil
}

func withDuration(l *model.UsageLog) {
	if l.CheckOutTime != nil {
		l.Duration = FormatDuration(l.CheckOutTime.Sub(l.CheckInTime))
	}
}

// FormatDuration renders a session length as "N min" below an hour and
// "Hh Mm" from an hour up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

func attendantName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "staff"
}
