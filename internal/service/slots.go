package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/carwash-booking/internal/apperr"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	firstSlot    = 8 * 60
	lastSlot     = 19*60 + 30
	slotInterval = 30
)

// Slots returns the bookable half-hour start times, "08:00" through
// "19:30".
func Slots() []string {
	out := make([]string, 0, (lastSlot-firstSlot)/slotInterval+1)
	for m := firstSlot; m <= lastSlot; m += slotInterval {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// IsPastTime reports whether a slot can no longer be booked.  Dates before
// today are always past, future dates never are, and on today's date a
// slot is past when its start is at or before the current minute.  The
// calendar day is taken in now's location.
func IsPastTime(date, slot string, now time.Time) (bool, error) {
	d, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return false, apperr.Validation("date must be YYYY-MM-DD")
	}
	s, err := time.Parse(timeLayout, slot)
	if err != nil {
		return false, apperr.Validation("time must be HH:MM")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case d.Before(today):
		return true, nil
	case d.After(today):
		return false, nil
	}
	return s.Hour()*60+s.Minute() <= now.Hour()*60+now.Minute(), nil
}

// Slot is one entry of the availability list.
type Slot struct {
	Time     string `json:"time"`
	Disabled bool   `json:"disabled"`
	Booked   int    `json:"booked"`
}

// SlotCounter reports existing bookings per start time on a date.
type SlotCounter interface {
	CountBySlot(ctx context.Context, date string) (map[string]int, error)
}

// SlotService lists availability for the datetime step of the wizard.
type SlotService struct {
	bookings    SlotCounter
	loc         *time.Location
	blockBooked bool
	capacity    int
	now         func() time.Time
}

// NewSlotService builds a slot service.  When blockBooked is set, slots
// holding capacity or more bookings are disabled as well.
func NewSlotService(bookings SlotCounter, loc *time.Location, blockBooked bool, capacity int) *SlotService {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotService{bookings: bookings, loc: loc, blockBooked: blockBooked, capacity: max(capacity, 1), now: time.Now}
}

// Availability returns every slot of date with past (and optionally full)
// slots marked disabled.  Slots are never removed from the list.
func (s *SlotService) Availability(ctx context.Context, date string) ([]Slot, error) {
	now := s.now().In(s.loc)
	counts, err := s.bookings.CountBySlot(ctx, date)
	if err != nil {
		return nil, storeErr(err, "bookings")
	}
	slots := Slots()
	out := make([]Slot, 0, len(slots))
	for _, t := range slots {
		past, err := IsPastTime(date, t, now)
		if err != nil {
			return nil, err
		}
		n := counts[t]
		out = append(out, Slot{Time: t, Booked: n, Disabled: past || (s.blockBooked && n >= s.capacity)})
	}
	return out, nil
}

// Bookable validates a date and time chosen for checkout.
func (s *SlotService) Bookable(ctx context.Context, date, slot string) error {
	valid := false
	for _, t := range Slots() {
		if t == slot {
			valid = true
			break
		}
	}
	if !valid {
		return apperr.Validationf("%q is not a bookable time", slot)
	}
	past, err := IsPastTime(date, slot, s.now().In(s.loc))
	if err != nil {
		return err
	}
	if past {
		return apperr.Validation("the selected time has already passed")
	}
	if !s.blockBooked {
		return nil
	}
	counts, err := s.bookings.CountBySlot(ctx, date)
	if err != nil {
		return storeErr(err, "bookings")
	}
	if counts[slot] >= s.capacity {
		return apperr.Conflict("the selected time is fully booked")
	}
	return nil
}
