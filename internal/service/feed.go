package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// Booking change operations.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// BookingChange is one delta of a user's booking list.  Seq increases by
// one per user and change, so a subscriber that sees a jump knows it
// missed a delta and must reload the list.
type BookingChange struct {
	Seq     int64         `json:"seq"`
	Op      string        `json:"op"`
	Booking model.Booking `json:"booking"`
}

// BookingFeed fans booking changes out to connected customers through
// Redis pub/sub.
type BookingFeed struct {
	rdb    *redis.Client
	buffer int
	log    *zap.Logger
}

func NewBookingFeed(rdb *redis.Client, buffer int, log *zap.Logger) *BookingFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &BookingFeed{rdb: rdb, buffer: buffer, log: log}
}

func feedChannel(userID uint64) string { return fmt.Sprintf("feed:bookings:%d", userID) }
func feedSeqKey(userID uint64) string  { return fmt.Sprintf("feed:seq:%d", userID) }

// Publish numbers and broadcasts a change to the booking's owner.  Guest
// bookings have no feed and are skipped.
func (f *BookingFeed) Publish(ctx context.Context, op string, b model.Booking) error {
	if f == nil || f.rdb == nil || b.UserID == nil {
		return nil
	}
	uid := *b.UserID
	seq, err := f.rdb.Incr(ctx, feedSeqKey(uid)).Result()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(BookingChange{Seq: seq, Op: op, Booking: b})
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, feedChannel(uid), payload).Err()
}

// LastSeq returns the sequence number of the user's latest change.
func (f *BookingFeed) LastSeq(ctx context.Context, userID uint64) (int64, error) {
	n, err := f.rdb.Get(ctx, feedSeqKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Subscribe streams the user's changes until ctx is cancelled.  The
// returned channel is closed when the subscription ends.  A subscriber
// that falls behind by more than the buffer loses deltas and observes a
// sequence gap.
func (f *BookingFeed) Subscribe(ctx context.Context, userID uint64) (<-chan BookingChange, error) {
	sub := f.rdb.Subscribe(ctx, feedChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan BookingChange, f.buffer)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c BookingChange
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					f.log.Warn("booking feed: bad payload", zap.Error(err))
					continue
				}
				select {
				case out <- c:
				default:
					f.log.Warn("booking feed: subscriber lagging, dropping change", zap.Uint64("user_id", userID), zap.Int64("seq", c.Seq))
				}
			}
		}
	}()
	return out, nil
}
