package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/queue"
)

// Publisher enqueues notification events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Outbox hands notifications to the broker and, when the broker cannot be
// reached, sends them inline through the dispatcher.  The inline path runs
// under the dispatcher's own deadline so a slow provider cannot stall the
// caller indefinitely.
type Outbox struct {
	pub  Publisher
	disp *Dispatcher
	log  *zap.Logger
}

// NewOutbox builds an outbox.  pub may be nil, in which case every
// notification is sent inline.
func NewOutbox(pub Publisher, disp *Dispatcher, log *zap.Logger) *Outbox {
	return &Outbox{pub: pub, disp: disp, log: log}
}

// Notify enqueues ev, falling back to an inline send.
func (o *Outbox) Notify(ctx context.Context, ev queue.NotificationEvent) error {
	if o.pub != nil {
		if err := o.pub.Publish(ctx, ev); err == nil {
			return nil
		}
		o.log.Warn("notification not queued, sending inline", zap.String("kind", ev.Kind), zap.String("event_id", ev.ID))
	}
	return o.disp.Handle(ctx, ev)
}
