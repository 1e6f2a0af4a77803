package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/queue"
)

// Dispatcher renders notification events into email and sends them.  It
// is the handler of the notifications queue consumer.
type Dispatcher struct {
	sender  Sender
	brand   string
	baseURL string
	replyTo string
	timeout time.Duration
	log     *zap.Logger
}

// DispatcherConfig holds the presentation settings of outgoing mail.
type DispatcherConfig struct {
	Brand   string
	BaseURL string
	ReplyTo string
	Timeout time.Duration
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.Brand == "" {
		cfg.Brand = "Shine Car Wash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, brand: cfg.Brand, baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		replyTo: cfg.ReplyTo, timeout: cfg.Timeout, log: log}
}

type emailData struct {
	Brand      string
	Name       string
	Link       string
	Booking    *model.Booking
	Membership *queue.Membership
}

// Compose renders the message for an event without sending it.
func (d *Dispatcher) Compose(ev queue.NotificationEvent) (Message, error) {
	data := emailData{Brand: d.brand, Name: greetingName(ev.Name), Booking: ev.Booking, Membership: ev.Membership}
	var tmpl, subject string
	switch ev.Kind {
	case queue.KindBookingConfirmation:
		if ev.Booking == nil {
			return Message{}, fmt.Errorf("%s without booking", ev.Kind)
		}
		tmpl = "booking"
		subject = fmt.Sprintf("Booking confirmed: %s on %s", ev.Booking.ServiceName, ev.Booking.AppointmentDate)
	case queue.KindTipRequest:
		if ev.Booking == nil {
			return Message{}, fmt.Errorf("%s without booking", ev.Kind)
		}
		tmpl = "tip"
		subject = "Thanks for visiting " + d.brand
		data.Link = fmt.Sprintf("%s/tip?booking=%d", d.baseURL, ev.Booking.ID)
	case queue.KindMembershipWelcome:
		if ev.Membership == nil {
			return Message{}, fmt.Errorf("%s without membership", ev.Kind)
		}
		tmpl = "welcome"
		subject = "Welcome to " + ev.Membership.PlanName
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", ev.Kind)
	}
	html, err := render(tmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{ev.To}, Subject: subject, HTML: html, ReplyTo: d.replyTo}, nil
}

// Handle composes and sends one event under the dispatcher's deadline.
func (d *Dispatcher) Handle(ctx context.Context, ev queue.NotificationEvent) error {
	m, err := d.Compose(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(ctx, m); err != nil {
		return fmt.Errorf("send %s: %w", ev.Kind, err)
	}
	d.log.Info("email sent", zap.String("kind", ev.Kind), zap.String("event_id", ev.ID))
	return nil
}

func greetingName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}
