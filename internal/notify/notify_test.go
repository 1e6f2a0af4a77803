package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/queue"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]time.Time
	msgs []Message
	fail map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]time.Time{}, fail: map[string]bool{}}
}

func (s *recordingSender) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[m.To[0]] {
		return errors.New("provider rejected")
	}
	s.sent[m.To[0]] = time.Now()
	s.msgs = append(s.msgs, m)
	return nil
}

func TestBroadcastBatchesAndSpacing(t *testing.T) {
	const interval = 150 * time.Millisecond
	sender := newRecordingSender()
	br := NewBroadcaster(sender, 2, interval, "Shine", zap.NewNop())

	recipients := make([]string, 5)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user%d@example.com", i)
	}
	report, err := br.Send(context.Background(), recipients, Broadcast{Subject: "News", Title: "Spring deals", Body: "One.\n\nTwo."})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, report.Batches)
	assert.Equal(t, 5, report.SentTo)
	assert.Empty(t, report.Failed)

	batchStart := func(idx ...int) time.Time {
		first := sender.sent[recipients[idx[0]]]
		for _, i := range idx[1:] {
			if ts := sender.sent[recipients[i]]; ts.Before(first) {
				first = ts
			}
		}
		return first
	}
	b0, b1, b2 := batchStart(0, 1), batchStart(2, 3), batchStart(4)
	// allow for timer granularity
	slack := 10 * time.Millisecond
	assert.GreaterOrEqual(t, b1.Sub(b0), interval-slack)
	assert.GreaterOrEqual(t, b2.Sub(b1), interval-slack)
	assert.Contains(t, sender.msgs[0].HTML, "<p>Two.</p>")
	assert.Len(t, sender.msgs[0].To, 1)
}

func TestBroadcastReportsFailedRecipients(t *testing.T) {
	sender := newRecordingSender()
	sender.fail["b@example.com"] = true
	br := NewBroadcaster(sender, 2, time.Millisecond, "Shine", zap.NewNop())

	report, err := br.Send(context.Background(), []string{"a@example.com", "b@example.com", "c@example.com"}, Broadcast{Subject: "s", Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SentTo)
	assert.Equal(t, []string{"b@example.com"}, report.Failed)
}

func TestBroadcastStopsOnCancel(t *testing.T) {
	sender := newRecordingSender()
	br := NewBroadcaster(sender, 1, time.Hour, "Shine", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := br.Send(ctx, []string{"a@example.com", "b@example.com"}, Broadcast{Subject: "s", Title: "t", Body: "b"})
	assert.Error(t, err)
	assert.Equal(t, 1, report.SentTo)
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID: 12, ServiceName: "Basic Wash", AppointmentDate: "2025-06-01", AppointmentTime: "10:00",
		TotalPrice: decimal.NewFromInt(30), TotalDuration: 30,
	}
}

func TestComposeBookingConfirmation(t *testing.T) {
	d := NewDispatcher(newRecordingSender(), DispatcherConfig{Brand: "Shine"}, zap.NewNop())
	ev := queue.NewNotification(queue.KindBookingConfirmation, "ana@example.com", "Ana Lopez")
	ev.Booking = testBooking()

	m, err := d.Compose(ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, m.To)
	assert.Equal(t, "Booking confirmed: Basic Wash on 2025-06-01", m.Subject)
	assert.Contains(t, m.HTML, "Hi Ana,")
	assert.Contains(t, m.HTML, "$30.00")
	assert.Contains(t, m.HTML, "2025-06-01 at 10:00")
}

func TestComposeRejectsIncompleteEvents(t *testing.T) {
	d := NewDispatcher(newRecordingSender(), DispatcherConfig{}, zap.NewNop())
	_, err := d.Compose(queue.NewNotification(queue.KindTipRequest, "a@example.com", ""))
	assert.Error(t, err)
	_, err = d.Compose(queue.NewNotification("sms", "a@example.com", ""))
	assert.Error(t, err)
}

func TestComposeTipRequestLinksBooking(t *testing.T) {
	d := NewDispatcher(newRecordingSender(), DispatcherConfig{BaseURL: "https://wash.example/"}, zap.NewNop())
	ev := queue.NewNotification(queue.KindTipRequest, "ana@example.com", "")
	ev.Booking = testBooking()
	m, err := d.Compose(ev)
	require.NoError(t, err)
	assert.Contains(t, m.HTML, "https://wash.example/tip?booking=12")
	assert.Contains(t, m.HTML, "Hi there,")
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, queue.NotificationEvent) error {
	p.calls++
	return errors.New("broker down")
}

func TestOutboxFallsBackToInlineSend(t *testing.T) {
	sender := newRecordingSender()
	pub := &failingPublisher{}
	o := NewOutbox(pub, NewDispatcher(sender, DispatcherConfig{}, zap.NewNop()), zap.NewNop())

	ev := queue.NewNotification(queue.KindBookingConfirmation, "ana@example.com", "Ana")
	ev.Booking = testBooking()
	require.NoError(t, o.Notify(context.Background(), ev))
	assert.Equal(t, 1, pub.calls)
	assert.Len(t, sender.msgs, 1)
}
