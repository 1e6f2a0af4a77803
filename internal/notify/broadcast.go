package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Broadcast is a newsletter sent to every subscribed profile.
type Broadcast struct {
	Subject   string `json:"subject" validate:"required,max=200"`
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"required,max=20000"`
	BannerURL string `json:"bannerUrl" validate:"omitempty,url"`
}

// BroadcastReport summarises a broadcast run.
type BroadcastReport struct {
	SentTo  int      `json:"sentTo"`
	Failed  []string `json:"failed,omitempty"`
	Batches []int    `json:"-"`
}

// Broadcaster sends a message to many recipients in small batches,
// spacing batch starts by at least the configured interval to respect the
// provider's request rate.
type Broadcaster struct {
	sender    Sender
	batchSize int
	limiter   *rate.Limiter
	brand     string
	log       *zap.Logger
}

func NewBroadcaster(sender Sender, batchSize int, interval time.Duration, brand string, log *zap.Logger) *Broadcaster {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Broadcaster{
		sender:    sender,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		brand:     brand,
		log:       log,
	}
}

// Send renders b once and delivers it to each recipient individually so
// addresses are never disclosed to one another.  Failed recipients are
// reported, not retried.
func (br *Broadcaster) Send(ctx context.Context, recipients []string, b Broadcast) (BroadcastReport, error) {
	var paragraphs []string
	for _, p := range strings.Split(b.Body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	html, err := render("broadcast", map[string]any{
		"Brand": br.brand, "Title": b.Title, "BannerURL": b.BannerURL, "Paragraphs": paragraphs,
	})
	if err != nil {
		return BroadcastReport{}, err
	}

	var (
		report BroadcastReport
		mu     sync.Mutex
	)
	for start := 0; start < len(recipients); start += br.batchSize {
		if err := br.limiter.Wait(ctx); err != nil {
			return report, err
		}
		batch := recipients[start:min(start+br.batchSize, len(recipients))]
		report.Batches = append(report.Batches, len(batch))

		var wg sync.WaitGroup
		for _, to := range batch {
			wg.Add(1)
			go func(to string) {
				defer wg.Done()
				err := br.sender.Send(ctx, Message{To: []string{to}, Subject: b.Subject, HTML: html})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					br.log.Warn("broadcast send failed", zap.String("to", to), zap.Error(err))
					report.Failed = append(report.Failed, to)
					return
				}
				report.SentTo++
			}(to)
		}
		wg.Wait()
	}
	br.log.Info("broadcast finished", zap.Int("recipients", len(recipients)), zap.Int("sent", report.SentTo), zap.Int("batches", len(report.Batches)))
	return report, nil
}
