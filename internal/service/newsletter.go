package service

import (
	"context"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/notify"
)

// SubscriberLister lists profiles that opted in to newsletters.
type SubscriberLister interface {
	ListSubscribed(ctx context.Context) ([]model.Profile, error)
}

// Newsletter sends broadcasts to opted-in profiles.
type Newsletter struct {
	profiles    SubscriberLister
	broadcaster *notify.Broadcaster
}

func NewNewsletter(profiles SubscriberLister, broadcaster *notify.Broadcaster) *Newsletter {
	return &Newsletter{profiles: profiles, broadcaster: broadcaster}
}

// Send delivers b to every subscribed profile.
func (n *Newsletter) Send(ctx context.Context, b notify.Broadcast) (notify.BroadcastReport, error) {
	profiles, err := n.profiles.ListSubscribed(ctx)
	if err != nil {
		return notify.BroadcastReport{}, storeErr(err, "subscribers")
	}
	seen := make(map[string]bool, len(profiles))
	to := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Email == "" || seen[p.Email] {
			continue
		}
		seen[p.Email] = true
		to = append(to, p.Email)
	}
	report, err := n.broadcaster.Send(ctx, to, b)
	if err != nil {
		return report, apperr.External("broadcast interrupted", err)
	}
	return report, nil
}
