package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of the public catalog endpoints.  When Enabled is false or no
// Redis client is configured, caching is disabled.  Admin catalog writes
// purge every key under Prefix.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "catalog"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

// BroadcastConfig controls newsletter throttling.  The email provider
// accepts two requests per second on the default plan.
type BroadcastConfig struct {
	BatchSize int
	Interval  time.Duration
}

func LoadBroadcastConfig() BroadcastConfig {
	c := BroadcastConfig{
		BatchSize: envInt("BROADCAST_BATCH_SIZE", 2),
		Interval:  envDur("BROADCAST_INTERVAL", time.Second),
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	return c
}

// BookingConfig groups the booking wizard knobs: how long a draft survives
// in Redis and whether already booked slots are offered to customers.
type BookingConfig struct {
	DraftTTL        time.Duration
	BlockBooked     bool
	BayCapacity     int
	FeedBufferLimit int
}

func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		DraftTTL:        envDur("DRAFT_TTL", 30*time.Minute),
		BlockBooked:     envBool("SLOT_BLOCK_BOOKED", false),
		BayCapacity:     envInt("SLOT_BAY_CAPACITY", 1),
		FeedBufferLimit: envInt("BOOKING_FEED_BUFFER", 64),
	}
	if c.BayCapacity < 1 {
		c.BayCapacity = 1
	}
	return c
}
