package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

type attemptLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	events map[string][]time.Time
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
	}
}

func (limiter *attemptLimiter) blocked(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.activeLocked(key, now)) >= limiter.limit
}

func (limiter *attemptLimiter) record(key string, now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	limiter.events[key] = append(limiter.activeLocked(key, now), now)
}

func (limiter *attemptLimiter) clear(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	delete(limiter.events, key)
}

func (limiter *attemptLimiter) activeLocked(key string, now time.Time) []time.Time {
	events := limiter.events[key]
	threshold := now.Add(-limiter.window)
	kept := events[:0]
	for _, at := range events {
		if at.After(threshold) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(limiter.events, key)
		return nil
	}
	limiter.events[key] = kept
	return kept
}

func limiterKey(c *fiber.Ctx, parts ...string) string {
	ip := strings.TrimSpace(c.IP())
	if ip == "" {
		ip = "unknown"
	}
	for _, part := range parts {
		ip += "|" + strings.ToLower(strings.TrimSpace(part))
	}
	return ip
}
