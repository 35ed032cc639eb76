package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default Strava read limits: 100 requests per 15 minutes, 1000 per day.
// Both are overwritten by the X-RateLimit-Limit header once a response arrives.
const (
	defaultShortLimit  = 100
	defaultDailyLimit  = 1000
	shortWindow        = 15 * time.Minute
	defaultMinInterval = 150 * time.Millisecond
)

// RateLimiter tracks Strava's two request windows and spaces requests out
type RateLimiter struct {
	mu sync.Mutex

	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a rate limiter with Strava's default limits
func NewRateLimiter() *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		shortLimit:    defaultShortLimit,
		shortResetsAt: nextShortReset(now),
		dailyLimit:    defaultDailyLimit,
		dailyResetsAt: nextDailyReset(now),
		minInterval:   defaultMinInterval,
	}
}

// Strava windows reset on the quarter hour and at midnight UTC
func nextShortReset(now time.Time) time.Time {
	return now.Truncate(shortWindow).Add(shortWindow)
}

func nextDailyReset(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Wait blocks until a request can be made without exceeding either window.
// It returns early with ctx.Err() when ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetExpired(time.Now())

	if r.shortUsage >= r.shortLimit {
		if err := r.sleepUnlocked(ctx, time.Until(r.shortResetsAt)); err != nil {
			return err
		}
		r.resetExpired(time.Now())
	}

	if r.dailyUsage >= r.dailyLimit {
		if err := r.sleepUnlocked(ctx, time.Until(r.dailyResetsAt)); err != nil {
			return err
		}
		r.resetExpired(time.Now())
	}

	if elapsed := time.Since(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleepUnlocked(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = time.Now()

	return nil
}

func (r *RateLimiter) resetExpired(now time.Time) {
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = nextShortReset(now)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = nextDailyReset(now)
	}
}

// sleepUnlocked releases the mutex while sleeping. The caller must hold it.
func (r *RateLimiter) sleepUnlocked(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders syncs usage and limits with Strava's response headers.
// Strava sends "X-RateLimit-Limit: 100,1000" and "X-RateLimit-Usage: 34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns the remaining requests in both windows
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
