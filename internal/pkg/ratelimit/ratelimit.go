// Package ratelimit implements a sliding-window limiter keyed by user and
// network origin. Store failures never block a request.
package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultLimit  = 1
	DefaultWindow = 20 * time.Second
	DefaultPrefix = "scoreengine:rl"

	unknownOrigin = "unknown"
)

// Result is the outcome of one hit.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	// FailedOpen is set when the store errored and the hit was let through.
	FailedOpen bool
}

// Store records a hit against key and reports whether it fits the window.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store Store, limit int, window time.Duration, prefix string, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	l := &Limiter{store: store, limit: limit, window: window, prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a hit for key. When the store is missing or fails the hit is
// allowed and the failure is logged.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if l == nil || l.store == nil {
		metrics.RateLimitDecisions.WithLabelValues("failed_open").Inc()
		return Result{Allowed: true, FailedOpen: true}
	}
	res, err := l.store.Hit(ctx, l.prefix+":"+key, l.limit, l.window, l.now())
	if err != nil {
		log.Warnf("[RateLimit] Store failed for %s, allowing request: %v", key, err)
		metrics.RateLimitDecisions.WithLabelValues("failed_open").Inc()
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, FailedOpen: true}
	}
	if res.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
	} else {
		metrics.RateLimitDecisions.WithLabelValues("limited").Inc()
	}
	return res
}

// Origin returns the first X-Forwarded-For entry, or "unknown".
func Origin(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return unknownOrigin
}

// Key combines the user and its network origin.
func Key(userID, forwardedFor string) string {
	return strings.TrimSpace(userID) + ":" + Origin(forwardedFor)
}
