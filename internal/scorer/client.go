// Package scorer wraps the external reward-point scorer. Batch lookups go
// through an admission gate that caps how many calls are in flight at once and
// never fail: any error degrades to zero points.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"tourguide/internal/metrics"
)

// ErrCircuitOpen is reported when the breaker rejects a call without reaching
// the scorer.
var ErrCircuitOpen = errors.New("scorer: circuit open")

// Scorer is the external point-scoring dependency.
type Scorer interface {
	AttractionRewardPoints(ctx context.Context, attractionID, userID uuid.UUID) (int, error)
}

// Config controls the admission gate and the breaker in front of the scorer.
type Config struct {
	// MaxInFlight is the number of admission permits.
	MaxInFlight int
	// BreakerFailureRatio trips the breaker once at least BreakerMinRequests
	// calls were made in the current interval. Zero disables the breaker.
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	// BreakerRetryDelay is how long Score waits before retrying a call the
	// breaker rejected. Zero means BreakerTimeout.
	BreakerRetryDelay time.Duration
	// LookupCacheTTL caches ScoreNow results. Zero disables the cache.
	LookupCacheTTL time.Duration
}

// DefaultConfig returns the settings used by cmd/tracker when nothing is set.
func DefaultConfig() Config {
	return Config{
		MaxInFlight:         50,
		BreakerFailureRatio: 0.8,
		BreakerMinRequests:  20,
		BreakerInterval:     30 * time.Second,
		BreakerTimeout:      10 * time.Second,
		BreakerRetryDelay:   500 * time.Millisecond,
		LookupCacheTTL:      5 * time.Minute,
	}
}

// Client is the bounded front for a Scorer.
type Client struct {
	scorer  Scorer
	gate    *semaphore.Weighted
	permits int
	breaker *gobreaker.CircuitBreaker
	retry   time.Duration
	lookups *cache.Cache
	metrics *metrics.Collector
}

// NewClient wraps s. The collector may be nil.
func NewClient(s Scorer, cfg Config, m *metrics.Collector) *Client {
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	c := &Client{
		scorer:  s,
		gate:    semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		permits: cfg.MaxInFlight,
		metrics: m,
	}
	if cfg.BreakerFailureRatio > 0 {
		c.retry = cfg.BreakerRetryDelay
		if c.retry <= 0 {
			c.retry = cfg.BreakerTimeout
		}
		if c.retry <= 0 {
			c.retry = 100 * time.Millisecond
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "reward-scorer",
			Interval: cfg.BreakerInterval,
			Timeout:  cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.BreakerMinRequests {
					return false
				}
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= cfg.BreakerFailureRatio
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("Scorer circuit breaker changed state")
			},
		})
	}
	if cfg.LookupCacheTTL > 0 {
		c.lookups = cache.New(cfg.LookupCacheTTL, 2*cfg.LookupCacheTTL)
	}
	return c
}

// MaxInFlight returns the number of admission permits.
func (c *Client) MaxInFlight() int {
	return c.permits
}

// Score returns the points for attractionID and userID. It waits for an
// admission permit first. Errors and panics in the scorer, or ctx ending while
// waiting for a permit, yield 0. A call rejected by an open breaker never
// reached the scorer: Score releases its permit, waits and tries again.
func (c *Client) Score(ctx context.Context, attractionID, userID uuid.UUID) int {
	for {
		points, err := c.attempt(ctx, attractionID, userID)
		if err == nil {
			return points
		}
		if !errors.Is(err, ErrCircuitOpen) {
			c.failed(attractionID, userID, err)
			return 0
		}
		log.WithFields(log.Fields{
			"attraction_id": attractionID,
			"user_id":       userID,
		}).Debug("Scorer circuit open, waiting to retry")
		if err := c.backoff(ctx); err != nil {
			c.failed(attractionID, userID, fmt.Errorf("waiting for circuit: %w", err))
			return 0
		}
	}
}

func (c *Client) attempt(ctx context.Context, attractionID, userID uuid.UUID) (int, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("waiting for permit: %w", err)
	}
	defer c.gate.Release(1)
	defer c.metrics.ScorerEntered()()

	return c.call(ctx, attractionID, userID)
}

func (c *Client) backoff(ctx context.Context) error {
	t := time.NewTimer(c.retry)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScoreNow looks points up directly, bypassing the gate and the breaker. It is
// meant for single interactive lookups; results are cached when configured.
func (c *Client) ScoreNow(ctx context.Context, attractionID, userID uuid.UUID) (int, error) {
	key := attractionID.String() + ":" + userID.String()
	if c.lookups != nil {
		if v, ok := c.lookups.Get(key); ok {
			return v.(int), nil
		}
	}
	points, err := c.scorer.AttractionRewardPoints(ctx, attractionID, userID)
	if err != nil {
		return 0, fmt.Errorf("score attraction %s: %w", attractionID, err)
	}
	if c.lookups != nil {
		c.lookups.Set(key, points, cache.DefaultExpiration)
	}
	return points, nil
}

func (c *Client) call(ctx context.Context, attractionID, userID uuid.UUID) (points int, err error) {
	defer func() {
		if r := recover(); r != nil {
			points, err = 0, fmt.Errorf("scorer panicked: %v", r)
		}
	}()
	if c.breaker == nil {
		return c.scorer.AttractionRewardPoints(ctx, attractionID, userID)
	}
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.scorer.AttractionRewardPoints(ctx, attractionID, userID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *Client) failed(attractionID, userID uuid.UUID, err error) {
	c.metrics.ScoringFailed()
	log.WithFields(log.Fields{
		"attraction_id": attractionID,
		"user_id":       userID,
	}).WithError(err).Warn("Scoring failed, granting 0 points")
}
