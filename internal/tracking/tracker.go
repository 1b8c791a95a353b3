// Package tracking records users' current positions and triggers reward
// computation for each of them.
package tracking

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tourguide/internal/metrics"
	"tourguide/internal/models"
	"tourguide/internal/workpool"
)

// LocationSource returns a user's current position. It may be slow.
type LocationSource interface {
	UserLocation(ctx context.Context, userID uuid.UUID) (models.VisitedLocation, error)
}

// RewardComputer is the reward engine as seen by the tracker.
type RewardComputer interface {
	ComputeRewards(ctx context.Context, user *models.User) error
}

// Tracker fans per-user work out onto its own pool. That pool must differ from
// the one the reward engine scores on: each tracking unit waits for its
// scoring tasks.
type Tracker struct {
	source  LocationSource
	rewards RewardComputer
	pool    *workpool.Pool
	metrics *metrics.Collector
}

// NewTracker builds a tracker. The collector may be nil.
func NewTracker(source LocationSource, rewards RewardComputer, pool *workpool.Pool, m *metrics.Collector) *Tracker {
	return &Tracker{
		source:  source,
		rewards: rewards,
		pool:    pool,
		metrics: m,
	}
}

// TrackUser fetches the user's current location, appends it to their history
// and computes rewards for it. The location is returned even when reward
// computation fails.
func (t *Tracker) TrackUser(ctx context.Context, user *models.User) (models.VisitedLocation, error) {
	loc, err := t.source.UserLocation(ctx, user.ID)
	if err != nil {
		t.metrics.TrackingFailed()
		return models.VisitedLocation{}, fmt.Errorf("locate user %s: %w", user.ID, err)
	}
	user.AddVisitedLocation(loc)
	t.metrics.UserTracked()

	if err := t.rewards.ComputeRewards(ctx, user); err != nil {
		return loc, fmt.Errorf("compute rewards for user %s: %w", user.ID, err)
	}
	return loc, nil
}

// TrackAll runs TrackUser for every user concurrently and blocks until all of
// them are done. A failing user is logged and skipped; it never stops the
// batch. ctx only bounds the wait: when it ends first TrackAll returns
// ctx.Err() and the remaining users are still processed.
func (t *Tracker) TrackAll(ctx context.Context, users []*models.User) error {
	start := time.Now()
	err := t.fanOut(ctx, users, func(ctx context.Context, u *models.User) error {
		_, err := t.TrackUser(ctx, u)
		return err
	})
	log.WithFields(log.Fields{
		"users":   len(users),
		"elapsed": time.Since(start).String(),
	}).Info("Tracked user locations")
	return err
}

// ComputeAll runs reward computation for every user on the tracking pool,
// without fetching new locations.
func (t *Tracker) ComputeAll(ctx context.Context, users []*models.User) error {
	return t.fanOut(ctx, users, t.rewards.ComputeRewards)
}

func (t *Tracker) fanOut(ctx context.Context, users []*models.User, unit func(context.Context, *models.User) error) error {
	work := context.WithoutCancel(ctx)
	g := t.pool.Group()
	for _, user := range users {
		err := g.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"user_id": user.ID,
						"panic":   r,
						"stack":   string(debug.Stack()),
					}).Error("Tracking unit panicked")
				}
			}()
			if err := unit(work, user); err != nil {
				log.WithField("user_id", user.ID).WithError(err).Warn("Skipping user this cycle")
			}
		})
		if err != nil {
			g.Wait()
			return fmt.Errorf("schedule user %s: %w", user.ID, err)
		}
	}
	return g.WaitContext(ctx)
}
