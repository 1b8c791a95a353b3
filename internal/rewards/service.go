// Package rewards computes which attractions a user has earned a reward for
// and records them in the user's ledger.
package rewards

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tourguide/internal/metrics"
	"tourguide/internal/models"
	"tourguide/internal/scorer"
	"tourguide/internal/workpool"
	"tourguide/pkg/geo"
)

// AttractionSource lists the attraction catalog.
type AttractionSource interface {
	Attractions(ctx context.Context) ([]models.Attraction, error)
}

// RewardSink is notified after a reward has been appended to a ledger.
type RewardSink interface {
	RewardGranted(ctx context.Context, user *models.User, reward models.UserReward)
}

// Option configures a Service.
type Option func(*Service)

// WithSink registers a sink for newly granted rewards.
func WithSink(sink RewardSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithMetrics records computation metrics on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProximity shares thresholds with other components.
func WithProximity(p *Proximity) Option {
	return func(s *Service) { s.proximity = p }
}

// Service is the reward-computation engine. Scoring tasks run on pool and each
// call to the scorer holds one of the client's admission permits, so the pool
// size and the scorer's in-flight limit bound different things.
type Service struct {
	catalog   AttractionSource
	scorer    *scorer.Client
	pool      *workpool.Pool
	proximity *Proximity
	sink      RewardSink
	metrics   *metrics.Collector
}

// NewService builds the engine. pool must not be the pool the caller itself
// runs on, since ComputeRewards waits for the tasks it submits.
func NewService(catalog AttractionSource, client *scorer.Client, pool *workpool.Pool, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		scorer:  client,
		pool:    pool,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.proximity == nil {
		s.proximity = NewProximity()
	}
	return s
}

// Proximity returns the thresholds used by the service.
func (s *Service) Proximity() *Proximity {
	return s.proximity
}

// SetProximityBuffer changes the reward buffer for subsequent computations.
func (s *Service) SetProximityBuffer(miles float64) {
	s.proximity.SetBuffer(miles)
}

// ResetProximityBuffer restores the default reward buffer.
func (s *Service) ResetProximityBuffer() {
	s.proximity.ResetBuffer()
}

// Distance returns the distance between a and b in statute miles.
func (s *Service) Distance(a, b models.Coordinates) float64 {
	return geo.Distance(a, b)
}

// IsNear reports whether loc is within the reward buffer of a.
func (s *Service) IsNear(loc models.VisitedLocation, a models.Attraction) bool {
	return s.proximity.IsNear(loc, a)
}

// IsWithinRange reports whether c is within the listing range of a.
func (s *Service) IsWithinRange(c models.Coordinates, a models.Attraction) bool {
	return s.proximity.IsWithinRange(c, a)
}

// ComputeRewards scores every attraction near the user's most recent location
// that the user has no reward for yet, and appends the results to the ledger.
// It blocks until all scoring for this call has finished.
//
// Only the latest location is considered. This assumes ComputeRewards runs
// once per newly recorded location: locations recorded earlier were already
// evaluated when they were the latest. Loading a whole history and computing
// once only rewards attractions near its last entry.
//
// ctx bounds how long the caller waits, not the work itself. If ctx ends
// first, ctx.Err() is returned and the remaining scoring still completes in
// the background.
func (s *Service) ComputeRewards(ctx context.Context, user *models.User) error {
	last, ok := user.LastVisitedLocation()
	if !ok {
		return nil
	}
	start := time.Now()

	attractions, err := s.catalog.Attractions(ctx)
	if err != nil {
		return fmt.Errorf("list attractions: %w", err)
	}

	buffer := s.proximity.Buffer()
	rewarded := user.Rewards().RewardedAttractions()
	work := context.WithoutCancel(ctx)

	var submitErr error
	g := s.pool.Group()
	for _, attraction := range attractions {
		if _, ok := rewarded[attraction.Name]; ok {
			continue
		}
		if geo.Distance(last.Coordinates, attraction.Coordinates) > buffer {
			continue
		}
		if err := g.Go(func() { s.grant(work, user, last, attraction) }); err != nil {
			submitErr = fmt.Errorf("schedule scoring for %q: %w", attraction.Name, err)
			break
		}
	}
	if g.Len() == 0 {
		return submitErr
	}

	if err := g.WaitContext(ctx); err != nil {
		return err
	}
	s.metrics.ObserveComputation(time.Since(start))
	return submitErr
}

func (s *Service) grant(ctx context.Context, user *models.User, loc models.VisitedLocation, attraction models.Attraction) {
	points := s.scorer.Score(ctx, attraction.RewardScheduleID, user.ID)
	reward := models.UserReward{
		VisitedLocation: loc,
		Attraction:      attraction,
		Points:          points,
	}
	if !user.Rewards().AddIfAbsent(reward) {
		log.WithFields(log.Fields{
			"user_id":    user.ID,
			"attraction": attraction.Name,
		}).Debug("Reward already granted by a concurrent computation")
		return
	}
	s.metrics.RewardGranted()
	if s.sink != nil {
		s.sink.RewardGranted(ctx, user, reward)
	}
}

// RewardPoints looks up points for one attraction without going through the
// batch gate.
func (s *Service) RewardPoints(ctx context.Context, attraction models.Attraction, user *models.User) (int, error) {
	return s.scorer.ScoreNow(ctx, attraction.RewardScheduleID, user.ID)
}
