package simulate

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"tourguide/internal/models"
)

// ErrUnavailable is returned when a simulated call is chosen to fail.
var ErrUnavailable = errors.New("simulate: service unavailable")

// Mercator latitude limit used for random positions.
const maxLatitude = 85.05112878

// Latency is a uniform random delay range. The zero value means no delay.
type Latency struct {
	Min, Max time.Duration
}

func (l Latency) wait(ctx context.Context) error {
	d := l.Min
	if l.Max > l.Min {
		d += rand.N(l.Max - l.Min)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fails(rate float64) bool {
	return rate > 0 && rand.Float64() < rate
}

// RandomCoordinates returns a uniformly random position.
func RandomCoordinates() models.Coordinates {
	return models.Coordinates{
		Lat: -maxLatitude + rand.Float64()*2*maxLatitude,
		Lon: -180 + rand.Float64()*360,
	}
}

// PositionSource reports a random current position for any user.
type PositionSource struct {
	Latency     Latency
	FailureRate float64
}

func (s *PositionSource) UserLocation(ctx context.Context, userID uuid.UUID) (models.VisitedLocation, error) {
	if err := s.Latency.wait(ctx); err != nil {
		return models.VisitedLocation{}, err
	}
	if fails(s.FailureRate) {
		return models.VisitedLocation{}, ErrUnavailable
	}
	return models.VisitedLocation{
		UserID:      userID,
		Coordinates: RandomCoordinates(),
		VisitedAt:   time.Now(),
	}, nil
}

// RewardCentral awards between 1 and 1000 points for any attraction.
type RewardCentral struct {
	Latency     Latency
	FailureRate float64
}

func (r *RewardCentral) AttractionRewardPoints(ctx context.Context, _, _ uuid.UUID) (int, error) {
	if err := r.Latency.wait(ctx); err != nil {
		return 0, err
	}
	if fails(r.FailureRate) {
		return 0, ErrUnavailable
	}
	return 1 + rand.IntN(1000), nil
}
