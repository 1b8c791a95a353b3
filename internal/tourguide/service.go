// Package tourguide answers per-user questions on top of the tracker and the
// reward engine: where a user is, what is near them and what they have earned.
package tourguide

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tourguide/internal/catalog"
	"tourguide/internal/models"
)

// DefaultNearbyLimit is the number of attractions NearbyAttractions returns
// when no limit is given.
const DefaultNearbyLimit = 5

// maxPointLookups bounds concurrent scorer lookups per NearbyAttractions call.
const maxPointLookups = 5

// Locator records a user's current position.
type Locator interface {
	TrackUser(ctx context.Context, user *models.User) (models.VisitedLocation, error)
}

// RewardEngine is the part of the reward engine the queries use.
type RewardEngine interface {
	Distance(a, b models.Coordinates) float64
	IsWithinRange(c models.Coordinates, a models.Attraction) bool
	RewardPoints(ctx context.Context, attraction models.Attraction, user *models.User) (int, error)
}

// NearbyAttraction is one entry of a NearbyAttractions answer.
type NearbyAttraction struct {
	Name                  string             `json:"name"`
	AttractionCoordinates models.Coordinates `json:"attraction_location"`
	UserCoordinates       models.Coordinates `json:"user_location"`
	DistanceMiles         float64            `json:"distance_miles"`
	RewardPoints          int                `json:"reward_points"`
}

type Service struct {
	catalog catalog.Catalog
	engine  RewardEngine
	locator Locator
}

func NewService(c catalog.Catalog, engine RewardEngine, locator Locator) *Service {
	return &Service{catalog: c, engine: engine, locator: locator}
}

// UserLocation returns the user's latest recorded location, tracking the user
// now if nothing was recorded yet.
func (s *Service) UserLocation(ctx context.Context, user *models.User) (models.VisitedLocation, error) {
	if loc, ok := user.LastVisitedLocation(); ok {
		return loc, nil
	}
	return s.locator.TrackUser(ctx, user)
}

// NearbyAttractions returns the limit closest attractions to the user's
// location, nearest first, regardless of how far away they are. Points that
// cannot be looked up are reported as 0.
func (s *Service) NearbyAttractions(ctx context.Context, user *models.User, limit int) ([]NearbyAttraction, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	loc, err := s.UserLocation(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("locate user %s: %w", user.Name, err)
	}
	attractions, err := s.catalog.Attractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attraction catalog: %w", err)
	}

	type ranked struct {
		attraction models.Attraction
		distance   float64
	}
	all := make([]ranked, 0, len(attractions))
	for _, a := range attractions {
		all = append(all, ranked{attraction: a, distance: s.engine.Distance(loc.Coordinates, a.Coordinates)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].distance < all[j].distance })
	if len(all) > limit {
		all = all[:limit]
	}

	out := make([]NearbyAttraction, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPointLookups)
	for i, r := range all {
		out[i] = NearbyAttraction{
			Name:                  r.attraction.Name,
			AttractionCoordinates: r.attraction.Coordinates,
			UserCoordinates:       loc.Coordinates,
			DistanceMiles:         r.distance,
		}
		g.Go(func() error {
			points, err := s.engine.RewardPoints(gctx, r.attraction, user)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"user_id":    user.ID,
					"attraction": r.attraction.Name,
				}).Warn("Reward point lookup failed")
				return nil
			}
			out[i].RewardPoints = points
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// AttractionsInRange returns the attractions within the engine's attraction
// proximity range of c, in catalog order.
func (s *Service) AttractionsInRange(ctx context.Context, c models.Coordinates) ([]models.Attraction, error) {
	attractions, err := s.catalog.Attractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attraction catalog: %w", err)
	}
	var out []models.Attraction
	for _, a := range attractions {
		if s.engine.IsWithinRange(c, a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// UserRewards returns a snapshot of the user's ledger.
func (s *Service) UserRewards(user *models.User) []models.UserReward {
	return user.UserRewards()
}
