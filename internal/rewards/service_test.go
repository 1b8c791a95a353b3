package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourguide/internal/models"
	"tourguide/internal/scorer"
	"tourguide/internal/workpool"
	"tourguide/pkg/geo"
)

type fakeCatalog struct {
	attractions []models.Attraction
	err         error
	calls       atomic.Int64
}

func (c *fakeCatalog) Attractions(context.Context) ([]models.Attraction, error) {
	c.calls.Add(1)
	return c.attractions, c.err
}

// pointsScorer answers from a table keyed by reward schedule; missing keys fail.
type pointsScorer struct {
	mu     sync.Mutex
	points map[uuid.UUID]int
	gate   chan struct{}
	calls  atomic.Int64
	down   atomic.Bool
}

func (p *pointsScorer) AttractionRewardPoints(_ context.Context, attractionID, _ uuid.UUID) (int, error) {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.down.Load() {
		return 0, errors.New("scorer unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pts, ok := p.points[attractionID]
	if !ok {
		return 0, errors.New("no schedule for attraction")
	}
	return pts, nil
}

type recordingSink struct {
	mu      sync.Mutex
	rewards []models.UserReward
}

func (r *recordingSink) RewardGranted(_ context.Context, _ *models.User, reward models.UserReward) {
	r.mu.Lock()
	r.rewards = append(r.rewards, reward)
	r.mu.Unlock()
}

// milesEast returns an attraction on the equator the given distance east of 0,0.
func milesEast(name string, miles float64) models.Attraction {
	return models.NewAttraction(name, "", "", 0, miles/(60*geo.StatuteMilesPerNauticalMile))
}

func userAtOrigin() *models.User {
	u := models.NewUser(uuid.New(), "jon")
	u.VisitLocation(models.Coordinates{Lat: 0, Lon: 0})
	return u
}

func newTestService(t *testing.T, catalog AttractionSource, s scorer.Scorer, opts ...Option) *Service {
	t.Helper()
	return newServiceWith(t, catalog, s, 8, scorer.Config{MaxInFlight: 4}, opts...)
}

func newServiceWith(t *testing.T, catalog AttractionSource, s scorer.Scorer, poolSize int, cfg scorer.Config, opts ...Option) *Service {
	t.Helper()
	pool := workpool.New(poolSize)
	t.Cleanup(pool.Close)
	return NewService(catalog, scorer.NewClient(s, cfg, nil), pool, opts...)
}

func TestComputeRewards_NearAndFar(t *testing.T) {
	near := milesEast("Near Park", 5)
	far := milesEast("Far Attraction", 50)
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 3, far.RewardScheduleID: 8}}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near, far}}, sc)

	user := userAtOrigin()
	require.NoError(t, svc.ComputeRewards(context.Background(), user))

	rewards := user.UserRewards()
	require.Len(t, rewards, 1)
	assert.Equal(t, "Near Park", rewards[0].Attraction.Name)
	assert.Equal(t, 3, rewards[0].Points)
	assert.Equal(t, int64(1), sc.calls.Load())
}

func TestComputeRewards_ScorerFailureGrantsZero(t *testing.T) {
	near := milesEast("Near Park", 5)
	sc := &pointsScorer{points: map[uuid.UUID]int{}}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near}}, sc)

	user := userAtOrigin()
	assert.NoError(t, svc.ComputeRewards(context.Background(), user))

	rewards := user.UserRewards()
	require.Len(t, rewards, 1)
	assert.Equal(t, "Near Park", rewards[0].Attraction.Name)
	assert.Equal(t, 0, rewards[0].Points)
}

func TestComputeRewards_EmptyHistoryIsNoop(t *testing.T) {
	catalog := &fakeCatalog{attractions: []models.Attraction{milesEast("Near Park", 1)}}
	svc := newTestService(t, catalog, &pointsScorer{})

	user := models.NewUser(uuid.New(), "nobody")
	done := make(chan error, 1)
	go func() { done <- svc.ComputeRewards(context.Background(), user) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ComputeRewards blocked on a user without locations")
	}
	assert.Equal(t, 0, user.Rewards().Len())
	assert.Equal(t, int64(0), catalog.calls.Load())
}

func TestComputeRewards_NoDuplicatesOnRerun(t *testing.T) {
	near := milesEast("Near Park", 2)
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 10}}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near}}, sc)

	user := userAtOrigin()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.ComputeRewards(context.Background(), user))
		user.VisitLocation(models.Coordinates{Lat: 0, Lon: 0.001})
	}

	assert.Equal(t, 1, user.Rewards().Len())
	assert.Equal(t, int64(1), sc.calls.Load(), "rewarded attractions are not scored again")
}

func TestComputeRewards_GrowsByExactlyK(t *testing.T) {
	tests := []struct {
		name  string
		near  int
		far   int
		prior int
	}{
		{name: "all new", near: 5, far: 3},
		{name: "some already rewarded", near: 6, far: 2, prior: 2},
		{name: "nothing near", near: 0, far: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attractions []models.Attraction
			points := map[uuid.UUID]int{}
			for i := 0; i < tt.near; i++ {
				a := milesEast(fmt.Sprintf("near-%d", i), float64(i%9)+0.5)
				attractions = append(attractions, a)
				points[a.RewardScheduleID] = i
			}
			for i := 0; i < tt.far; i++ {
				a := milesEast(fmt.Sprintf("far-%d", i), 30+float64(i))
				attractions = append(attractions, a)
				points[a.RewardScheduleID] = 100
			}
			svc := newTestService(t, &fakeCatalog{attractions: attractions}, &pointsScorer{points: points})

			user := userAtOrigin()
			last, _ := user.LastVisitedLocation()
			for i := 0; i < tt.prior; i++ {
				user.Rewards().Add(models.UserReward{VisitedLocation: last, Attraction: attractions[i], Points: 1})
			}
			before := user.Rewards().Len()

			require.NoError(t, svc.ComputeRewards(context.Background(), user))

			assert.Equal(t, tt.near-tt.prior, user.Rewards().Len()-before)
			for _, r := range user.UserRewards() {
				assert.GreaterOrEqual(t, r.Points, 0)
			}
		})
	}
}

func TestComputeRewards_BufferResetRestoresDefault(t *testing.T) {
	near := milesEast("Near Park", 5)
	far := milesEast("Far Attraction", 50)
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 1, far.RewardScheduleID: 2}}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near, far}}, sc)

	svc.SetProximityBuffer(1000)
	wide := userAtOrigin()
	require.NoError(t, svc.ComputeRewards(context.Background(), wide))
	assert.Equal(t, 2, wide.Rewards().Len())

	svc.ResetProximityBuffer()
	assert.Equal(t, DefaultProximityBuffer, svc.Proximity().Buffer())
	narrow := userAtOrigin()
	require.NoError(t, svc.ComputeRewards(context.Background(), narrow))
	require.Equal(t, 1, narrow.Rewards().Len())
	assert.Equal(t, "Near Park", narrow.UserRewards()[0].Attraction.Name)
}

func TestComputeRewards_ConcurrentUsers(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
		permits  int
	}{
		{name: "pool larger than gate", poolSize: 8, permits: 4},
		{name: "single worker", poolSize: 1, permits: 1},
		{name: "gate larger than pool", poolSize: 1, permits: 16},
		{name: "wide pool", poolSize: 64, permits: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attractions []models.Attraction
			points := map[uuid.UUID]int{}
			for i := 0; i < 10; i++ {
				a := milesEast(fmt.Sprintf("a-%d", i), float64(i))
				attractions = append(attractions, a)
				points[a.RewardScheduleID] = i + 1
			}
			svc := newServiceWith(t, &fakeCatalog{attractions: attractions}, &pointsScorer{points: points},
				tt.poolSize, scorer.Config{MaxInFlight: tt.permits})

			const n = 200
			users := make([]*models.User, n)
			var wg sync.WaitGroup
			for i := range users {
				users[i] = userAtOrigin()
				wg.Add(1)
				go func(u *models.User) {
					defer wg.Done()
					assert.NoError(t, svc.ComputeRewards(context.Background(), u))
				}(users[i])
			}
			wg.Wait()

			for _, u := range users {
				assert.Equal(t, 10, u.Rewards().Len())
				assert.Equal(t, 55, u.Rewards().TotalPoints())
			}
		})
	}
}

func TestComputeRewards_ScorerRecoversAfterBreakerTrips(t *testing.T) {
	near := milesEast("Near Park", 5)
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 3}}
	sc.down.Store(true)

	cfg := scorer.DefaultConfig()
	cfg.MaxInFlight = 2
	cfg.BreakerMinRequests = 5
	cfg.BreakerTimeout = 40 * time.Millisecond
	cfg.BreakerRetryDelay = 5 * time.Millisecond
	svc := newServiceWith(t, &fakeCatalog{attractions: []models.Attraction{near}}, sc, 4, cfg)

	for i := 0; i < 20; i++ {
		u := userAtOrigin()
		require.NoError(t, svc.ComputeRewards(context.Background(), u))
		require.Equal(t, 1, u.Rewards().Len())
		assert.Zero(t, u.Rewards().TotalPoints(), "a failed scorer call is recorded as 0")
	}
	before := sc.calls.Load()
	assert.Equal(t, int64(20), before, "every zero came from a call that reached the scorer")

	sc.down.Store(false)
	fresh := userAtOrigin()
	require.NoError(t, svc.ComputeRewards(context.Background(), fresh))
	require.Equal(t, 1, fresh.Rewards().Len())
	assert.Equal(t, 3, fresh.UserRewards()[0].Points)
	assert.Greater(t, sc.calls.Load(), before)
}

func TestComputeRewards_SameUserConcurrently(t *testing.T) {
	var attractions []models.Attraction
	points := map[uuid.UUID]int{}
	for i := 0; i < 5; i++ {
		a := milesEast(fmt.Sprintf("a-%d", i), float64(i))
		attractions = append(attractions, a)
		points[a.RewardScheduleID] = 1
	}
	svc := newTestService(t, &fakeCatalog{attractions: attractions}, &pointsScorer{points: points})

	user := userAtOrigin()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.ComputeRewards(context.Background(), user)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, user.Rewards().Len())
	seen := map[string]bool{}
	for _, r := range user.UserRewards() {
		assert.False(t, seen[r.Attraction.Name], "duplicate reward for %s", r.Attraction.Name)
		seen[r.Attraction.Name] = true
	}
}

func TestComputeRewards_DeadlineBoundsWaitOnly(t *testing.T) {
	near := milesEast("Near Park", 1)
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 4}, gate: make(chan struct{})}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near}}, sc)

	user := userAtOrigin()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.ComputeRewards(ctx, user)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, user.Rewards().Len())

	close(sc.gate)
	require.Eventually(t, func() bool { return user.Rewards().Len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 4, user.UserRewards()[0].Points, "work finishes with its own context after the caller gave up")
}

func TestComputeRewards_NotifiesSink(t *testing.T) {
	near := milesEast("Near Park", 1)
	sink := &recordingSink{}
	sc := &pointsScorer{points: map[uuid.UUID]int{near.RewardScheduleID: 9}}
	svc := newTestService(t, &fakeCatalog{attractions: []models.Attraction{near}}, sc, WithSink(sink))

	user := userAtOrigin()
	require.NoError(t, svc.ComputeRewards(context.Background(), user))

	require.Len(t, sink.rewards, 1)
	assert.Equal(t, 9, sink.rewards[0].Points)
}

func TestComputeRewards_CatalogError(t *testing.T) {
	svc := newTestService(t, &fakeCatalog{err: errors.New("catalog offline")}, &pointsScorer{})

	user := userAtOrigin()
	err := svc.ComputeRewards(context.Background(), user)
	assert.Error(t, err)
	assert.Equal(t, 0, user.Rewards().Len())
}

func TestProximity(t *testing.T) {
	p := NewProximity()
	loc := models.VisitedLocation{Coordinates: models.Coordinates{}}

	assert.True(t, p.IsNear(loc, milesEast("a", 9.9)))
	assert.False(t, p.IsNear(loc, milesEast("b", 10.1)))
	assert.True(t, p.IsWithinRange(loc.Coordinates, milesEast("c", 150)))
	assert.False(t, p.IsWithinRange(loc.Coordinates, milesEast("d", 250)))

	p.SetRange(300)
	assert.True(t, p.IsWithinRange(loc.Coordinates, milesEast("d", 250)))
	p.ResetRange()
	assert.Equal(t, DefaultAttractionProximityRange, p.Range())
}
