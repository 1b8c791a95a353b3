package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourguide/internal/models"
)

type countingCatalog struct {
	calls atomic.Int32
	out   []models.Attraction
	err   error
}

func (c *countingCatalog) Attractions(context.Context) ([]models.Attraction, error) {
	c.calls.Add(1)
	return c.out, c.err
}

type stubLoader struct {
	out []models.Attraction
	err error
}

func (s stubLoader) GetCatalog(context.Context, string, string) ([]models.Attraction, error) {
	return s.out, s.err
}

func sample() []models.Attraction {
	return []models.Attraction{
		models.NewAttraction("Disneyland", "Anaheim", "CA", 33.817595, -117.922008),
		models.NewAttraction("Jackson Hole", "Jackson Hole", "WY", 43.582767, -110.821999),
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	in := sample()
	s := NewStatic(in)
	in[0].Name = "changed"

	got, err := s.Attractions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Disneyland", got[0].Name)

	got[1].Name = "changed"
	again, _ := s.Attractions(context.Background())
	assert.Equal(t, "Jackson Hole", again[1].Name)
}

func TestCachedLoadsOncePerTTL(t *testing.T) {
	next := &countingCatalog{out: sample()}
	c := NewCached(next, time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Attractions(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), next.calls.Load())

	c.Invalidate()
	_, err := c.Attractions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	next := &countingCatalog{err: errors.New("boom")}
	c := NewCached(next, time.Minute)

	_, err := c.Attractions(context.Background())
	require.Error(t, err)
	_, err = c.Attractions(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedExpires(t *testing.T) {
	next := &countingCatalog{out: sample()}
	c := NewCached(next, 20*time.Millisecond)

	_, _ = c.Attractions(context.Background())
	time.Sleep(40 * time.Millisecond)
	_, _ = c.Attractions(context.Background())
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedNonPositiveTTLDisablesCaching(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		t.Run(ttl.String(), func(t *testing.T) {
			next := &countingCatalog{out: sample()}
			c := NewCached(next, ttl)

			for range 3 {
				got, err := c.Attractions(context.Background())
				require.NoError(t, err)
				assert.Len(t, got, 2)
			}
			assert.Equal(t, int32(3), next.calls.Load())
			c.Invalidate()
		})
	}
}

func TestPostgresAttractions(t *testing.T) {
	id := uuid.New()
	schedule := uuid.New()
	columns := []string{"id", "name", "city", "state", "latitude", "longitude", "reward_schedule_id"}

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		want    int
		wantErr error
	}{
		{
			name: "rows",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT id, name, city, state").
					WillReturnRows(mock.NewRows(columns).
						AddRow(id.String(), "Disneyland", "Anaheim", "CA", 33.817595, -117.922008, schedule.String()))
			},
			want: 1,
		},
		{
			name: "empty",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT id, name, city, state").
					WillReturnRows(mock.NewRows(columns))
			},
			wantErr: ErrEmptyCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			got, err := NewPostgres(mock).Attractions(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Len(t, got, tt.want)
				assert.Equal(t, id, got[0].ID)
				assert.Equal(t, schedule, got[0].RewardScheduleID)
				assert.InDelta(t, -117.922008, got[0].Coordinates.Lon, 1e-9)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection refused")
	mock.ExpectQuery("SELECT id").WillReturnError(boom)

	_, err = NewPostgres(mock).Attractions(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInvalidID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "city", "state", "latitude", "longitude", "reward_schedule_id"}).
			AddRow("not-a-uuid", "Disneyland", "Anaheim", "CA", 33.8, -117.9, uuid.NewString()))

	_, err = NewPostgres(mock).Attractions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id")
}

func TestS3(t *testing.T) {
	got, err := NewS3(stubLoader{out: sample()}, "catalog", "attractions.json").Attractions(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = NewS3(stubLoader{}, "catalog", "attractions.json").Attractions(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	boom := errors.New("no such key")
	_, err = NewS3(stubLoader{err: boom}, "catalog", "attractions.json").Attractions(context.Background())
	assert.ErrorIs(t, err, boom)
}
