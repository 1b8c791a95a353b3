package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tourguide/internal/models"
)

const selectAttractions = `SELECT id, name, city, state, latitude, longitude, reward_schedule_id
FROM attractions
ORDER BY name`

// Querier is the subset of *pgxpool.Pool the Postgres catalog uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads the catalog from the attractions table.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a pgx pool for databaseURL and verifies it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

func (p *Postgres) Attractions(ctx context.Context) ([]models.Attraction, error) {
	rows, err := p.db.Query(ctx, selectAttractions)
	if err != nil {
		return nil, fmt.Errorf("query attractions: %w", err)
	}
	defer rows.Close()

	var out []models.Attraction
	for rows.Next() {
		var (
			id, scheduleID string
			a              models.Attraction
		)
		if err := rows.Scan(&id, &a.Name, &a.City, &a.State, &a.Coordinates.Lat, &a.Coordinates.Lon, &scheduleID); err != nil {
			return nil, fmt.Errorf("scan attraction: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("attraction %q has invalid id: %w", a.Name, err)
		}
		if a.RewardScheduleID, err = uuid.Parse(scheduleID); err != nil {
			return nil, fmt.Errorf("attraction %q has invalid reward schedule: %w", a.Name, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attractions: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCatalog
	}
	return out, nil
}
