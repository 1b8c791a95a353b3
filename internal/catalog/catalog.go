// Package catalog provides sources for the attraction catalog. The catalog is
// read-only for the duration of a computation; every source hands out copies.
package catalog

import (
	"context"
	"errors"

	"tourguide/internal/models"
)

// ErrEmptyCatalog is returned by sources that loaded no attractions.
var ErrEmptyCatalog = errors.New("catalog: no attractions")

// Catalog lists attractions in a stable order.
type Catalog interface {
	Attractions(ctx context.Context) ([]models.Attraction, error)
}

// Static serves a fixed list of attractions.
type Static struct {
	attractions []models.Attraction
}

func NewStatic(attractions []models.Attraction) *Static {
	cp := make([]models.Attraction, len(attractions))
	copy(cp, attractions)
	return &Static{attractions: cp}
}

func (s *Static) Attractions(context.Context) ([]models.Attraction, error) {
	out := make([]models.Attraction, len(s.attractions))
	copy(out, s.attractions)
	return out, nil
}
