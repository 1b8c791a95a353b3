package rewards

import (
	"math"
	"sync/atomic"

	"tourguide/internal/models"
	"tourguide/pkg/geo"
)

const (
	// DefaultProximityBuffer is how close, in miles, a user must be to an
	// attraction to earn its reward.
	DefaultProximityBuffer = 10.0
	// DefaultAttractionProximityRange is how close, in miles, an attraction
	// must be to be listed at all.
	DefaultAttractionProximityRange = 200.0
)

// Proximity holds the two process-wide distance thresholds. Values are stored
// as float bits in atomics so readers always see a whole value.
type Proximity struct {
	buffer atomic.Uint64
	rng    atomic.Uint64
}

// NewProximity returns thresholds set to their defaults.
func NewProximity() *Proximity {
	p := &Proximity{}
	p.ResetBuffer()
	p.ResetRange()
	return p
}

// Buffer returns the reward buffer in miles.
func (p *Proximity) Buffer() float64 {
	return math.Float64frombits(p.buffer.Load())
}

// SetBuffer changes the reward buffer for subsequent computations.
func (p *Proximity) SetBuffer(miles float64) {
	p.buffer.Store(math.Float64bits(miles))
}

// ResetBuffer restores DefaultProximityBuffer.
func (p *Proximity) ResetBuffer() {
	p.SetBuffer(DefaultProximityBuffer)
}

// Range returns the listing range in miles.
func (p *Proximity) Range() float64 {
	return math.Float64frombits(p.rng.Load())
}

// SetRange changes the listing range.
func (p *Proximity) SetRange(miles float64) {
	p.rng.Store(math.Float64bits(miles))
}

// ResetRange restores DefaultAttractionProximityRange.
func (p *Proximity) ResetRange() {
	p.SetRange(DefaultAttractionProximityRange)
}

// IsNear reports whether loc is within the reward buffer of a.
func (p *Proximity) IsNear(loc models.VisitedLocation, a models.Attraction) bool {
	return geo.Distance(loc.Coordinates, a.Coordinates) <= p.Buffer()
}

// IsWithinRange reports whether c is within the listing range of a.
func (p *Proximity) IsWithinRange(c models.Coordinates, a models.Attraction) bool {
	return geo.Distance(c, a.Coordinates) <= p.Range()
}
