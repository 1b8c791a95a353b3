package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitedLocation is a position recorded for a user at a point in time.
type VisitedLocation struct {
	UserID      uuid.UUID   `json:"user_id"`
	Coordinates Coordinates `json:"coordinates"`
	VisitedAt   time.Time   `json:"visited_at"`
}

// UserReward is a reward granted to a user for an attraction. Points may be 0
// when the scorer could not be reached.
type UserReward struct {
	VisitedLocation VisitedLocation `json:"visited_location"`
	Attraction      Attraction      `json:"attraction"`
	Points          int             `json:"points"`
}
