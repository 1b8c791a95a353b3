package models

import "github.com/google/uuid"

// Attraction is a point of interest from the attraction catalog. RewardScheduleID
// identifies the point schedule the external scorer uses for it.
type Attraction struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	City             string      `json:"city,omitempty"`
	State            string      `json:"state,omitempty"`
	Coordinates      Coordinates `json:"coordinates"`
	RewardScheduleID uuid.UUID   `json:"reward_schedule_id"`
}

// NewAttraction builds an attraction whose reward schedule shares its ID.
func NewAttraction(name, city, state string, lat, lon float64) Attraction {
	id := uuid.New()
	return Attraction{
		ID:               id,
		Name:             name,
		City:             city,
		State:            state,
		Coordinates:      Coordinates{Lat: lat, Lon: lon},
		RewardScheduleID: id,
	}
}
