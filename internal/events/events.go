// Package events defines the Kafka payloads exchanged by the tracker: location
// reports coming in and reward grants going out.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tourguide/internal/models"
)

// LocationReported is a position report for one user.
type LocationReported struct {
	UserID      uuid.UUID          `json:"user_id"`
	UserName    string             `json:"user_name"`
	Coordinates models.Coordinates `json:"coordinates"`
	VisitedAt   time.Time          `json:"visited_at"`
}

// VisitedLocation converts the report into a history entry. A missing
// timestamp is replaced by now.
func (e LocationReported) VisitedLocation(now time.Time) models.VisitedLocation {
	at := e.VisitedAt
	if at.IsZero() {
		at = now
	}
	return models.VisitedLocation{UserID: e.UserID, Coordinates: e.Coordinates, VisitedAt: at}
}

// RewardGranted is published once per reward appended to a ledger.
type RewardGranted struct {
	UserID         uuid.UUID          `json:"user_id"`
	UserName       string             `json:"user_name"`
	AttractionID   uuid.UUID          `json:"attraction_id"`
	AttractionName string             `json:"attraction_name"`
	Points         int                `json:"points"`
	Coordinates    models.Coordinates `json:"coordinates"`
	VisitedAt      time.Time          `json:"visited_at"`
	GrantedAt      time.Time          `json:"granted_at"`
}

// DecodeLocation parses and validates a LocationReported message.
func DecodeLocation(_ context.Context, msg kafka.Message) (LocationReported, error) {
	var e LocationReported
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return LocationReported{}, fmt.Errorf("decode location: %w", err)
	}
	if e.UserID == uuid.Nil {
		return LocationReported{}, errors.New("decode location: missing user_id")
	}
	if e.Coordinates.Lat < -90 || e.Coordinates.Lat > 90 || e.Coordinates.Lon < -180 || e.Coordinates.Lon > 180 {
		return LocationReported{}, fmt.Errorf("decode location: coordinates out of range: %+v", e.Coordinates)
	}
	return e, nil
}
