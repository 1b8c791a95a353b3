package models

import (
	"time"

	"github.com/google/uuid"
)

// User is shared between the tracking fan-out and the reward engine. Its
// history and ledger synchronize internally, so a *User can be handed to any
// number of goroutines.
type User struct {
	ID   uuid.UUID
	Name string

	history LocationHistory
	ledger  RewardLedger
}

func NewUser(id uuid.UUID, name string) *User {
	return &User{ID: id, Name: name}
}

// AddVisitedLocation appends a location to the user's history.
func (u *User) AddVisitedLocation(loc VisitedLocation) {
	u.history.Append(loc)
}

// VisitLocation records the user at the given coordinates now.
func (u *User) VisitLocation(c Coordinates) VisitedLocation {
	loc := VisitedLocation{UserID: u.ID, Coordinates: c, VisitedAt: time.Now()}
	u.history.Append(loc)
	return loc
}

// LastVisitedLocation returns the most recent location, or false if none.
func (u *User) LastVisitedLocation() (VisitedLocation, bool) {
	return u.history.Last()
}

func (u *User) VisitedLocations() []VisitedLocation {
	return u.history.Snapshot()
}

func (u *User) ClearVisitedLocations() {
	u.history.Clear()
}

// Rewards returns the user's reward ledger.
func (u *User) Rewards() *RewardLedger {
	return &u.ledger
}

// UserRewards returns a snapshot of granted rewards.
func (u *User) UserRewards() []UserReward {
	return u.ledger.Snapshot()
}
