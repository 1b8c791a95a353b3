package events

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"tourguide/internal/models"
)

// Publisher writes a keyed message.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// RewardPublisher emits a RewardGranted event for every reward the engine
// records. Failures are logged; the reward itself is already in the ledger.
type RewardPublisher struct {
	pub Publisher
	now func() time.Time
}

func NewRewardPublisher(pub Publisher) *RewardPublisher {
	return &RewardPublisher{pub: pub, now: time.Now}
}

func (p *RewardPublisher) RewardGranted(ctx context.Context, user *models.User, reward models.UserReward) {
	event := RewardGranted{
		UserID:         user.ID,
		UserName:       user.Name,
		AttractionID:   reward.Attraction.ID,
		AttractionName: reward.Attraction.Name,
		Points:         reward.Points,
		Coordinates:    reward.VisitedLocation.Coordinates,
		VisitedAt:      reward.VisitedLocation.VisitedAt,
		GrantedAt:      p.now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal reward event")
		return
	}
	if err := p.pub.Publish(ctx, []byte(user.ID.String()), value); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":    user.ID,
			"attraction": reward.Attraction.Name,
		}).Warn("Failed to publish reward event")
	}
}
