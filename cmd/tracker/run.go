package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tourguide/internal/env"
	"tourguide/internal/events"
	"tourguide/internal/rewards"
	"tourguide/internal/stream"
	"tourguide/internal/tourguide"
	"tourguide/internal/tracking"
	"tourguide/pkg/kafkaclient"
)

// runBatch tracks every user once and logs a summary.
func runBatch(ctx context.Context, tracker *tracking.Tracker, guide *tourguide.Service, directory *tourguide.Directory) error {
	users := directory.All()
	start := time.Now()
	if err := tracker.TrackAll(ctx, users); err != nil {
		return fmt.Errorf("track users: %w", err)
	}

	granted, points := 0, 0
	for _, u := range users {
		for _, r := range guide.UserRewards(u) {
			granted++
			points += r.Points
		}
	}
	log.WithFields(log.Fields{
		"users":   len(users),
		"rewards": granted,
		"points":  points,
		"elapsed": time.Since(start).String(),
	}).Info("Tracking round finished")

	if len(users) == 0 {
		return nil
	}
	nearby, err := guide.NearbyAttractions(ctx, users[0], tourguide.DefaultNearbyLimit)
	if err != nil {
		return fmt.Errorf("nearby attractions for %s: %w", users[0].Name, err)
	}
	for _, n := range nearby {
		log.WithFields(log.Fields{
			"user":     users[0].Name,
			"distance": fmt.Sprintf("%.1f mi", n.DistanceMiles),
			"points":   n.RewardPoints,
		}).Infof("Nearby: %s", n.Name)
	}
	return nil
}

// runStream appends each reported location to its user and computes rewards
// for it before taking the next message, so every location is evaluated while
// it is the user's latest.
func runStream(ctx context.Context, cfg env.Config, directory *tourguide.Directory, engine *rewards.Service) error {
	consumer, err := kafkaclient.NewKafkaConsumer(cfg.KafkaLocationTopic, cfg.KafkaGroupID, cfg.KafkaBroker)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"broker": cfg.KafkaBroker,
		"topic":  cfg.KafkaLocationTopic,
		"group":  cfg.KafkaGroupID,
	}).Info("Consuming location events")

	consumer.StartConsuming(ctx)
	defer consumer.Stop()

	it := stream.NewIterator(consumer, events.DecodeLocation)
	for item := range it.Items(ctx) {
		report := item.Data
		user := directory.Resolve(report.UserID, report.UserName)
		user.AddVisitedLocation(report.VisitedLocation(time.Now()))
		if err := engine.ComputeRewards(ctx, user); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("Reward computation incomplete")
		}
	}
	return ctx.Err()
}
