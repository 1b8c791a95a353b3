package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"tourguide/internal/catalog"
	"tourguide/internal/env"
	"tourguide/internal/events"
	"tourguide/internal/metrics"
	"tourguide/internal/rewards"
	"tourguide/internal/scorer"
	"tourguide/internal/simulate"
	"tourguide/internal/storage"
	"tourguide/internal/tourguide"
	"tourguide/internal/tracking"
	"tourguide/internal/workpool"
	"tourguide/pkg/graceful"
	"tourguide/pkg/kafkaclient"
)

const shutdownTimeout = 15 * time.Second

func main() {
	streamMode := flag.Bool("stream", false, "consume location events from Kafka instead of tracking the simulated population once")
	seedCatalog := flag.Bool("seed-catalog", false, "upload the built-in attraction catalog to S3 and exit")
	gpsLatency := flag.Duration("gps-latency", 100*time.Millisecond, "upper bound of the simulated GPS latency")
	scorerLatency := flag.Duration("scorer-latency", time.Second, "upper bound of the simulated scorer latency")
	flag.Parse()

	env.LoadEnv()
	cfg, err := env.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	if *seedCatalog {
		if err := seed(ctx, cfg); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		return
	}

	collector := metrics.NewCollector("tourguide")
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(collector),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.MetricsAddr).Info("Serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	attractions, closeCatalog, err := openCatalog(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	scoringPool := workpool.New(cfg.ScoringWorkers)
	trackingPool := workpool.New(cfg.TrackingWorkers)

	scoreCfg := scorer.DefaultConfig()
	scoreCfg.MaxInFlight = cfg.ScorerMaxInFlight
	client := scorer.NewClient(&simulate.RewardCentral{Latency: simulate.Latency{Min: time.Millisecond, Max: *scorerLatency}}, scoreCfg, collector)

	proximity := rewards.NewProximity()
	proximity.SetBuffer(cfg.ProximityBufferMiles)
	proximity.SetRange(cfg.AttractionProximityRangeMiles)
	opts := []rewards.Option{rewards.WithMetrics(collector), rewards.WithProximity(proximity)}

	var publisher *kafkaclient.Publisher
	if *streamMode {
		publisher, err = kafkaclient.NewPublisher(cfg.KafkaRewardTopic, cfg.KafkaBroker)
		if err != nil {
			log.Fatalf("Failed to create reward publisher: %v", err)
		}
		opts = append(opts, rewards.WithSink(events.NewRewardPublisher(publisher)))
	}

	engine := rewards.NewService(attractions, client, scoringPool, opts...)
	positions := &simulate.PositionSource{Latency: simulate.Latency{Min: 30 * time.Millisecond, Max: *gpsLatency}}
	tracker := tracking.NewTracker(positions, engine, trackingPool, collector)
	directory := tourguide.NewDirectory(simulate.Population(cfg.UserCount)...)
	guide := tourguide.NewService(attractions, engine, tracker)

	if *streamMode {
		err = runStream(ctx, cfg, directory, engine)
	} else {
		err = runBatch(ctx, tracker, guide, directory)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Tracker stopped with error")
	}

	shutdownErr := graceful.Shutdown(shutdownTimeout,
		metricsServer.Shutdown,
		func(context.Context) error {
			trackingPool.Close()
			scoringPool.Close()
			return nil
		},
		func(context.Context) error {
			if publisher == nil {
				return nil
			}
			return publisher.Close()
		},
		func(context.Context) error {
			closeCatalog()
			return nil
		},
	)
	if shutdownErr != nil {
		log.WithError(shutdownErr).Warn("Unclean shutdown")
	}
	log.Info("Tracker exiting")
}

func metricsMux(c *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}

// openCatalog builds the configured catalog source. Remote sources are
// wrapped in a TTL cache.
func openCatalog(ctx context.Context, cfg env.Config) (catalog.Catalog, func(), error) {
	switch cfg.CatalogSource {
	case env.CatalogS3:
		s3, err := storage.NewS3Service(cfg.MinIO)
		if err != nil {
			return nil, nil, err
		}
		src := catalog.NewS3(s3, cfg.CatalogBucket, cfg.CatalogKey)
		return catalog.NewCached(src, cfg.CatalogCacheTTL), func() {}, nil
	case env.CatalogPostgres:
		pool, err := catalog.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewCached(catalog.NewPostgres(pool), cfg.CatalogCacheTTL), pool.Close, nil
	default:
		return catalog.NewStatic(simulate.Attractions()), func() {}, nil
	}
}

func seed(ctx context.Context, cfg env.Config) error {
	s3, err := storage.NewS3Service(cfg.MinIO)
	if err != nil {
		return err
	}
	if _, err := s3.CreateBucket(ctx, cfg.CatalogBucket, ""); err != nil {
		return err
	}
	_, err = s3.PutCatalog(ctx, cfg.CatalogBucket, cfg.CatalogKey, simulate.Attractions())
	return err
}
