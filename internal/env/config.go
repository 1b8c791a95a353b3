package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"tourguide/internal/keys"
	"tourguide/internal/storage"
)

// Catalog sources understood by Config.CatalogSource.
const (
	CatalogStatic   = "static"
	CatalogS3       = "s3"
	CatalogPostgres = "postgres"
)

// Config is the process configuration read from the environment.
type Config struct {
	ProximityBufferMiles          float64
	AttractionProximityRangeMiles float64

	TrackingWorkers   int
	ScoringWorkers    int
	ScorerMaxInFlight int
	UserCount         int

	CatalogSource   string
	CatalogBucket   string
	CatalogKey      string
	CatalogCacheTTL time.Duration
	DatabaseURL     string

	KafkaBroker        string
	KafkaLocationTopic string
	KafkaRewardTopic   string
	KafkaGroupID       string

	MetricsAddr string
	LogLevel    log.Level

	MinIO storage.Config
}

// Load reads Config, applying defaults for unset variables. All malformed
// values are reported together.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		ProximityBufferMiles:          getFloat("PROXIMITY_BUFFER_MILES", 10, &errs),
		AttractionProximityRangeMiles: getFloat("ATTRACTION_PROXIMITY_RANGE_MILES", 200, &errs),

		TrackingWorkers:   getPositiveInt("TRACKING_WORKERS", 100, &errs),
		ScoringWorkers:    getPositiveInt("SCORING_WORKERS", 100, &errs),
		ScorerMaxInFlight: getPositiveInt("SCORER_MAX_IN_FLIGHT", 50, &errs),
		UserCount:         getPositiveInt("USER_COUNT", 100, &errs),

		CatalogSource:   strings.ToLower(GetString("CATALOG_SOURCE", CatalogStatic)),
		CatalogBucket:   GetString("CATALOG_BUCKET", "tourguide"),
		CatalogKey:      GetString("CATALOG_KEY", keys.Catalog("attractions")),
		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", 5*time.Minute, &errs),
		DatabaseURL:     GetString("DATABASE_URL", ""),

		KafkaBroker:        GetString("KAFKA_BROKER", "localhost:9092"),
		KafkaLocationTopic: GetString("KAFKA_LOCATION_TOPIC", "user-locations"),
		KafkaRewardTopic:   GetString("KAFKA_REWARD_TOPIC", "user-rewards"),
		KafkaGroupID:       GetString("KAFKA_GROUP_ID", "tourguide-tracker"),

		MetricsAddr: GetString("METRICS_ADDR", ":2112"),

		MinIO: storage.Config{
			Endpoint:  GetString("MINIO_ENDPOINT", ""),
			AccessKey: GetString("MINIO_ACCESS_KEY", ""),
			SecretKey: GetString("MINIO_SECRET_KEY", ""),
			UseSSL:    GetString("MINIO_USE_SSL", "false") == "true",
		},
	}

	level, err := log.ParseLevel(GetString("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	switch cfg.CatalogSource {
	case CatalogStatic, CatalogS3:
	case CatalogPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when CATALOG_SOURCE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("CATALOG_SOURCE: unknown source %q", cfg.CatalogSource))
	}
	if cfg.CatalogCacheTTL <= 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL must be positive"))
	}
	if cfg.ProximityBufferMiles < 0 {
		errs = append(errs, errors.New("PROXIMITY_BUFFER_MILES must not be negative"))
	}

	return cfg, errors.Join(errs...)
}

// GetString returns the value of key, or def when it is unset or blank.
func GetString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getPositiveInt(key string, def int, errs *[]error) int {
	raw := GetString(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: want a positive integer, got %q", key, raw))
		return def
	}
	return n
}

func getFloat(key string, def float64, errs *[]error) float64 {
	raw := GetString(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := GetString(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
