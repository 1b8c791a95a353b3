package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"tourguide/internal/models"
)

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Service is a client for S3-compatible storage.
type S3Service struct {
	client *minio.Client
}

// NewS3Service initializes and returns a new S3 storage service.
func NewS3Service(cfg Config) (*S3Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	log.WithField("endpoint", cfg.Endpoint).Info("Connected to MinIO endpoint")
	return &S3Service{client: minioClient}, nil
}

func (s *S3Service) CreateBucket(ctx context.Context, bucketName string, location string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return false, err
		}
	}
	return true, nil
}

// PutCatalog stores attractions as a JSON document under objectKey. An
// existing object is left untouched and reported as not written.
func (s *S3Service) PutCatalog(ctx context.Context, bucketName, objectKey string, attractions []models.Attraction) (bool, error) {
	_, err := s.client.StatObject(ctx, bucketName, objectKey, minio.StatObjectOptions{})
	if err == nil {
		log.WithFields(log.Fields{"bucket": bucketName, "key": objectKey}).Info("Catalog already exists, ignoring write")
		return false, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return false, fmt.Errorf("failed to check for existing object: %w", err)
	}

	data, err := json.Marshal(attractions)
	if err != nil {
		return false, fmt.Errorf("failed to marshal catalog to JSON: %w", err)
	}

	_, err = s.client.PutObject(
		ctx,
		bucketName,
		objectKey,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return false, fmt.Errorf("failed to store object in S3: %w", err)
	}

	log.WithFields(log.Fields{
		"bucket":      bucketName,
		"key":         objectKey,
		"attractions": len(attractions),
	}).Info("Stored attraction catalog")
	return true, nil
}

// GetCatalog retrieves a JSON catalog document from S3.
func (s *S3Service) GetCatalog(ctx context.Context, bucketName, objectKey string) ([]models.Attraction, error) {
	object, err := s.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer object.Close()

	var attractions []models.Attraction
	if err := json.NewDecoder(object).Decode(&attractions); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from stream: %w", err)
	}

	log.WithFields(log.Fields{"bucket": bucketName, "key": objectKey}).Debug("Retrieved attraction catalog")
	return attractions, nil
}
