package catalog

import (
	"context"
	"fmt"

	"tourguide/internal/models"
)

// ObjectLoader fetches a catalog document from object storage.
type ObjectLoader interface {
	GetCatalog(ctx context.Context, bucket, key string) ([]models.Attraction, error)
}

// S3 reads the catalog from a JSON document in a bucket.
type S3 struct {
	loader ObjectLoader
	bucket string
	key    string
}

func NewS3(loader ObjectLoader, bucket, key string) *S3 {
	return &S3{loader: loader, bucket: bucket, key: key}
}

func (s *S3) Attractions(ctx context.Context) ([]models.Attraction, error) {
	attractions, err := s.loader.GetCatalog(ctx, s.bucket, s.key)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s/%s: %w", s.bucket, s.key, err)
	}
	if len(attractions) == 0 {
		return nil, ErrEmptyCatalog
	}
	return attractions, nil
}
