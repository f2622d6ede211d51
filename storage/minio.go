// Package storage resolves track audio objects held in MinIO into
// short-lived presigned URLs the presentation layer can stream from.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cassette/config"
	"cassette/logger"
	"cassette/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignTTL bounds how long a resolved stream URL stays valid. Long
// enough for any track, short enough that URLs are not worth hoarding.
const presignTTL = 4 * time.Hour

// AudioStore presigns GET URLs for track audio objects.
type AudioStore struct {
	client *minio.Client
	bucket string
}

// NewAudioStore connects to MinIO and verifies the bucket exists,
// creating it when missing.
func NewAudioStore(cfg *config.Config) (*AudioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created audio bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &AudioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// ResolveStreamURL presigns a GET for the track's audio object. Tracks
// without an object key fall back to their direct audio URL upstream.
func (s *AudioStore) ResolveStreamURL(ctx context.Context, track *model.Track) (string, error) {
	if track.ObjectKey == "" {
		return "", nil
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-type", "audio/mpeg")

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, track.ObjectKey, presignTTL, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", track.ObjectKey, err)
	}
	return presigned.String(), nil
}
