// Package objectstore provides a kv.Store that keeps each key as an object in
// an S3 compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

const (
	contentType = "application/json"
	keyPrefix   = "kv/"
)

// Store is a kv.Store over a MinIO bucket
type Store struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

var _ kv.Store = (*Store)(nil)

// New connects to the configured endpoint and creates the bucket if missing
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint cannot be empty")
	}
	if cfg.MinIO.Bucket == "" {
		return nil, fmt.Errorf("minio bucket cannot be empty")
	}

	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &Store{
		client: client,
		bucket: cfg.MinIO.Bucket,
		log:    logger.Storage("minio"),
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	s.log.Info("MinIO store ready", "endpoint", cfg.MinIO.Endpoint, "bucket", s.bucket)
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	s.log.Info("Creating bucket", "bucket", s.bucket)
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// objectName maps a key to its object path
func objectName(key string) string {
	return keyPrefix + key + ".json"
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing object only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	s.log.Debug("Object read", "key", key, "bytes", len(data))
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(key),
		bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	s.log.Debug("Object written", "key", key, "bytes", len(value))
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName(key), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client holds no long-lived connection
func (s *Store) Close() error {
	return nil
}
