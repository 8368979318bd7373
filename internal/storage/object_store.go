package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mataager/SwiftStore/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore wraps the MinIO client with the two buckets the service uses:
// staging for async uploads awaiting the worker, records for store status
// documents.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.BucketStaging, s.cfg.BucketRecords} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("bucket exists %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Ping checks that the staging bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.cfg.BucketStaging); err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	return nil
}

func (s *ObjectStore) PutStaging(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.BucketStaging, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put staging object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) GetStaging(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.cfg.BucketStaging, key)
}

func (s *ObjectStore) RemoveStaging(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.BucketStaging, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove staging object %s: %w", key, err)
	}
	return nil
}

// ListStaleStaging returns staging keys last modified before cutoff.
func (s *ObjectStore) ListStaleStaging(ctx context.Context, cutoff time.Time) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.cfg.BucketStaging, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return keys, fmt.Errorf("list staging objects: %w", obj.Err)
		}
		if obj.LastModified.Before(cutoff) {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

// GetRecord reads a document from the records bucket.
func (s *ObjectStore) GetRecord(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.cfg.BucketRecords, key)
}

func (s *ObjectStore) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapGetError(bucket, key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapGetError(bucket, key, err)
	}
	return data, nil
}

func wrapGetError(bucket, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	return fmt.Errorf("get %s/%s: %w", bucket, key, err)
}

// IsServiceError reports whether err carries an S3 error response, meaning
// the store was reached but refused the request.
func IsServiceError(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && resp.Code != ""
}
