package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"legacyvault/internal/config"
)

// ObjectStore wraps the S3-compatible store holding memory media and vault
// cover images, one bucket each.
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
	for _, bucket := range []string{s.cfg.BucketMedia, s.cfg.BucketCovers} {
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

func (s *ObjectStore) MediaBucket() string  { return s.cfg.BucketMedia }
func (s *ObjectStore) CoversBucket() string { return s.cfg.BucketCovers }

// Put streams an object into the given bucket.
func (s *ObjectStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (int64, error) {
	info, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return info.Size, nil
}

// Remove deletes an object. Removing a missing object is not an error, which
// keeps deletion retries idempotent.
func (s *ObjectStore) Remove(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL builds the externally reachable URL for an object.
func (s *ObjectStore) PublicURL(bucket, key string) string {
	base := strings.TrimSuffix(s.cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, key)
}

func (s *ObjectStore) Client() *minio.Client {
	return s.client
}
