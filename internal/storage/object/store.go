package object

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store provides an S3-compatible storage backend using MinIO.
// Pipeline writes are append-only: every object gets a fresh key and no
// existing object is ever overwritten.
type Store struct {
	client     *minio.Client
	endpoint   string
	bucketName string
	useSSL     bool
}

// NewStore creates a new Store connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStore(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Store{
		client:     client,
		endpoint:   endpoint,
		bucketName: bucketName,
		useSSL:     useSSL,
	}, nil
}

// Put uploads data under the given key with the provided content type and
// cache-control header. Returns the stored object size in bytes.
func (s *Store) Put(ctx context.Context, key, contentType, cacheControl string, data []byte) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return info.Size, nil
}

// PublicURL returns the provider's standard public URL for a stored key.
func (s *Store) PublicURL(key string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucketName, key)
}

// Remove deletes the object under the given key. Used only by the orphan
// cleanup consumer, never by the pipeline itself.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}
