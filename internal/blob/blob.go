// Package blob stores notice images in MinIO under deterministic keys, so
// re-uploads of the same logical image overwrite instead of accumulating.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config carries MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

// Store is the MinIO-backed image store.
type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New constructs a Store. Call EnsureBucket once at process start before any
// uploads.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if missing and applies an open-read policy
// so image URLs render directly in a browser.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, s.bucket)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", s.bucket, err)
	}
	return nil
}

// PutJPEG uploads image bytes under the given key, overwriting any previous
// object there.
func (s *Store) PutJPEG(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for a stored key, or "" for an empty key.
func (s *Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicURL + "/" + s.bucket + "/" + key
}

// SafeID flattens the path separators upstream entity IDs contain ("2026/1111")
// into a blob-key-safe form.
func SafeID(entityID string) string {
	return strings.ReplaceAll(entityID, "/", "_")
}

// ThumbnailKey is the deterministic key for a record's profile thumbnail. The
// fixed "profile" suffix makes thumbnail re-uploads overwrite in place.
func ThumbnailKey(entityID string) string {
	safe := SafeID(entityID)
	return fmt.Sprintf("%s/thumbnail/%s_profile.jpg", safe, safe)
}

// PhotoKey is the deterministic key for one gallery image.
func PhotoKey(entityID, pictureID string) string {
	safe := SafeID(entityID)
	return fmt.Sprintf("%s/others/%s_%s.jpg", safe, safe, pictureID)
}
