// Package media stores thumbnails captured from uploaded recordings.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ThumbnailStore saves an image and returns a reference a client can fetch.
type ThumbnailStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MinioStore keeps thumbnails in a MinIO/S3 compatible bucket and hands out
// pre-signed GET URLs.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, expiry time.Duration) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	// S3 caps pre-signed URLs at seven days.
	if expiry <= 0 || expiry > 7*24*time.Hour {
		expiry = 7 * 24 * time.Hour
	}
	return &MinioStore{client: client, bucket: bucket, expiry: expiry}, nil
}

// Put uploads the image and returns a pre-signed URL for it.
func (m *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = "thumbnails/" + safeName(key)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// FileStore saves thumbnails under a directory served at urlPrefix.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("thumbnail base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	return &FileStore{basePath: basePath, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir is the directory thumbnails are written to.
func (f *FileStore) Dir() string {
	return f.basePath
}

func (f *FileStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	name := safeName(key) + extensionFor(contentType)
	if err := os.WriteFile(filepath.Join(f.basePath, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return f.urlPrefix + "/" + name, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func safeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." {
		return "thumbnail"
	}
	return name
}
