// Package objectstore keeps venue cover photos in an S3-compatible bucket
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// MaxPhotoSize is the largest accepted upload (5MB)
	MaxPhotoSize = 5 << 20

	// PresignExpiry is the lifetime of a download link
	PresignExpiry = 15 * time.Minute
)

var (
	ErrDisabled    = errors.New("object storage is not configured")
	ErrNotFound    = errors.New("object not found")
	ErrUnsupported = errors.New("unsupported content type")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoStore stores and serves venue photos
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// PhotoKey builds the object key for a venue photo. Unsupported content
// types are refused.
func PhotoKey(venueID uuid.UUID, contentType string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupported
	}
	return path.Join("venues", venueID.String(), "cover-"+uuid.NewString()[:8]+ext), nil
}

// AllowedContentType reports whether a photo upload type is accepted
func AllowedContentType(contentType string) bool {
	_, ok := allowedTypes[strings.ToLower(contentType)]
	return ok
}

// New returns a MinIO-backed store, or a disabled one when no endpoint is set
func New(ctx context.Context, cfg *config.Config) (PhotoStore, error) {
	if cfg.ObjectStore.Endpoint == "" {
		logger.Infra("objectstore").Info("No object store endpoint configured, photo uploads disabled")
		return Disabled{}, nil
	}
	return NewMinio(ctx, cfg.ObjectStore.Endpoint, cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, cfg.ObjectStore.Bucket, cfg.ObjectStore.UseSSL)
}

// Minio stores photos in a MinIO / S3 bucket
type Minio struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

// NewMinio connects and makes sure the bucket exists
func NewMinio(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Minio, error) {
	l := logger.Infra("objectstore")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		l.Info("Bucket created", "bucket", bucket)
	}

	l.Info("Object store ready", "endpoint", endpoint, "bucket", bucket)
	return &Minio{client: client, bucket: bucket, log: l}, nil
}

func (m *Minio) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		m.log.Error("Failed to upload object", "key", key, "error", err)
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	m.log.Debug("Object uploaded", "key", key, "size", info.Size)
	return nil
}

func (m *Minio) URL(ctx context.Context, key string) (string, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat %s: %w", key, err)
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (m *Minio) Remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Disabled refuses every operation
type Disabled struct{}

func (Disabled) Put(context.Context, string, io.Reader, int64, string) error { return ErrDisabled }
func (Disabled) URL(context.Context, string) (string, error)                 { return "", ErrDisabled }
func (Disabled) Remove(context.Context, string) error                        { return ErrDisabled }

// Memory keeps objects in process, for tests and local runs
type Memory struct {
	mu      sync.RWMutex
	BaseURL string
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{BaseURL: "http://objects.local/", objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *Memory) URL(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", ErrNotFound
	}
	return m.BaseURL + key, nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len returns the number of stored objects
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
