package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrStorageDisabled is returned by Disabled for every write.
var ErrStorageDisabled = errors.New("object storage is not configured")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string

	// PresignGet returns a time-limited download link for private objects
	// such as match evidence.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Disabled is used when no bucket is configured; reads resolve to nothing.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (Disabled) Delete(context.Context, string) error { return ErrStorageDisabled }

func (Disabled) GetPublicURL(string) string { return "" }

func (Disabled) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrStorageDisabled
}
