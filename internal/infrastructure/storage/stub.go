package storage

import (
	"context"
	"errors"
	"path"
	"time"
)

// StubMediaStorage is a placeholder media storage for development and tests.
// It fabricates URLs without talking to any backend.
type StubMediaStorage struct {
	// BaseURL is the base for fabricated upload/download URLs
	BaseURL string
}

// NewStubMediaStorage creates a StubMediaStorage
func NewStubMediaStorage() *StubMediaStorage {
	return &StubMediaStorage{
		BaseURL: "https://storage.example.com",
	}
}

// MediaKey builds a media object key
func (s *StubMediaStorage) MediaKey(parts ...string) string {
	return path.Join(append([]string{"media"}, parts...)...)
}

// GenerateUploadURL fabricates an upload URL
func (s *StubMediaStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)
	return url, expiresAt, nil
}

// GenerateDownloadURL fabricates a download URL
func (s *StubMediaStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)
	return url, expiresAt, nil
}

// DeleteObject is a no-op that always succeeds
func (s *StubMediaStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	return nil
}

// ObjectExists always reports true so confirmation flows work in development
func (s *StubMediaStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	return true, nil
}
