// Package storage archives both versions of every processed document, so a
// bad augmentation pass can always be rolled back to the pristine copy.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Version labels for archived documents.
const (
	VersionPristine  = 0
	VersionAugmented = 1
)

// Backend stores and retrieves archived document versions by key.
type Backend interface {
	// SaveDocument archives one version of a document and returns the key
	// it was stored under.
	SaveDocument(ctx context.Context, slug string, version int, html string) (string, error)

	// LoadDocument retrieves a previously archived document by key.
	LoadDocument(ctx context.Context, key string) (string, error)
}

// documentKey builds the archive key: documents/YYYY/MM/slug-vN.html.
func documentKey(slug string, version int, now time.Time) string {
	return fmt.Sprintf("documents/%04d/%02d/%s-v%d.html",
		now.Year(), int(now.Month()), slug, version)
}

// Config contains filesystem storage configuration
type Config struct {
	BasePath string // Base directory for all stored files
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./storage",
	}
}

// Storage archives documents on the local filesystem.
type Storage struct {
	config Config
}

// New creates a new Storage instance
func New(config Config) (*Storage, error) {
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory: %w", err)
	}

	return &Storage{
		config: config,
	}, nil
}

// SaveDocument writes one document version under the base path and returns
// its key. An existing file under the same key is overwritten; keys carry
// the version, so re-running a pass replaces its own output only.
func (s *Storage) SaveDocument(ctx context.Context, slug string, version int, html string) (string, error) {
	key := documentKey(slug, version, time.Now())
	path := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write document file: %w", err)
	}
	return key, nil
}

// LoadDocument reads an archived document by key.
func (s *Storage) LoadDocument(ctx context.Context, key string) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	path := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("document %q not found", key)
		}
		return "", fmt.Errorf("failed to read document file: %w", err)
	}
	return string(data), nil
}
