// Package storage keeps generated documents on the local filesystem so the
// HTTP server can serve them under the documents base URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/port"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// ErrInvalidKey is returned for keys that would resolve outside the root
var ErrInvalidKey = errors.New("invalid document key")

// LocalDocumentStore implements port.DocumentStore on a directory
type LocalDocumentStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalDocumentStore creates a store rooted at root
func NewLocalDocumentStore(root string, logger *zap.Logger) *LocalDocumentStore {
	return &LocalDocumentStore{root: root, logger: logger}
}

// Put writes content under key. The file is written beside its final name and
// renamed into place, so readers see either the old or the new document.
func (s *LocalDocumentStore) Put(ctx context.Context, key string, content []byte) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		s.logger.Error("Failed to create document directory", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".doc-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		s.logger.Error("Failed to write document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to move document into place: %w", err)
	}

	s.logger.Debug("Document stored", zap.String("key", key), zap.Int("size", len(content)))
	return nil
}

// Get returns the document stored under key
func (s *LocalDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return content, nil
}

// Has reports whether a document is stored under key
func (s *LocalDocumentStore) Has(ctx context.Context, key string) bool {
	full, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// resolve maps key onto the filesystem, rejecting absolute keys and keys
// that climb out of the root
func (s *LocalDocumentStore) resolve(key string) (string, error) {
	if key == "" || path.IsAbs(key) || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// SanitizeName returns a single filesystem-safe key segment
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, " ", "_")
	return unsafeName.ReplaceAllString(name, "")
}

var _ port.DocumentStore = (*LocalDocumentStore)(nil)
