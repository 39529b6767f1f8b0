// Package storage provides blob persistence for photo originals and
// thumbnails.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore stores photo bytes under bucket/path and serves them back over
// public URLs.
type BlobStore interface {
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string
}

// LocalBlobStore keeps blobs on the local filesystem under a root directory.
// The content type is ignored; the file extension carries the format.
type LocalBlobStore struct {
	root          string
	publicBaseURL string
}

// NewLocalBlobStore creates a filesystem-backed blob store rooted at root.
func NewLocalBlobStore(root, publicBaseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalBlobStore{
		root:          root,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Root returns the directory blobs are written under.
func (s *LocalBlobStore) Root() string {
	return s.root
}

func (s *LocalBlobStore) Put(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(s.root, bucket, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

func (s *LocalBlobStore) PublicURL(bucket, path string) string {
	return s.publicBaseURL + "/" + bucket + "/" + path
}
