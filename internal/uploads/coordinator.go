// Package uploads processes photo uploads: metadata extraction, thumbnail
// generation and blob persistence, with bounded concurrency.
package uploads

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tripweaver/internal/exifdata"
	"tripweaver/internal/geo"
	"tripweaver/internal/storage"
)

const (
	photoBucket     = "photos"
	thumbnailBucket = "thumbnails"

	// DefaultWorkers bounds concurrent photo processing.
	DefaultWorkers = 5
	// DefaultPhotoTimeout bounds the processing of a single photo.
	DefaultPhotoTimeout = 30 * time.Second
)

// Payload is one uploaded photo.
type Payload struct {
	Filename string
	Data     []byte
}

// Result describes one successfully stored photo.
type Result struct {
	ID           string          `json:"id"`
	ImageURL     string          `json:"imageURL"`
	ThumbnailURL string          `json:"thumbnailURL"`
	CaptureDate  *time.Time      `json:"captureDate,omitempty"`
	Coordinate   *geo.Coordinate `json:"location,omitempty"`
	HasMetadata  bool            `json:"hasExif"`
}

// Coordinator fans photo uploads out to a bounded worker pool. Photos that
// fail are logged and dropped; the batch never fails as a whole.
type Coordinator struct {
	store   storage.BlobStore
	logger  *zap.Logger
	workers int
	timeout time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers overrides the worker pool size.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPhotoTimeout overrides the per-photo processing timeout.
func WithPhotoTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator creates an upload coordinator writing to store.
func NewCoordinator(store storage.BlobStore, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		logger:  logger,
		workers: DefaultWorkers,
		timeout: DefaultPhotoTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process stores the payloads for ownerID and returns one Result per photo
// that succeeded, in input order. Failures are logged and omitted.
func (c *Coordinator) Process(ctx context.Context, ownerID string, payloads []Payload) []Result {
	if len(payloads) == 0 {
		return nil
	}

	sem := make(chan struct{}, c.workers)
	results := make([]*Result, len(payloads))

	var wg sync.WaitGroup
	for i, payload := range payloads {
		wg.Add(1)
		go func(i int, payload Payload) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			photoCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			done := make(chan *Result, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("photo processing panicked",
							zap.String("filename", payload.Filename),
							zap.Any("panic", r))
						done <- nil
					}
				}()

				result, err := c.processOne(photoCtx, ownerID, payload)
				if err != nil {
					c.logger.Warn("dropping failed photo",
						zap.String("filename", payload.Filename),
						zap.Error(err))
					done <- nil
					return
				}
				done <- result
			}()

			// The deadline must hold even when processing stalls somewhere
			// that never checks the context, so the worker abandons the
			// photo rather than waiting it out.
			select {
			case result := <-done:
				results[i] = result
			case <-photoCtx.Done():
				c.logger.Warn("dropping photo after timeout",
					zap.String("filename", payload.Filename),
					zap.Duration("timeout", c.timeout))
			}
		}(i, payload)
	}
	wg.Wait()

	out := make([]Result, 0, len(payloads))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (c *Coordinator) processOne(ctx context.Context, ownerID string, payload Payload) (*Result, error) {
	md := exifdata.Extract(payload.Data)

	thumb, err := exifdata.Thumbnail(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}

	id := uuid.NewString()
	ext := extension(payload.Filename)
	photoPath := fmt.Sprintf("%s/%s.%s", ownerID, id, ext)
	thumbPath := fmt.Sprintf("%s/%s.jpg", ownerID, id)

	if err := c.store.Put(ctx, photoBucket, photoPath, payload.Data, contentType(ext)); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}
	if err := c.store.Put(ctx, thumbnailBucket, thumbPath, thumb, "image/jpeg"); err != nil {
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	result := &Result{
		ID:           id,
		ImageURL:     c.store.PublicURL(photoBucket, photoPath),
		ThumbnailURL: c.store.PublicURL(thumbnailBucket, thumbPath),
		HasMetadata:  md.HasMetadata,
	}
	if !md.TakenAt.IsZero() {
		taken := md.TakenAt
		result.CaptureDate = &taken
	}
	if md.HasGPS {
		coord := md.Coordinate
		result.Coordinate = &coord
	}
	return result, nil
}

// extension returns the lowercased filename extension without the dot,
// defaulting to jpg.
func extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}

func contentType(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
