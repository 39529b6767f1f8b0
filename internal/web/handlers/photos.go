package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tripweaver/internal/storage/postgres"
	"tripweaver/internal/uploads"
)

// maxUploadSize caps a multipart upload at 256 MB.
const maxUploadSize = 256 << 20

// photoLister loads stored photos for a vacation.
type photoLister interface {
	ListVacationPhotos(ctx context.Context, vacationID string) ([]postgres.PhotoRecord, error)
}

// uploadProcessor runs photos through the upload pipeline.
type uploadProcessor interface {
	Process(ctx context.Context, ownerID string, payloads []uploads.Payload) []uploads.Result
}

// PhotosHandler handles photo upload and listing endpoints.
type PhotosHandler struct {
	coordinator uploadProcessor
	photos      photoLister
	logger      *zap.Logger
}

// NewPhotosHandler creates a photos handler.
func NewPhotosHandler(coordinator uploadProcessor, photos photoLister, logger *zap.Logger) *PhotosHandler {
	return &PhotosHandler{
		coordinator: coordinator,
		photos:      photos,
		logger:      logger,
	}
}

// readPayloads extracts photo payloads from the multipart form field "photos".
func readPayloads(r *http.Request) ([]uploads.Payload, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}

	var payloads []uploads.Payload
	for _, header := range r.MultipartForm.File["photos"] {
		file, err := header.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			continue
		}
		payloads = append(payloads, uploads.Payload{
			Filename: header.Filename,
			Data:     data,
		})
	}
	return payloads, nil
}

// ownerID identifies the uploading client. Without user accounts the owner
// comes from a header and defaults to "anonymous".
func ownerID(r *http.Request) string {
	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		return owner
	}
	return "anonymous"
}

// Upload handles a single-photo multipart upload.
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	payloads, err := readPayloads(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if len(payloads) != 1 {
		respondError(w, http.StatusBadRequest, "exactly one photo required")
		return
	}

	results := h.coordinator.Process(r.Context(), ownerID(r), payloads)
	if len(results) == 0 {
		respondError(w, http.StatusInternalServerError, "failed to process photo")
		return
	}

	respondJSON(w, http.StatusOK, results[0])
}

// UploadBatch handles a multi-photo multipart upload. The batch succeeds as
// long as at least one photo could be processed.
func (h *PhotosHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	payloads, err := readPayloads(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if len(payloads) == 0 {
		respondError(w, http.StatusBadRequest, "no photos provided")
		return
	}

	results := h.coordinator.Process(r.Context(), ownerID(r), payloads)
	if len(results) == 0 {
		respondError(w, http.StatusInternalServerError, "all photos failed to process")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"uploaded": results,
		"failed":   len(payloads) - len(results),
	})
}

// ListByVacation returns the stored photos of a vacation.
func (h *PhotosHandler) ListByVacation(w http.ResponseWriter, r *http.Request) {
	vacationID := chi.URLParam(r, "vacationID")

	photos, err := h.photos.ListVacationPhotos(r.Context(), vacationID)
	if err != nil {
		h.logger.Error("listing vacation photos failed",
			zap.String("vacationID", vacationID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"photos": photos})
}
