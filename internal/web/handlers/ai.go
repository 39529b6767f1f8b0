package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tripweaver/internal/ai"
	"tripweaver/internal/geo"
	"tripweaver/internal/itinerary"
	"tripweaver/internal/storage/postgres"
)

// photoAssociationDegrees is how close (in degrees, per axis) a photo must be
// to a destination to be assigned to it.
const photoAssociationDegrees = 0.1

// itineraryGenerator assembles itineraries from photos.
type itineraryGenerator interface {
	Generate(ctx context.Context, photos []itinerary.PhotoInput) (*itinerary.Itinerary, error)
}

// journalOracle exposes the generative operations the AI endpoints use.
type journalOracle interface {
	CaptionPhoto(ctx context.Context, image []byte) (string, error)
	TripName(ctx context.Context, locations []string, start, end time.Time, tags []string) (string, error)
	TripSummary(ctx context.Context, title string, locations, activities []string) (string, error)
	SuggestTags(ctx context.Context, locations []string, photoCount int) ([]string, error)
	MemoryHighlights(ctx context.Context, tripTitle string, photos []ai.HighlightPhoto) ([]ai.Highlight, error)
}

// vacationStore persists the journal entities.
type vacationStore interface {
	CreateVacation(ctx context.Context, v *postgres.VacationRecord) error
	CreateLocation(ctx context.Context, l *postgres.LocationRecord) error
	CreateActivity(ctx context.Context, a *postgres.ActivityRecord) error
	CreatePhoto(ctx context.Context, p *postgres.PhotoRecord) error
	GetVacation(ctx context.Context, id string) (*postgres.VacationRecord, error)
	UpdateSummary(ctx context.Context, vacationID, summary string) error
	AddTags(ctx context.Context, vacationID string, tags []string) error
	CreateHighlight(ctx context.Context, h *postgres.HighlightRecord) error
	ListHighlights(ctx context.Context, vacationID string) ([]postgres.HighlightRecord, error)
}

// AIHandler handles the generative endpoints.
type AIHandler struct {
	generator itineraryGenerator
	oracle    journalOracle
	store     vacationStore
	logger    *zap.Logger
	fetch     func(ctx context.Context, urls []string, max int) [][]byte
}

// NewAIHandler creates a handler for the AI endpoints.
func NewAIHandler(generator itineraryGenerator, oracle journalOracle, store vacationStore, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		generator: generator,
		oracle:    oracle,
		store:     store,
		logger:    logger,
		fetch: func(ctx context.Context, urls []string, max int) [][]byte {
			return ai.FetchImages(ctx, logger, urls, max)
		},
	}
}

type itineraryRequest struct {
	Title  string `json:"title"`
	Photos []struct {
		ImageURL    string          `json:"imageURL"`
		CaptureDate string          `json:"captureDate"`
		Coordinates *geo.Coordinate `json:"coordinates"`
	} `json:"photos"`
}

// GenerateItinerary builds an itinerary from the posted photos and persists
// it as a vacation with locations, activities and photo assignments.
func (h *AIHandler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	var req itineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Photos) == 0 {
		respondError(w, http.StatusBadRequest, "no photos provided")
		return
	}

	inputs := make([]itinerary.PhotoInput, 0, len(req.Photos))
	for _, p := range req.Photos {
		input := itinerary.PhotoInput{
			ID:         uuid.NewString(),
			ImageURL:   p.ImageURL,
			Coordinate: p.Coordinates,
		}
		if ts, ok := parseTimestamp(p.CaptureDate); ok {
			input.TakenAt = ts
		}
		inputs = append(inputs, input)
	}

	result, err := h.generator.Generate(r.Context(), inputs)
	if err != nil {
		if errors.Is(err, itinerary.ErrNoLocationData) {
			respondError(w, http.StatusBadRequest, "no photos with location data")
			return
		}
		h.logger.Error("itinerary generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate itinerary")
		return
	}

	vacation, err := h.persistItinerary(r.Context(), req.Title, result, inputs)
	if err != nil {
		h.logger.Error("persisting itinerary failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save itinerary")
		return
	}

	respondJSON(w, http.StatusCreated, vacation)
}

func (h *AIHandler) persistItinerary(ctx context.Context, title string, result *itinerary.Itinerary, inputs []itinerary.PhotoInput) (*postgres.VacationRecord, error) {
	if title == "" {
		if len(result.Locations) > 0 {
			title = "Trip to " + result.Locations[0].Name
		} else {
			title = "Untitled Trip"
		}
	}

	vacation := &postgres.VacationRecord{
		ID:        uuid.NewString(),
		Title:     title,
		Summary:   result.Narrative,
		StartDate: timePtr(result.StartDate),
		EndDate:   timePtr(result.EndDate),
	}
	if err := h.store.CreateVacation(ctx, vacation); err != nil {
		return nil, err
	}

	for i, loc := range result.Locations {
		record := &postgres.LocationRecord{
			ID:         loc.ID,
			VacationID: vacation.ID,
			Name:       loc.Name,
			Latitude:   loc.Coordinate.Latitude,
			Longitude:  loc.Coordinate.Longitude,
			VisitDate:  timePtr(loc.VisitDate),
			Summary:    loc.Summary,
			Position:   i,
		}
		if err := h.store.CreateLocation(ctx, record); err != nil {
			return nil, err
		}

		for j, activity := range loc.Activities {
			if err := h.store.CreateActivity(ctx, &postgres.ActivityRecord{
				ID:          activity.ID,
				LocationID:  loc.ID,
				Title:       activity.Title,
				Description: activity.Description,
				ScheduledAt: timePtr(activity.ScheduledAt),
				AIGenerated: activity.AIGenerated,
				Position:    j,
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, input := range inputs {
		record := &postgres.PhotoRecord{
			ID:         input.ID,
			VacationID: vacation.ID,
			ImageURL:   input.ImageURL,
			TakenAt:    timePtr(input.TakenAt),
		}
		if input.Coordinate != nil {
			lat, lon := input.Coordinate.Latitude, input.Coordinate.Longitude
			record.Latitude = &lat
			record.Longitude = &lon
			record.LocationID = nearestLocationID(result.Locations, *input.Coordinate)
		}
		if err := h.store.CreatePhoto(ctx, record); err != nil {
			return nil, err
		}
	}

	return h.store.GetVacation(ctx, vacation.ID)
}

// nearestLocationID assigns a photo to the first destination within
// photoAssociationDegrees on both axes, or to nothing.
func nearestLocationID(locations []itinerary.Location, coord geo.Coordinate) string {
	for _, loc := range locations {
		if math.Abs(loc.Coordinate.Latitude-coord.Latitude) < photoAssociationDegrees &&
			math.Abs(loc.Coordinate.Longitude-coord.Longitude) < photoAssociationDegrees {
			return loc.ID
		}
	}
	return ""
}

// AnalyzePhoto captions a single photo by URL.
func (h *AIHandler) AnalyzePhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"imageURL"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		respondError(w, http.StatusBadRequest, "imageURL is required")
		return
	}

	images := h.fetch(r.Context(), []string{req.ImageURL}, 1)
	if len(images) == 0 {
		respondError(w, http.StatusInternalServerError, "failed to download photo")
		return
	}

	caption, err := h.oracle.CaptionPhoto(r.Context(), images[0])
	if err != nil {
		h.logger.Error("photo captioning failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to analyze photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"caption": caption})
}

// GenerateTripName proposes a trip name for the given destinations.
func (h *AIHandler) GenerateTripName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locations []string `json:"locations"`
		StartDate string   `json:"startDate"`
		EndDate   string   `json:"endDate"`
		Tags      []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Locations) == 0 {
		respondError(w, http.StatusBadRequest, "locations are required")
		return
	}

	start, _ := parseTimestamp(req.StartDate)
	end, _ := parseTimestamp(req.EndDate)

	name, err := h.oracle.TripName(r.Context(), req.Locations, start, end, req.Tags)
	if err != nil {
		h.logger.Error("trip name generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate trip name")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"name": name})
}

// SuggestTags proposes tags for the given destinations.
func (h *AIHandler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locations  []string `json:"locations"`
		PhotoCount int      `json:"photoCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Locations) == 0 {
		respondError(w, http.StatusBadRequest, "locations are required")
		return
	}

	tags, err := h.oracle.SuggestTags(r.Context(), req.Locations, req.PhotoCount)
	if err != nil {
		h.logger.Error("tag suggestion failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to suggest tags")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// GenerateSummary writes and persists a summary for a stored vacation.
func (h *AIHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	vacationID := chi.URLParam(r, "id")

	vacation, err := h.store.GetVacation(r.Context(), vacationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "vacation not found")
			return
		}
		h.logger.Error("loading vacation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load vacation")
		return
	}

	var locations, activities []string
	for _, loc := range vacation.Locations {
		locations = append(locations, loc.Name)
		for _, activity := range loc.Activities {
			activities = append(activities, activity.Title)
		}
	}

	summary, err := h.oracle.TripSummary(r.Context(), vacation.Title, locations, activities)
	if err != nil {
		h.logger.Error("summary generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate summary")
		return
	}

	if err := h.store.UpdateSummary(r.Context(), vacationID, summary); err != nil {
		h.logger.Error("saving summary failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save summary")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// GenerateHighlights picks and persists memory highlights for a vacation.
func (h *AIHandler) GenerateHighlights(w http.ResponseWriter, r *http.Request) {
	vacationID := chi.URLParam(r, "id")

	vacation, err := h.store.GetVacation(r.Context(), vacationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "vacation not found")
			return
		}
		h.logger.Error("loading vacation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load vacation")
		return
	}
	if len(vacation.Photos) == 0 {
		respondError(w, http.StatusBadRequest, "vacation has no photos")
		return
	}

	photos := make([]ai.HighlightPhoto, 0, len(vacation.Photos))
	for _, p := range vacation.Photos {
		photo := ai.HighlightPhoto{
			ID:       p.ID,
			Caption:  p.Caption,
			Location: locationName(vacation.Locations, p.LocationID),
		}
		if p.TakenAt != nil {
			photo.TakenAt = *p.TakenAt
		}
		photos = append(photos, photo)
	}

	highlights, err := h.oracle.MemoryHighlights(r.Context(), vacation.Title, photos)
	if err != nil {
		h.logger.Error("highlight generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate highlights")
		return
	}

	records := make([]postgres.HighlightRecord, 0, len(highlights))
	for _, highlight := range highlights {
		record := postgres.HighlightRecord{
			ID:          uuid.NewString(),
			VacationID:  vacationID,
			Title:       highlight.Title,
			Description: highlight.Description,
			Type:        highlight.Type,
			PhotoIDs:    highlight.PhotoIDs,
			Confidence:  highlight.Confidence,
		}
		if err := h.store.CreateHighlight(r.Context(), &record); err != nil {
			h.logger.Error("saving highlight failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to save highlights")
			return
		}
		records = append(records, record)
	}

	respondJSON(w, http.StatusOK, map[string]any{"highlights": records})
}

// ListHighlights returns a vacation's stored highlights.
func (h *AIHandler) ListHighlights(w http.ResponseWriter, r *http.Request) {
	vacationID := chi.URLParam(r, "id")

	highlights, err := h.store.ListHighlights(r.Context(), vacationID)
	if err != nil {
		h.logger.Error("listing highlights failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list highlights")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"highlights": highlights})
}

// AddTags attaches normalized tags to a vacation.
func (h *AIHandler) AddTags(w http.ResponseWriter, r *http.Request) {
	vacationID := chi.URLParam(r, "id")

	var req struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Tags) == 0 {
		respondError(w, http.StatusBadRequest, "tags are required")
		return
	}

	var tags []string
	for _, tag := range req.Tags {
		if normalized := ai.NormalizeTag(tag); normalized != "" {
			tags = append(tags, normalized)
		}
	}
	if len(tags) == 0 {
		respondError(w, http.StatusBadRequest, "no usable tags")
		return
	}

	if err := h.store.AddTags(r.Context(), vacationID, tags); err != nil {
		h.logger.Error("saving tags failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save tags")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func locationName(locations []postgres.LocationRecord, locationID string) string {
	for _, loc := range locations {
		if loc.ID == locationID {
			return loc.Name
		}
	}
	return ""
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
