// Package itinerary turns a pile of photos into a structured trip itinerary:
// destinations, per-destination activities and a whole-trip narrative.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tripweaver/internal/ai"
	"tripweaver/internal/geo"
)

// ErrNoLocationData is returned when no input photo carries a usable
// coordinate.
var ErrNoLocationData = errors.New("no photos with location data")

// GenerationError wraps an unexpected failure during itinerary assembly.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return "itinerary generation failed: " + e.Cause.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// PhotoInput is one photo offered to the assembler. Coordinate is nil when
// the photo has no GPS data; TakenAt is the zero time when the capture time
// is unknown.
type PhotoInput struct {
	ID         string
	ImageURL   string
	TakenAt    time.Time
	Coordinate *geo.Coordinate
}

// Activity is one scheduled entry at a destination.
type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduledAt,omitzero"`
	AIGenerated bool      `json:"aiGenerated"`
}

// Location is one destination on the itinerary.
type Location struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Coordinate geo.Coordinate `json:"coordinates"`
	VisitDate  time.Time      `json:"visitDate,omitzero"`
	Summary    string         `json:"summary"`
	Activities []Activity     `json:"activities"`
	PhotoIDs   []string       `json:"photoIds,omitempty"`
}

// Itinerary is the assembled trip.
type Itinerary struct {
	Narrative string     `json:"narrative"`
	Locations []Location `json:"locations"`
	StartDate time.Time  `json:"startDate,omitzero"`
	EndDate   time.Time  `json:"endDate,omitzero"`
}

// Namer resolves a coordinate to a human-readable place name.
type Namer interface {
	LocationName(ctx context.Context, coord geo.Coordinate) string
}

// Oracle supplies the generative parts of the itinerary. Both operations
// degrade internally and never fail.
type Oracle interface {
	ActivitiesForLocation(ctx context.Context, images [][]byte, location string) ai.ActivityResult
	Narrative(ctx context.Context, summaries []string, start, end time.Time) string
}

const (
	firstActivityHour    = 9
	activitySpacingHours = 3
)

// Generator assembles itineraries from photos.
type Generator struct {
	namer       Namer
	oracle      Oracle
	logger      *zap.Logger
	thresholdKM float64
	timeGap     time.Duration
	fetchImages func(ctx context.Context, urls []string, max int) [][]byte
}

// Option configures a Generator.
type Option func(*Generator)

// WithClusterThreshold overrides the spatial clustering threshold in km.
func WithClusterThreshold(km float64) Option {
	return func(g *Generator) { g.thresholdKM = km }
}

// WithTemporalGap overrides the visit split gap.
func WithTemporalGap(gap time.Duration) Option {
	return func(g *Generator) { g.timeGap = gap }
}

// WithImageFetcher overrides photo downloading, used by tests.
func WithImageFetcher(fetch func(ctx context.Context, urls []string, max int) [][]byte) Option {
	return func(g *Generator) { g.fetchImages = fetch }
}

// NewGenerator creates an itinerary generator.
func NewGenerator(namer Namer, oracle Oracle, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		namer:       namer,
		oracle:      oracle,
		logger:      logger,
		thresholdKM: geo.DefaultThresholdKM,
		timeGap:     geo.DefaultTimeGap,
	}
	g.fetchImages = func(ctx context.Context, urls []string, max int) [][]byte {
		return ai.FetchImages(ctx, logger, urls, max)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate assembles an itinerary from the given photos. Photos without a
// coordinate are ignored; if none remain, ErrNoLocationData is returned.
// Any unexpected failure surfaces as a GenerationError.
func (g *Generator) Generate(ctx context.Context, photos []PhotoInput) (itinerary *Itinerary, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("itinerary generation panicked", zap.Any("panic", r))
			itinerary = nil
			err = &GenerationError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	located := make([]PhotoInput, 0, len(photos))
	for _, p := range photos {
		if p.Coordinate != nil && p.Coordinate.Valid() {
			located = append(located, p)
		}
	}
	if len(located) == 0 {
		return nil, ErrNoLocationData
	}

	// Zero capture times sort first, preserving input order among themselves.
	sort.SliceStable(located, func(i, j int) bool {
		return located[i].TakenAt.Before(located[j].TakenAt)
	})

	members := make([]geo.Member, len(located))
	for i, p := range located {
		members[i] = geo.Member{
			ID:         strconv.Itoa(i),
			Coordinate: *p.Coordinate,
			TakenAt:    p.TakenAt,
		}
	}

	clusters := geo.SplitByTimeGaps(geo.ClusterByProximity(members, g.thresholdKM), g.timeGap)

	start, end := captureRange(located)

	locations := make([]Location, 0, len(clusters))
	summaries := make([]string, 0, len(clusters))
	for _, cluster := range clusters {
		loc := g.buildLocation(ctx, cluster, located)
		summaries = append(summaries, loc.Summary)
		locations = append(locations, loc)
	}

	narrative := g.oracle.Narrative(ctx, summaries, start, end)

	return &Itinerary{
		Narrative: narrative,
		Locations: locations,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func (g *Generator) buildLocation(ctx context.Context, cluster geo.Cluster, located []PhotoInput) Location {
	name := g.namer.LocationName(ctx, cluster.Center)

	var urls []string
	var photoIDs []string
	for _, m := range cluster.Members {
		idx, _ := strconv.Atoi(m.ID)
		photo := located[idx]
		if photo.ImageURL != "" {
			urls = append(urls, photo.ImageURL)
		}
		if photo.ID != "" {
			photoIDs = append(photoIDs, photo.ID)
		}
	}

	images := g.fetchImages(ctx, urls, ai.MaxActivityImages)
	result := g.oracle.ActivitiesForLocation(ctx, images, name)
	if result.Fallback {
		g.logger.Info("using fallback activities", zap.String("location", name))
	}

	visitDate := cluster.EarliestCapture()

	activities := make([]Activity, 0, len(result.Activities))
	for j, activity := range result.Activities {
		activities = append(activities, Activity{
			ID:          uuid.NewString(),
			Title:       activity.Title,
			Description: activity.Description,
			ScheduledAt: activityTime(visitDate, j),
			AIGenerated: true,
		})
	}

	return Location{
		ID:         uuid.NewString(),
		Name:       name,
		Coordinate: cluster.Center,
		VisitDate:  visitDate,
		Summary:    result.Summary,
		Activities: activities,
		PhotoIDs:   photoIDs,
	}
}

// activityTime schedules the j-th activity on the visit date, starting at
// 09:00 and spacing entries three hours apart, wrapping within the day.
func activityTime(visitDate time.Time, j int) time.Time {
	if visitDate.IsZero() {
		return time.Time{}
	}
	hour := (firstActivityHour + activitySpacingHours*j) % 24
	y, m, d := visitDate.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, visitDate.Location())
}

// captureRange returns the earliest and latest non-zero capture times.
func captureRange(photos []PhotoInput) (start, end time.Time) {
	for _, p := range photos {
		if p.TakenAt.IsZero() {
			continue
		}
		if start.IsZero() || p.TakenAt.Before(start) {
			start = p.TakenAt
		}
		if end.IsZero() || p.TakenAt.After(end) {
			end = p.TakenAt
		}
	}
	return start, end
}
