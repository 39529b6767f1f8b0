package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

//go:embed prompts/activities.txt
var activitiesPrompt string

//go:embed prompts/narrative.txt
var narrativePrompt string

//go:embed prompts/caption.txt
var captionPrompt string

//go:embed prompts/trip_name.txt
var tripNamePrompt string

//go:embed prompts/trip_summary.txt
var tripSummaryPrompt string

//go:embed prompts/tags.txt
var tagsPrompt string

//go:embed prompts/highlights.txt
var highlightsPrompt string

// MaxActivityImages caps how many photos are sent per destination.
const MaxActivityImages = 5

const dateLayout = "2006-01-02"

// Oracle exposes the trip journal operations on top of a generative AI
// Provider. Operations that feed itinerary generation never fail; they
// degrade to synthetic fallback values instead.
type Oracle struct {
	provider Provider
	logger   *zap.Logger
}

// NewOracle wraps a provider with the journal operations.
func NewOracle(provider Provider, logger *zap.Logger) *Oracle {
	return &Oracle{provider: provider, logger: logger}
}

// Provider returns the wrapped provider, used for usage reporting.
func (o *Oracle) Provider() Provider {
	return o.provider
}

// Activity is one activity identified at a destination.
type Activity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ActivityResult holds the activities identified for one destination.
// Fallback marks results synthesized after a model failure.
type ActivityResult struct {
	Activities []Activity
	Summary    string
	Fallback   bool
}

// FallbackActivities returns the synthetic result used when the model cannot
// be consulted for a destination.
func FallbackActivities(location string) ActivityResult {
	return ActivityResult{
		Activities: []Activity{{
			Title:       "Explored " + location,
			Description: "Visited and captured memories at " + location,
		}},
		Summary:  "Visited and captured memories at " + location,
		Fallback: true,
	}
}

type activitiesPayload struct {
	Activities     []Activity `json:"activities"`
	OverallSummary string     `json:"overall_summary"`
}

// ActivitiesForLocation asks the model what the traveler did at location,
// based on up to MaxActivityImages photos. It never returns an error: model
// failures and unparseable output yield the fallback result, and without any
// images the model is not consulted and the activity list stays empty.
func (o *Oracle) ActivitiesForLocation(ctx context.Context, images [][]byte, location string) ActivityResult {
	if len(images) > MaxActivityImages {
		images = images[:MaxActivityImages]
	}
	if len(images) == 0 {
		return ActivityResult{}
	}

	userMessage := fmt.Sprintf("Destination: %s\nPhotos attached: %d", location, len(images))

	raw, err := o.provider.DescribeImages(ctx, activitiesPrompt, userMessage, images)
	if err != nil {
		o.logger.Warn("activity generation failed, using fallback",
			zap.String("location", location),
			zap.Error(err))
		return FallbackActivities(location)
	}

	var payload activitiesPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil || len(payload.Activities) == 0 {
		o.logger.Warn("unparseable activity response, using fallback",
			zap.String("location", location),
			zap.String("response", truncate(raw, 200)))
		result := FallbackActivities(location)
		if text := strings.TrimSpace(raw); text != "" {
			result.Summary = truncate(text, 300)
		}
		return result
	}

	return ActivityResult{
		Activities: payload.Activities,
		Summary:    payload.OverallSummary,
	}
}

// Narrative writes the whole-trip narrative from per-destination summaries.
// It never returns an error; failures yield a generic narrative.
func (o *Oracle) Narrative(ctx context.Context, summaries []string, start, end time.Time) string {
	fallback := fmt.Sprintf("A memorable journey through %d destinations.", len(summaries))

	var b strings.Builder
	if !start.IsZero() && !end.IsZero() {
		fmt.Fprintf(&b, "Trip dates: %s to %s\n", start.Format(dateLayout), end.Format(dateLayout))
	}
	b.WriteString("Destination summaries:\n")
	for i, summary := range summaries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, summary)
	}

	raw, err := o.provider.GenerateText(ctx, narrativePrompt, b.String())
	if err != nil {
		o.logger.Warn("narrative generation failed, using fallback", zap.Error(err))
		return fallback
	}

	narrative := stripQuotes(stripCodeFence(raw))
	if narrative == "" {
		return fallback
	}
	return narrative
}

// CaptionPhoto describes a single photo for the journal.
func (o *Oracle) CaptionPhoto(ctx context.Context, image []byte) (string, error) {
	raw, err := o.provider.DescribeImages(ctx, captionPrompt, "Describe this photo.", [][]byte{image})
	if err != nil {
		return "", fmt.Errorf("failed to caption photo: %w", err)
	}
	return stripQuotes(stripCodeFence(raw)), nil
}

// TripName proposes a short trip name from destinations, dates and tags.
func (o *Oracle) TripName(ctx context.Context, locations []string, start, end time.Time, tags []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Destinations: %s\n", strings.Join(locations, ", "))
	if !start.IsZero() && !end.IsZero() {
		fmt.Fprintf(&b, "Dates: %s to %s\n", start.Format(dateLayout), end.Format(dateLayout))
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tags, ", "))
	}

	raw, err := o.provider.GenerateText(ctx, tripNamePrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("failed to generate trip name: %w", err)
	}

	name := stripQuotes(stripCodeFence(raw))
	if name == "" {
		return "", fmt.Errorf("empty trip name response")
	}
	return truncate(name, 80), nil
}

// TripSummary writes a trip summary from its title, destinations and
// activities.
func (o *Oracle) TripSummary(ctx context.Context, title string, locations, activities []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Trip title: %s\n", title)
	fmt.Fprintf(&b, "Destinations: %s\n", strings.Join(locations, ", "))
	if len(activities) > 0 {
		b.WriteString("Activities:\n")
		for i, activity := range activities {
			fmt.Fprintf(&b, "%d. %s\n", i+1, activity)
		}
	}

	raw, err := o.provider.GenerateText(ctx, tripSummaryPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("failed to generate trip summary: %w", err)
	}

	summary := stripQuotes(stripCodeFence(raw))
	if summary == "" {
		return "", fmt.Errorf("empty trip summary response")
	}
	return summary, nil
}

type tagsPayload struct {
	Tags []string `json:"tags"`
}

// SuggestTags proposes normalized tags for a trip.
func (o *Oracle) SuggestTags(ctx context.Context, locations []string, photoCount int) ([]string, error) {
	userMessage := fmt.Sprintf("Destinations: %s\nPhoto count: %d",
		strings.Join(locations, ", "), photoCount)

	raw, err := o.provider.GenerateText(ctx, tagsPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}

	var payload tagsPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse tags JSON: %w (response: %s)", err, truncate(raw, 200))
	}

	tags := normalizeTags(payload.Tags)
	if len(tags) == 0 {
		return nil, fmt.Errorf("no usable tags in response")
	}
	return tags, nil
}

// HighlightPhoto is one photo offered to highlight selection.
type HighlightPhoto struct {
	ID       string
	Caption  string
	Location string
	TakenAt  time.Time
}

// Highlight is one selected trip highlight.
type Highlight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	PhotoIDs    []string `json:"photo_ids"`
	Confidence  float64  `json:"confidence"`
}

type highlightsPayload struct {
	Highlights []Highlight `json:"highlights"`
}

// MemoryHighlights picks the most memorable moments of a trip. Highlights
// referencing unknown photo ids are dropped.
func (o *Oracle) MemoryHighlights(ctx context.Context, tripTitle string, photos []HighlightPhoto) ([]Highlight, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photos to select highlights from")
	}

	known := make(map[string]bool, len(photos))
	var b strings.Builder
	fmt.Fprintf(&b, "Trip title: %s\nPhotos:\n", tripTitle)
	for _, photo := range photos {
		known[photo.ID] = true
		fmt.Fprintf(&b, "- id=%s", photo.ID)
		if photo.Location != "" {
			fmt.Fprintf(&b, " location=%s", photo.Location)
		}
		if !photo.TakenAt.IsZero() {
			fmt.Fprintf(&b, " date=%s", photo.TakenAt.Format(dateLayout))
		}
		if photo.Caption != "" {
			fmt.Fprintf(&b, " caption=%s", photo.Caption)
		}
		b.WriteString("\n")
	}

	raw, err := o.provider.GenerateText(ctx, highlightsPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate highlights: %w", err)
	}

	var payload highlightsPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse highlights JSON: %w (response: %s)", err, truncate(raw, 200))
	}

	var highlights []Highlight
	for _, h := range payload.Highlights {
		var ids []string
		for _, id := range h.PhotoIDs {
			if known[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			o.logger.Warn("dropping highlight without known photo references",
				zap.String("title", h.Title))
			continue
		}
		h.PhotoIDs = ids
		highlights = append(highlights, h)
	}

	if len(highlights) == 0 {
		return nil, fmt.Errorf("no usable highlights in response")
	}
	return highlights, nil
}
