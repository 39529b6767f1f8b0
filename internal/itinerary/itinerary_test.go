package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"tripweaver/internal/ai"
	"tripweaver/internal/geo"
)

var (
	paris = geo.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	rome  = geo.Coordinate{Latitude: 41.9028, Longitude: 12.4964}
)

type fakeNamer struct {
	calls int
}

func (f *fakeNamer) LocationName(ctx context.Context, coord geo.Coordinate) string {
	f.calls++
	if geo.Haversine(coord, paris) < 50 {
		return "Paris, France"
	}
	if geo.Haversine(coord, rome) < 50 {
		return "Rome, Italy"
	}
	return fmt.Sprintf("%.4f, %.4f", coord.Latitude, coord.Longitude)
}

type fakeOracle struct {
	fallback       bool
	panicOnCall    bool
	narrativeCalls int
	lastSummaries  []string
}

func (f *fakeOracle) ActivitiesForLocation(ctx context.Context, images [][]byte, location string) ai.ActivityResult {
	if f.panicOnCall {
		panic("oracle exploded")
	}
	if f.fallback {
		return ai.FallbackActivities(location)
	}
	return ai.ActivityResult{
		Activities: []ai.Activity{
			{Title: "Visited the main square", Description: "Walked around the main square of " + location + "."},
			{Title: "Tried the local food", Description: "Sampled local dishes in " + location + "."},
		},
		Summary: "A day in " + location + ".",
	}
}

func (f *fakeOracle) Narrative(ctx context.Context, summaries []string, start, end time.Time) string {
	f.narrativeCalls++
	f.lastSummaries = summaries
	return "What a trip."
}

func noFetch(ctx context.Context, urls []string, max int) [][]byte {
	images := make([][]byte, 0, max)
	for range urls {
		if len(images) >= max {
			break
		}
		images = append(images, []byte{1})
	}
	return images
}

func newTestGenerator(namer Namer, oracle Oracle, opts ...Option) *Generator {
	opts = append([]Option{WithImageFetcher(noFetch)}, opts...)
	return NewGenerator(namer, oracle, zap.NewNop(), opts...)
}

func day(d int) time.Time {
	return time.Date(2024, 10, d, 12, 0, 0, 0, time.UTC)
}

func coord(c geo.Coordinate) *geo.Coordinate {
	return &c
}

func TestGenerate_NoLocationData(t *testing.T) {
	gen := newTestGenerator(&fakeNamer{}, &fakeOracle{})

	photos := []PhotoInput{
		{ID: "a", ImageURL: "http://x/a.jpg"},
		{ID: "b", ImageURL: "http://x/b.jpg", TakenAt: day(1)},
	}

	_, err := gen.Generate(context.Background(), photos)
	if !errors.Is(err, ErrNoLocationData) {
		t.Fatalf("expected ErrNoLocationData, got %v", err)
	}
}

func TestGenerate_TwoDestinations(t *testing.T) {
	namer := &fakeNamer{}
	oracle := &fakeOracle{}
	gen := newTestGenerator(namer, oracle)

	photos := []PhotoInput{
		{ID: "p1", ImageURL: "http://x/p1.jpg", Coordinate: coord(paris), TakenAt: day(1)},
		{ID: "p2", ImageURL: "http://x/p2.jpg", Coordinate: coord(geo.Coordinate{Latitude: 48.8570, Longitude: 2.3525}), TakenAt: day(1)},
		{ID: "r1", ImageURL: "http://x/r1.jpg", Coordinate: coord(rome), TakenAt: day(11)},
		{ID: "nogps", ImageURL: "http://x/n.jpg", TakenAt: day(2)},
	}

	it, err := gen.Generate(context.Background(), photos)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(it.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(it.Locations))
	}
	if it.Locations[0].Name != "Paris, France" {
		t.Errorf("unexpected first location '%s'", it.Locations[0].Name)
	}
	if it.Locations[1].Name != "Rome, Italy" {
		t.Errorf("unexpected second location '%s'", it.Locations[1].Name)
	}
	if len(it.Locations[0].PhotoIDs) != 2 {
		t.Errorf("expected 2 photos in Paris, got %v", it.Locations[0].PhotoIDs)
	}
	if it.Narrative != "What a trip." {
		t.Errorf("unexpected narrative '%s'", it.Narrative)
	}
	if oracle.narrativeCalls != 1 {
		t.Errorf("expected exactly 1 narrative call, got %d", oracle.narrativeCalls)
	}
	if len(oracle.lastSummaries) != 2 {
		t.Errorf("expected 2 summaries passed to narrative, got %v", oracle.lastSummaries)
	}
	if !it.StartDate.Equal(day(1)) || !it.EndDate.Equal(day(11)) {
		t.Errorf("unexpected trip range %v - %v", it.StartDate, it.EndDate)
	}
}

func TestGenerate_ActivityScheduling(t *testing.T) {
	oracle := &fakeOracle{}
	gen := newTestGenerator(&fakeNamer{}, oracle)

	photos := []PhotoInput{
		{ID: "p1", ImageURL: "http://x/p1.jpg", Coordinate: coord(paris), TakenAt: day(3)},
	}

	it, err := gen.Generate(context.Background(), photos)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	activities := it.Locations[0].Activities
	if len(activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(activities))
	}

	first := activities[0].ScheduledAt
	if first.Hour() != 9 || first.Day() != 3 {
		t.Errorf("expected first activity at 09:00 on day 3, got %v", first)
	}
	if activities[1].ScheduledAt.Hour() != 12 {
		t.Errorf("expected second activity at 12:00, got %v", activities[1].ScheduledAt)
	}

	if activities[0].ID == activities[1].ID || activities[0].ID == "" {
		t.Error("expected distinct non-empty activity ids")
	}
	for _, activity := range activities {
		if activity.Title == "" || activity.Description == "" {
			t.Errorf("expected title and description on %+v", activity)
		}
		if !activity.AIGenerated {
			t.Errorf("expected activity %s marked as AI generated", activity.ID)
		}
	}
}

func TestActivityTime_WrapsWithinDay(t *testing.T) {
	visit := day(5)

	// 9, 12, 15, 18, 21, 0, 3 ...
	if got := activityTime(visit, 5); got.Hour() != 0 {
		t.Errorf("expected 6th activity at 00:00, got %d", got.Hour())
	}
	if got := activityTime(visit, 6); got.Hour() != 3 {
		t.Errorf("expected 7th activity at 03:00, got %d", got.Hour())
	}
	if got := activityTime(time.Time{}, 0); !got.IsZero() {
		t.Errorf("expected zero time for unknown visit date, got %v", got)
	}
}

func TestGenerate_FallbackActivities(t *testing.T) {
	gen := newTestGenerator(&fakeNamer{}, &fakeOracle{fallback: true})

	photos := []PhotoInput{
		{ID: "p1", ImageURL: "http://x/p1.jpg", Coordinate: coord(paris), TakenAt: day(1)},
	}

	it, err := gen.Generate(context.Background(), photos)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	loc := it.Locations[0]
	if len(loc.Activities) != 1 {
		t.Fatalf("expected 1 fallback activity, got %+v", loc.Activities)
	}
	if loc.Activities[0].Title != "Explored Paris, France" {
		t.Errorf("unexpected fallback title '%s'", loc.Activities[0].Title)
	}
	if loc.Activities[0].Description != "Visited and captured memories at Paris, France" {
		t.Errorf("unexpected fallback description '%s'", loc.Activities[0].Description)
	}
	if loc.Summary != "Visited and captured memories at Paris, France" {
		t.Errorf("unexpected fallback summary '%s'", loc.Summary)
	}
}

func TestActivity_JSONShape(t *testing.T) {
	activity := Activity{
		ID:          "a1",
		Title:       "Explored Paris, France",
		Description: "Visited and captured memories at Paris, France",
		AIGenerated: true,
	}

	data, err := json.Marshal(activity)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded["title"] != "Explored Paris, France" {
		t.Errorf("expected title field, got %v", decoded["title"])
	}
	if decoded["description"] != "Visited and captured memories at Paris, France" {
		t.Errorf("expected description field, got %v", decoded["description"])
	}
	if decoded["aiGenerated"] != true {
		t.Errorf("expected aiGenerated true, got %v", decoded["aiGenerated"])
	}
}

func TestGenerate_PanicBecomesGenerationError(t *testing.T) {
	gen := newTestGenerator(&fakeNamer{}, &fakeOracle{panicOnCall: true})

	photos := []PhotoInput{
		{ID: "p1", ImageURL: "http://x/p1.jpg", Coordinate: coord(paris), TakenAt: day(1)},
	}

	it, err := gen.Generate(context.Background(), photos)
	if it != nil {
		t.Error("expected nil itinerary on panic")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerate_UnknownTimesStillCluster(t *testing.T) {
	gen := newTestGenerator(&fakeNamer{}, &fakeOracle{})

	photos := []PhotoInput{
		{ID: "p1", ImageURL: "http://x/p1.jpg", Coordinate: coord(paris)},
		{ID: "p2", ImageURL: "http://x/p2.jpg", Coordinate: coord(paris), TakenAt: day(2)},
	}

	it, err := gen.Generate(context.Background(), photos)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(it.Locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(it.Locations))
	}
	if len(it.Locations[0].PhotoIDs) != 2 {
		t.Errorf("expected both photos grouped, got %v", it.Locations[0].PhotoIDs)
	}
	if !it.Locations[0].VisitDate.Equal(day(2)) {
		t.Errorf("expected visit date from the dated photo, got %v", it.Locations[0].VisitDate)
	}
}
