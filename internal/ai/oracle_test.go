package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeProvider returns canned responses or errors for oracle tests.
type fakeProvider struct {
	textResponse  string
	textErr       error
	imageResponse string
	imageErr      error

	textCalls  int
	imageCalls int
	lastUser   string
	usage      Usage
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GenerateText(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	f.textCalls++
	f.lastUser = userMessage
	return f.textResponse, f.textErr
}

func (f *fakeProvider) DescribeImages(ctx context.Context, systemPrompt, userMessage string, images [][]byte) (string, error) {
	f.imageCalls++
	f.lastUser = userMessage
	return f.imageResponse, f.imageErr
}

func (f *fakeProvider) GetUsage() *Usage { return &f.usage }
func (f *fakeProvider) ResetUsage()      { f.usage = Usage{} }

func newTestOracle(p Provider) *Oracle {
	return NewOracle(p, zap.NewNop())
}

// --- ActivitiesForLocation tests ---

func TestActivitiesForLocation_Success(t *testing.T) {
	provider := &fakeProvider{
		imageResponse: `{"activities":[
			{"title":"Climbed the Eiffel Tower","description":"Went up to the second floor at dusk."},
			{"title":"Strolled through Montmartre","description":"Wandered the streets around the Sacré-Cœur."}
		],"overall_summary":"A full day in Paris."}`,
	}
	oracle := newTestOracle(provider)

	result := oracle.ActivitiesForLocation(context.Background(), [][]byte{{1}}, "Paris, France")

	if result.Fallback {
		t.Error("expected Fallback false")
	}
	if len(result.Activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(result.Activities))
	}
	if result.Activities[0].Title != "Climbed the Eiffel Tower" {
		t.Errorf("unexpected title '%s'", result.Activities[0].Title)
	}
	if result.Activities[0].Description != "Went up to the second floor at dusk." {
		t.Errorf("unexpected description '%s'", result.Activities[0].Description)
	}
	if result.Summary != "A full day in Paris." {
		t.Errorf("unexpected summary '%s'", result.Summary)
	}
}

func TestActivitiesForLocation_FencedJSON(t *testing.T) {
	provider := &fakeProvider{
		imageResponse: "```json\n{\"activities\":[{\"title\":\"Visited the Colosseum\",\"description\":\"Toured the arena floor.\"}],\"overall_summary\":\"Rome.\"}\n```",
	}
	oracle := newTestOracle(provider)

	result := oracle.ActivitiesForLocation(context.Background(), [][]byte{{1}}, "Rome, Italy")

	if result.Fallback {
		t.Error("expected fenced JSON to parse")
	}
	if len(result.Activities) != 1 || result.Activities[0].Title != "Visited the Colosseum" {
		t.Errorf("unexpected activities %+v", result.Activities)
	}
}

func TestActivitiesForLocation_ProviderErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{imageErr: errors.New("model unavailable")}
	oracle := newTestOracle(provider)

	result := oracle.ActivitiesForLocation(context.Background(), [][]byte{{1}}, "Paris, France")

	if !result.Fallback {
		t.Fatal("expected Fallback true")
	}
	if len(result.Activities) != 1 {
		t.Fatalf("expected 1 fallback activity, got %d", len(result.Activities))
	}
	if result.Activities[0].Title != "Explored Paris, France" {
		t.Errorf("unexpected fallback title '%s'", result.Activities[0].Title)
	}
	if result.Activities[0].Description != "Visited and captured memories at Paris, France" {
		t.Errorf("unexpected fallback description '%s'", result.Activities[0].Description)
	}
	if result.Summary != "Visited and captured memories at Paris, France" {
		t.Errorf("unexpected fallback summary '%s'", result.Summary)
	}
}

func TestActivitiesForLocation_UnparseableKeepsRawAsSummary(t *testing.T) {
	provider := &fakeProvider{imageResponse: "The traveler clearly enjoyed the old town."}
	oracle := newTestOracle(provider)

	result := oracle.ActivitiesForLocation(context.Background(), [][]byte{{1}}, "Prague, Czechia")

	if !result.Fallback {
		t.Fatal("expected Fallback true for unparseable response")
	}
	if result.Activities[0].Title != "Explored Prague, Czechia" {
		t.Errorf("unexpected activities %+v", result.Activities)
	}
	if result.Summary != "The traveler clearly enjoyed the old town." {
		t.Errorf("expected raw text as summary, got '%s'", result.Summary)
	}
}

func TestActivitiesForLocation_NoImagesSkipsModel(t *testing.T) {
	provider := &fakeProvider{}
	oracle := newTestOracle(provider)

	result := oracle.ActivitiesForLocation(context.Background(), nil, "Lyon, France")

	if len(result.Activities) != 0 {
		t.Errorf("expected empty activities without images, got %+v", result.Activities)
	}
	if result.Fallback {
		t.Error("expected no fallback marker without images")
	}
	if provider.imageCalls != 0 {
		t.Errorf("expected no model call, got %d", provider.imageCalls)
	}
}

func TestActivitiesForLocation_CapsImages(t *testing.T) {
	provider := &fakeProvider{
		imageResponse: `{"activities":[{"title":"Walked","description":"Around town."}],"overall_summary":"ok"}`,
	}
	oracle := newTestOracle(provider)

	images := make([][]byte, 9)
	for i := range images {
		images[i] = []byte{byte(i)}
	}

	oracle.ActivitiesForLocation(context.Background(), images, "Paris, France")

	if !strings.Contains(provider.lastUser, "Photos attached: 5") {
		t.Errorf("expected image count capped at 5, user message: %s", provider.lastUser)
	}
}

// --- Narrative tests ---

func TestNarrative_Success(t *testing.T) {
	provider := &fakeProvider{textResponse: "We wandered from Paris to Rome."}
	oracle := newTestOracle(provider)

	got := oracle.Narrative(context.Background(), []string{"Paris", "Rome"}, time.Time{}, time.Time{})

	if got != "We wandered from Paris to Rome." {
		t.Errorf("unexpected narrative '%s'", got)
	}
}

func TestNarrative_ErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{textErr: errors.New("timeout")}
	oracle := newTestOracle(provider)

	got := oracle.Narrative(context.Background(), []string{"Paris", "Rome"}, time.Time{}, time.Time{})

	if got != "A memorable journey through 2 destinations." {
		t.Errorf("unexpected fallback narrative '%s'", got)
	}
}

// --- TripName tests ---

func TestTripName_StripsQuotes(t *testing.T) {
	provider := &fakeProvider{textResponse: `"Autumn Lights of Paris"`}
	oracle := newTestOracle(provider)

	name, err := oracle.TripName(context.Background(), []string{"Paris"}, time.Time{}, time.Time{}, nil)
	if err != nil {
		t.Fatalf("TripName failed: %v", err)
	}
	if name != "Autumn Lights of Paris" {
		t.Errorf("unexpected name '%s'", name)
	}
}

func TestTripName_EmptyResponseErrors(t *testing.T) {
	provider := &fakeProvider{textResponse: "  "}
	oracle := newTestOracle(provider)

	if _, err := oracle.TripName(context.Background(), []string{"Paris"}, time.Time{}, time.Time{}, nil); err == nil {
		t.Error("expected error for empty response")
	}
}

// --- SuggestTags tests ---

func TestSuggestTags_NormalizesAndDeduplicates(t *testing.T) {
	provider := &fakeProvider{
		textResponse: `{"tags":["City Break","Côte d'Azur","cote d'azur","  Food  "]}`,
	}
	oracle := newTestOracle(provider)

	tags, err := oracle.SuggestTags(context.Background(), []string{"Nice, France"}, 42)
	if err != nil {
		t.Fatalf("SuggestTags failed: %v", err)
	}

	want := []string{"city break", "cote d'azur", "food"}
	if len(tags) != len(want) {
		t.Fatalf("expected %d tags, got %v", len(want), tags)
	}
	for i, tag := range want {
		if tags[i] != tag {
			t.Errorf("tag %d: got '%s', want '%s'", i, tags[i], tag)
		}
	}
}

func TestSuggestTags_BadJSONErrors(t *testing.T) {
	provider := &fakeProvider{textResponse: "here are some tags: food, city"}
	oracle := newTestOracle(provider)

	if _, err := oracle.SuggestTags(context.Background(), []string{"Nice"}, 10); err == nil {
		t.Error("expected error for unparseable tags")
	}
}

// --- MemoryHighlights tests ---

func TestMemoryHighlights_DropsUnknownPhotoIDs(t *testing.T) {
	provider := &fakeProvider{
		textResponse: `{"highlights":[
			{"title":"Sunset","description":"Golden hour.","type":"scenic","photo_ids":["p1","ghost"],"confidence":0.9},
			{"title":"Invented","description":"Not real.","type":"other","photo_ids":["ghost"],"confidence":0.5}
		]}`,
	}
	oracle := newTestOracle(provider)

	highlights, err := oracle.MemoryHighlights(context.Background(), "Paris", []HighlightPhoto{
		{ID: "p1", Caption: "Sunset over the Seine"},
	})
	if err != nil {
		t.Fatalf("MemoryHighlights failed: %v", err)
	}

	if len(highlights) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(highlights))
	}
	if len(highlights[0].PhotoIDs) != 1 || highlights[0].PhotoIDs[0] != "p1" {
		t.Errorf("expected unknown photo ids dropped, got %+v", highlights[0].PhotoIDs)
	}
}

func TestMemoryHighlights_NoPhotosErrors(t *testing.T) {
	oracle := newTestOracle(&fakeProvider{})

	if _, err := oracle.MemoryHighlights(context.Background(), "Paris", nil); err == nil {
		t.Error("expected error without photos")
	}
}
