package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stepfree/access-planner/internal/client"
	"github.com/stepfree/access-planner/internal/store/model"
)

const scoringMarker = "You rate how accessible"

type fakeGenerator struct {
	mu             sync.Mutex
	checklist      string
	checklistErr   error
	score          string
	scoreErr       error
	scoringPrompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.Contains(prompt, scoringMarker) {
		f.scoringPrompts = append(f.scoringPrompts, prompt)
		return f.score, f.scoreErr
	}
	return f.checklist, f.checklistErr
}

func (f *fakeGenerator) lastScoringPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scoringPrompts) == 0 {
		return ""
	}
	return f.scoringPrompts[len(f.scoringPrompts)-1]
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	verdicts map[string]string
	failOn   map[string]bool
	panicOn  string
	onCall   func(images []client.Image)
	calls    [][]string
}

func (f *fakeAnalyzer) AnalyzeBatch(_ context.Context, images []client.Image, _ string) ([]client.Verdict, error) {
	if f.onCall != nil {
		f.onCall(images)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	f.calls = append(f.calls, urls)

	verdicts := make([]client.Verdict, 0, len(images))
	for _, img := range images {
		if img.URL == f.panicOn {
			panic("analyzer exploded")
		}
		if f.failOn[img.URL] {
			return nil, errors.New("vision model unavailable")
		}
		v, found := f.verdicts[img.URL]
		if !found {
			v = "NONE"
		}
		verdicts = append(verdicts, client.Verdict{Triggers: v, Locator: []float64{0.5, 0.25}})
	}
	return verdicts, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeImageSource struct {
	mu           sync.Mutex
	listing      string
	listingErr   error
	images       []string
	imagesErr    error
	searched     []string
	extractedURL string
}

func (f *fakeImageSource) FindListingURL(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, address)
	return f.listing, f.listingErr
}

func (f *fakeImageSource) ExtractImages(_ context.Context, pageURL string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractedURL = pageURL
	return f.images, f.imagesErr
}

type fakeFetcher struct {
	failOn map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, imageURL string) (client.Image, error) {
	if f.failOn[imageURL] {
		return client.Image{}, errors.New("image gone")
	}
	return client.Image{URL: imageURL, ContentType: "image/jpeg", Data: []byte(imageURL)}, nil
}

type fakeGeocoder struct {
	mu      sync.Mutex
	err     error
	queries []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (client.Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, address)
	if f.err != nil {
		return client.Coordinates{}, f.err
	}
	return client.Coordinates{Lat: 40.7, Lon: -74.0}, nil
}

type fakeRunner struct {
	category string
	err      error
}

func (f *fakeRunner) Run(_ context.Context, _ client.Coordinates) (model.SpecialtyResult, error) {
	if f.err != nil {
		return model.SpecialtyResult{}, f.err
	}
	return model.SpecialtyResult{Category: f.category, Findings: f.category + " looks fine"}, nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived map[uuid.UUID]model.EvaluationStatus
}

func (f *fakeArchiver) Archive(_ context.Context, evaluation model.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archived == nil {
		f.archived = map[uuid.UUID]model.EvaluationStatus{}
	}
	f.archived[evaluation.ID] = evaluation.Status
	return nil
}

func (f *fakeArchiver) status(id uuid.UUID) (model.EvaluationStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.archived[id]
	return s, ok
}
