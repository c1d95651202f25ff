package orchestrator

import (
	"context"

	"github.com/stepfree/access-planner/internal/client"
	"github.com/stepfree/access-planner/internal/geocontext"
	"github.com/stepfree/access-planner/internal/store/model"
)

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type VisionAnalyzer interface {
	AnalyzeBatch(ctx context.Context, images []client.Image, checklist string) ([]client.Verdict, error)
}

type ImageSource interface {
	FindListingURL(ctx context.Context, address string) (string, error)
	ExtractImages(ctx context.Context, pageURL string) ([]string, error)
}

type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (client.Image, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (client.Coordinates, error)
}

// Archiver keeps a copy of terminal records.
type Archiver interface {
	Archive(ctx context.Context, evaluation model.Evaluation) error
}

// Dependencies are the collaborators of the pipeline. Archiver may be nil.
type Dependencies struct {
	Generator TextGenerator
	Analyzer  VisionAnalyzer
	Images    ImageSource
	Fetcher   ImageFetcher
	Geocoder  Geocoder
	Checks    map[geocontext.Kind]geocontext.Runner
	Archiver  Archiver
}
