package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stepfree/access-planner/internal/client"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/pkg/log"
	"github.com/stepfree/access-planner/pkg/metrics"
	"github.com/stepfree/access-planner/pkg/settle"
)

// noTriggers is the verdict of a photo on which nothing was found.
const noTriggers = "NONE"

// analyzeImages runs the vision model over imageURLs batch by batch and
// appends every batch result to the record as soon as it is known. A failing
// batch is skipped. The returned error is a store failure.
func (o *Orchestrator) analyzeImages(ctx context.Context, id uuid.UUID, imageURLs []string, checklist string) ([]model.ImageResult, error) {
	tracer := log.NewDebugLogger("batch_analysis").
		WithContext(ctx).
		Operation("analyze_images").
		WithUUID("evaluation_id", id).
		WithInt("images", len(imageURLs)).
		WithInt("batch_size", o.opts.batchSize).
		Build()

	var all []model.ImageResult
	batches := chunk(imageURLs, o.opts.batchSize)
	for i, batch := range batches {
		results := o.analyzeBatch(ctx, tracer, i, batch, checklist)
		if len(results) > 0 {
			if err := o.store.Evaluation().AppendImageResults(ctx, id, results); err != nil {
				tracer.Error(err).WithInt("batch", i).Log()
				return all, err
			}
			metrics.AddImagesProcessed(len(results))
			all = append(all, results...)
		}

		if i < len(batches)-1 && o.opts.batchDelay > 0 {
			select {
			case <-time.After(o.opts.batchDelay):
			case <-ctx.Done():
				return all, ctx.Err()
			}
		}
	}

	tracer.Success().WithInt("results", len(all)).Log()
	return all, nil
}

func (o *Orchestrator) analyzeBatch(ctx context.Context, tracer *log.OperationTracer, index int, urls []string, checklist string) []model.ImageResult {
	tasks := make([]settle.Task[client.Image], 0, len(urls))
	for _, u := range urls {
		tasks = append(tasks, func(ctx context.Context) (client.Image, error) {
			return o.deps.Fetcher.Fetch(ctx, u)
		})
	}

	fetched := settle.All(ctx, o.opts.fetchParallelism, tasks)
	for i, err := range settle.Errors(fetched) {
		metrics.IncreaseUnitFailures("fetch")
		tracer.Warn(err).WithInt("batch", index).WithInt("failure", i).Log()
	}

	images := settle.Values(fetched)
	if len(images) == 0 {
		tracer.Step("batch_without_images").WithInt("batch", index).Log()
		return nil
	}

	verdicts, err := o.deps.Analyzer.AnalyzeBatch(ctx, images, checklist)
	if err != nil {
		metrics.IncreaseUnitFailures("analyze")
		tracer.Warn(err).WithInt("batch", index).WithString("step", "analyze_batch").Log()
		return nil
	}

	results := make([]model.ImageResult, 0, len(images))
	for i, img := range images {
		var v client.Verdict
		if i < len(verdicts) {
			v = verdicts[i]
		}
		results = append(results, model.ImageResult{
			ImageURL: img.URL,
			Triggers: parseTriggers(v.Triggers),
			Locator:  parseLocator(v.Locator),
		})
	}

	tracer.Step("batch_analyzed").WithInt("batch", index).WithInt("images", len(results)).Log()
	return results
}

// parseTriggers maps the sentinel (or an empty answer) to nil and splits
// anything else on commas.
func parseTriggers(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, noTriggers) {
		return nil
	}

	var triggers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" && !strings.EqualFold(t, noTriggers) {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

func parseLocator(raw []float64) *[2]float64 {
	if len(raw) != 2 {
		return nil
	}
	return &[2]float64{raw[0], raw[1]}
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
