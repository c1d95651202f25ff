package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/stepfree/access-planner/internal/geocontext"
	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/internal/util"
	"github.com/stepfree/access-planner/pkg/log"
	"github.com/stepfree/access-planner/pkg/metrics"
)

const (
	// FatalSummary is stored when the evaluation could not start: no checklist,
	// no listing or no photos.
	FatalSummary = "We could not evaluate this property. Please check the address or listing URL and try again."
	// InterruptedSummary is stored when the evaluation failed after it started.
	InterruptedSummary = "Something went wrong while evaluating this property. Please submit it again."
)

var (
	ErrNoListing = errors.New("no listing found")
	ErrNoImages  = errors.New("no photos found on the listing")
)

// setupError marks a failure of the first stages, before any photo is analyzed.
type setupError struct {
	stage string
	err   error
}

func (e *setupError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *setupError) Unwrap() error {
	return e.err
}

func setupFailure(stage string, err error) error {
	return &setupError{stage: stage, err: err}
}

// Orchestrator runs evaluations in the background. Each evaluation is owned by
// exactly one goroutine of the registry, which is the only writer of its record.
type Orchestrator struct {
	store    store.Store
	deps     Dependencies
	opts     options
	registry *Registry
}

func New(s store.Store, deps Dependencies, opts ...Option) *Orchestrator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Orchestrator{
		store:    s,
		deps:     deps,
		opts:     o,
		registry: NewRegistry(),
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Submit stores a new processing evaluation and starts its pipeline. It
// returns as soon as the record exists.
func (o *Orchestrator) Submit(ctx context.Context, subject, userNeeds string) (uuid.UUID, error) {
	evaluation, err := o.store.Evaluation().Create(ctx, model.Evaluation{
		Subject:   subject,
		UserNeeds: userNeeds,
		Status:    model.EvaluationStatusProcessing,
	})
	if err != nil {
		return uuid.Nil, err
	}

	// the run outlives the request, it only keeps its values (request id)
	runCtx := context.WithoutCancel(ctx)
	if err := o.registry.Go(evaluation.ID, func() { o.run(runCtx, *evaluation) }); err != nil {
		o.fail(ctx, evaluation.ID, InterruptedSummary)
		return uuid.Nil, err
	}

	return evaluation.ID, nil
}

func (o *Orchestrator) run(ctx context.Context, evaluation model.Evaluation) {
	start := time.Now()
	metrics.IncreaseEvaluationsInFlight()
	defer metrics.DecreaseEvaluationsInFlight()

	tracer := log.NewInfoLogger("orchestrator").
		WithContext(ctx).
		Operation("run_evaluation").
		WithUUID("evaluation_id", evaluation.ID).
		WithString("subject", evaluation.Subject).
		Build()

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluation panicked: %v", p)
		}

		status := model.EvaluationStatusCompleted
		if err != nil {
			status = model.EvaluationStatusError
			summary := InterruptedSummary
			var setupErr *setupError
			if errors.As(err, &setupErr) {
				summary = FatalSummary
			}
			tracer.Error(err).Log()
			o.fail(ctx, evaluation.ID, summary)
		} else {
			tracer.Success().Log()
		}

		metrics.ObserveEvaluationFinished(string(status), time.Since(start))
		o.archive(ctx, evaluation.ID)
	}()

	err = o.pipeline(ctx, tracer, evaluation)
}

func (o *Orchestrator) pipeline(ctx context.Context, tracer *log.OperationTracer, evaluation model.Evaluation) error {
	id := evaluation.ID

	checklist, err := o.deps.Generator.Generate(ctx, checklistPrompt(evaluation.UserNeeds))
	if err == nil && strings.TrimSpace(checklist) == "" {
		err = errors.New("empty checklist")
	}
	if err != nil {
		return setupFailure("checklist", err)
	}
	checklist = strings.TrimSpace(checklist)
	if _, err := o.store.Evaluation().Update(ctx, id, model.EvaluationUpdate{Checklist: &checklist}); err != nil {
		return err
	}
	tracer.Step("checklist_generated").Log()

	source, err := o.resolveSource(ctx, evaluation.Subject)
	if err != nil {
		return setupFailure("photo_source", err)
	}
	tracer.Step("source_resolved").WithString("source", source).Log()

	imageURLs, err := o.deps.Images.ExtractImages(ctx, source)
	if err != nil {
		return setupFailure("extract_images", err)
	}
	imageURLs = funk.UniqString(imageURLs)
	if len(imageURLs) == 0 {
		return setupFailure("extract_images", ErrNoImages)
	}
	if len(imageURLs) > o.opts.maxImages {
		imageURLs = imageURLs[:o.opts.maxImages]
	}
	tracer.Step("images_extracted").WithInt("images", len(imageURLs)).Log()

	imageResults, err := o.analyzeImages(ctx, id, imageURLs, checklist)
	if err != nil {
		return err
	}

	var findings []model.SpecialtyResult
	if kinds := geocontext.ParseKinds(checklist); len(kinds) > 0 {
		results, located := o.runGeoChecks(ctx, id, evaluation.Subject, kinds)
		if located {
			if results == nil {
				results = []model.SpecialtyResult{}
			}
			if _, err := o.store.Evaluation().Update(ctx, id, model.EvaluationUpdate{SpecialtyResults: results}); err != nil {
				return err
			}
			findings = results
		}
	} else {
		tracer.Step("geo_context_skipped").Log()
	}

	var triggers []string
	for _, r := range imageResults {
		triggers = append(triggers, r.Triggers...)
	}

	raw, err := o.deps.Generator.Generate(ctx, scoringPrompt(evaluation.UserNeeds, triggers, findings))
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return errors.New("scoring: empty answer")
	}

	score, summary := parseScore(raw)
	if score == nil {
		tracer.Step("score_unparsed").Log()
	}

	_, err = o.store.Evaluation().Update(ctx, id, model.EvaluationUpdate{
		Status:       util.Ptr(model.EvaluationStatusCompleted),
		FinalScore:   score,
		FinalSummary: &summary,
	})
	return err
}

// resolveSource returns the page to mine photos from. A URL subject is used as is.
func (o *Orchestrator) resolveSource(ctx context.Context, subject string) (string, error) {
	if u, err := url.Parse(subject); err == nil && isURL(u) {
		return subject, nil
	}

	listing, err := o.deps.Images.FindListingURL(ctx, subject)
	if err != nil {
		return "", err
	}
	if listing == "" {
		return "", ErrNoListing
	}
	return listing, nil
}

func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, summary string) {
	_, err := o.store.Evaluation().Update(ctx, id, model.EvaluationUpdate{
		Status:       util.Ptr(model.EvaluationStatusError),
		FinalSummary: &summary,
	})
	if err != nil && !errors.Is(err, store.ErrTerminalRecord) {
		log.NewInfoLogger("orchestrator").
			WithContext(ctx).
			Operation("fail_evaluation").
			WithUUID("evaluation_id", id).
			Build().
			Error(err).
			Log()
	}
}

func (o *Orchestrator) archive(ctx context.Context, id uuid.UUID) {
	if o.deps.Archiver == nil {
		return
	}

	tracer := log.NewDebugLogger("orchestrator").
		WithContext(ctx).
		Operation("archive_evaluation").
		WithUUID("evaluation_id", id).
		Build()

	evaluation, err := o.store.Evaluation().Get(ctx, id)
	if err != nil {
		tracer.Warn(err).Log()
		return
	}
	if !evaluation.Status.Terminal() {
		return
	}
	if err := o.deps.Archiver.Archive(ctx, *evaluation); err != nil {
		tracer.Warn(err).Log()
		return
	}
	tracer.Success().Log()
}
