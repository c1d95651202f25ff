package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/lthibault/jitterbug/v2"

	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/internal/util"
	"github.com/stepfree/access-planner/pkg/log"
	"github.com/stepfree/access-planner/pkg/metrics"
)

const TimedOutSummary = "The evaluation timed out. Please submit it again."

// Reaper closes evaluations left in processing by a run which no longer
// exists, e.g. after a restart. Records of live runs are never touched.
type Reaper struct {
	store      store.Store
	registry   *Registry
	staleAfter time.Duration
	interval   time.Duration
}

func NewReaper(s store.Store, registry *Registry, staleAfter, interval time.Duration) *Reaper {
	return &Reaper{
		store:      s,
		registry:   registry,
		staleAfter: staleAfter,
		interval:   interval,
	}
}

// Run reaps on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 10, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Reap(ctx)
		}
	}
}

// Reap marks the stale evaluations as failed and returns how many were closed.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	tracer := log.NewDebugLogger("reaper").
		WithContext(ctx).
		Operation("reap_stale_evaluations").
		Build()

	stale, err := r.store.Evaluation().ListStale(ctx, time.Now().Add(-r.staleAfter))
	if err != nil {
		tracer.Error(err).Log()
		return 0, err
	}

	reaped := 0
	for _, e := range stale {
		if r.registry.Running(e.ID) {
			continue
		}
		_, err := r.store.Evaluation().Update(ctx, e.ID, model.EvaluationUpdate{
			Status:       util.Ptr(model.EvaluationStatusError),
			FinalSummary: util.Ptr(TimedOutSummary),
		})
		if err != nil {
			if !errors.Is(err, store.ErrTerminalRecord) && !errors.Is(err, store.ErrRecordNotFound) {
				tracer.Warn(err).WithUUID("evaluation_id", e.ID).Log()
			}
			continue
		}
		metrics.ObserveEvaluationFinished(string(model.EvaluationStatusError), time.Since(e.CreatedAt))
		tracer.Step("evaluation_reaped").WithUUID("evaluation_id", e.ID).Log()
		reaped++
	}

	tracer.Success().WithInt("reaped", reaped).Log()
	return reaped, nil
}
