package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/stepfree/access-planner/internal/geocontext"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/pkg/log"
	"github.com/stepfree/access-planner/pkg/metrics"
	"github.com/stepfree/access-planner/pkg/settle"
)

// runGeoChecks resolves the subject once and runs every requested check
// against the same coordinates. Failing checks are left out. ok is false when
// the subject could not be located, in which case nothing should be stored.
func (o *Orchestrator) runGeoChecks(ctx context.Context, id uuid.UUID, subject string, kinds []geocontext.Kind) (results []model.SpecialtyResult, ok bool) {
	tracer := log.NewDebugLogger("geo_context").
		WithContext(ctx).
		Operation("run_geo_checks").
		WithUUID("evaluation_id", id).
		WithParam("kinds", kinds).
		Build()

	query := geocodeQuery(subject)
	at, err := o.deps.Geocoder.Geocode(ctx, query)
	if err != nil {
		metrics.IncreaseUnitFailures("geocode")
		tracer.Warn(err).WithString("query", query).Log()
		return nil, false
	}
	tracer.Step("geocoded").WithString("coordinates", at.String()).Log()

	tasks := make([]settle.Task[model.SpecialtyResult], 0, len(kinds))
	for _, kind := range kinds {
		runner, found := o.deps.Checks[kind]
		if !found {
			tasks = append(tasks, func(context.Context) (model.SpecialtyResult, error) {
				return model.SpecialtyResult{}, fmt.Errorf("no runner for check kind %q", kind)
			})
			continue
		}
		tasks = append(tasks, func(ctx context.Context) (model.SpecialtyResult, error) {
			return runner.Run(ctx, at)
		})
	}

	settled := settle.All(ctx, 0, tasks)
	for _, err := range settle.Errors(settled) {
		metrics.IncreaseUnitFailures("geo_check")
		tracer.Warn(err).Log()
	}

	results = settle.Values(settled)
	tracer.Success().WithInt("findings", len(results)).Log()
	return results, true
}

// geocodeQuery returns the text handed to the geocoder. Listing URLs usually
// carry the address as a dashed path segment, e.g. /homedetails/12-Oak-St-Springfield-IL/.
func geocodeQuery(subject string) string {
	u, err := url.Parse(subject)
	if err != nil || !isURL(u) {
		return subject
	}

	best := ""
	for _, segment := range strings.Split(u.Path, "/") {
		if !strings.Contains(segment, "-") || !strings.ContainsFunc(segment, unicode.IsDigit) {
			continue
		}
		if len(segment) > len(best) {
			best = segment
		}
	}
	if best == "" {
		return subject
	}

	words := strings.FieldsFunc(best, func(r rune) bool { return r == '-' || r == '_' || r == '+' })
	return strings.Join(words, " ")
}

func isURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
