package geocontext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stepfree/access-planner/internal/client"
	"github.com/stepfree/access-planner/internal/store/model"
)

// Summarizer turns a metrics digest into a short narrative.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Runner is one geo-context check.
type Runner interface {
	Run(ctx context.Context, at client.Coordinates) (model.SpecialtyResult, error)
}

// gatherFunc collects the raw metrics of a check and renders them as text.
type gatherFunc func(ctx context.Context, at client.Coordinates) (string, error)

// Check gathers metrics from one data source and asks the summarizer for the finding.
type Check struct {
	kind       Kind
	gather     gatherFunc
	summarizer Summarizer
}

var _ Runner = (*Check)(nil)

const findingPrompt = `You help people with accessibility needs judge the surroundings of a home.
Write two or three plain sentences about the %s around the property.
Use only the measurements below and say what they mean for someone with limited mobility or health concerns.

Measurements:
%s`

func (c *Check) Kind() Kind {
	return c.kind
}

func (c *Check) Run(ctx context.Context, at client.Coordinates) (model.SpecialtyResult, error) {
	metrics, err := c.gather(ctx, at)
	if err != nil {
		return model.SpecialtyResult{}, fmt.Errorf("%s check: %w", c.kind, err)
	}

	prompt := fmt.Sprintf(findingPrompt, strings.ToLower(c.kind.Category()), metrics)
	findings, err := c.summarizer.Generate(ctx, prompt)
	if err != nil {
		return model.SpecialtyResult{}, fmt.Errorf("%s check summary: %w", c.kind, err)
	}
	findings = strings.TrimSpace(findings)
	if findings == "" {
		return model.SpecialtyResult{}, fmt.Errorf("%s check summary: %w", c.kind, errors.New("empty answer"))
	}

	return model.SpecialtyResult{Category: c.kind.Category(), Findings: findings}, nil
}
