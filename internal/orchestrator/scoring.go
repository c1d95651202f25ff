package orchestrator

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/stepfree/access-planner/internal/util"
)

type scoreAnswer struct {
	Score   *float64 `json:"score"`
	Summary string   `json:"summary"`
}

// parseScore reads the scoring answer. When the answer is not the expected
// JSON document the score is nil and the raw answer becomes the summary.
func parseScore(raw string) (*int, string) {
	var answer scoreAnswer
	if err := json.Unmarshal([]byte(util.UnwrapFence(raw)), &answer); err != nil {
		return nil, raw
	}
	if answer.Score == nil || strings.TrimSpace(answer.Summary) == "" {
		return nil, raw
	}

	score := int(math.Round(math.Max(0, math.Min(100, *answer.Score))))
	return &score, strings.TrimSpace(answer.Summary)
}
