package orchestrator

import (
	"fmt"
	"strings"

	"github.com/stepfree/access-planner/internal/geocontext"
	"github.com/stepfree/access-planner/internal/store/model"
)

const checklistTemplate = `You are an accessibility consultant preparing the inspection of a home for this person:
%q

Write a numbered checklist of short, concrete items that could be spotted on listing photos and would be a problem for them (for example "Stairs at entrance", "Narrow doorway", "Bathtub without grab bars"). Keep every item name under six words.

After the checklist, add exactly one last line listing which neighbourhood checks matter for this person, chosen among: %s.
The line must look like:
%s kind1, kind2
Write "%s none" when no neighbourhood check matters.`

func checklistPrompt(userNeeds string) string {
	kinds := make([]string, 0, len(geocontext.Vocabulary))
	for _, k := range geocontext.Vocabulary {
		kinds = append(kinds, fmt.Sprintf("%s (%s)", k, strings.ToLower(k.Category())))
	}
	return fmt.Sprintf(checklistTemplate, userNeeds, strings.Join(kinds, ", "), geocontext.Marker, geocontext.Marker)
}

const scoringTemplate = `You rate how accessible a home is for this person:
%q

Issues seen on the listing photos (one line per occurrence):
%s

Neighbourhood findings:
%s

Answer with a JSON object only, no prose:
{"score": <integer from 0 (unusable) to 100 (fully accessible)>, "summary": "<one short paragraph for the person>"}`

func scoringPrompt(userNeeds string, triggers []string, findings []model.SpecialtyResult) string {
	issues := "none"
	if len(triggers) > 0 {
		issues = "- " + strings.Join(triggers, "\n- ")
	}

	surroundings := "none"
	if len(findings) > 0 {
		lines := make([]string, 0, len(findings))
		for _, f := range findings {
			lines = append(lines, fmt.Sprintf("- %s: %s", f.Category, f.Findings))
		}
		surroundings = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(scoringTemplate, userNeeds, issues, surroundings)
}
