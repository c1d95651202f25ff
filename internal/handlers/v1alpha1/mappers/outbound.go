package mappers

import (
	"github.com/google/uuid"

	api "github.com/stepfree/access-planner/api/v1alpha1"
	"github.com/stepfree/access-planner/internal/store/model"
)

func EvaluationCreatedToApi(id uuid.UUID) api.EvaluationCreated {
	return api.EvaluationCreated{JobId: id}
}

// EvaluationToApi keeps absent fields absent: a record without image or geo
// results renders without the corresponding keys.
func EvaluationToApi(e model.Evaluation) api.Evaluation {
	resp := api.Evaluation{
		Id:           e.ID,
		Subject:      e.Subject,
		UserNeeds:    e.UserNeeds,
		Status:       api.EvaluationStatus(e.Status),
		Checklist:    e.Checklist,
		FinalScore:   e.FinalScore,
		FinalSummary: e.FinalSummary,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}

	if e.ImageResults != nil {
		images := make([]api.ImageResult, 0, len(e.ImageResults.Data))
		for _, r := range e.ImageResults.Data {
			images = append(images, imageResultToApi(r))
		}
		resp.ImageResults = &images
	}

	if e.SpecialtyResults != nil {
		specialties := make([]api.SpecialtyResult, 0, len(e.SpecialtyResults.Data))
		for _, r := range e.SpecialtyResults.Data {
			specialties = append(specialties, api.SpecialtyResult{Category: r.Category, Findings: r.Findings})
		}
		resp.SpecialtyResults = &specialties
	}

	return resp
}

func imageResultToApi(r model.ImageResult) api.ImageResult {
	result := api.ImageResult{ImageUrl: r.ImageURL, Locator: r.Locator}
	if len(r.Triggers) > 0 {
		triggers := append([]string(nil), r.Triggers...)
		result.Triggers = &triggers
	}
	return result
}
