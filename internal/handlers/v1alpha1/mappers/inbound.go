package mappers

import (
	"github.com/stepfree/access-planner/api/v1alpha1"
	"github.com/stepfree/access-planner/internal/service/mappers"
)

func EvaluationFormApi(resource v1alpha1.EvaluationCreate) mappers.EvaluationCreateForm {
	return mappers.EvaluationCreateForm{
		Address:   resource.Address,
		URL:       resource.Url,
		UserNeeds: resource.UserNeeds,
	}
}
