package v1alpha1

import (
	"github.com/go-chi/chi/v5"

	"github.com/stepfree/access-planner/internal/handlers/validator"
	"github.com/stepfree/access-planner/internal/service"
)

type ServiceHandler struct {
	evaluationSrv *service.EvaluationService
	validator     *validator.Validator
}

func NewServiceHandler(evaluationService *service.EvaluationService) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewEvaluationValidationRules()...)
	return &ServiceHandler{
		evaluationSrv: evaluationService,
		validator:     v,
	}
}

// Routes mounts the public API on r.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1/evaluations", func(r chi.Router) {
		r.Post("/", h.CreateEvaluation)
		r.Get("/{id}", h.GetEvaluation)
	})
}
