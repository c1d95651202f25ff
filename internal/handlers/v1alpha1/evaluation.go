package v1alpha1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/stepfree/access-planner/api/v1alpha1"
	"github.com/stepfree/access-planner/internal/handlers/v1alpha1/mappers"
	"github.com/stepfree/access-planner/internal/service"
	"github.com/stepfree/access-planner/pkg/log"
	"github.com/stepfree/access-planner/pkg/requestid"
)

// (POST /api/v1/evaluations)
func (h *ServiceHandler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("evaluation_handler").
		WithContext(ctx).
		Operation("create_evaluation").
		Build()

	form := new(v1alpha1.EvaluationCreate)
	if err := render.Bind(r, form); err != nil {
		logger.Error(err).WithString("step", "decode_body").Log()
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := h.validator.Struct(form); err != nil {
		logger.Error(err).WithString("step", "validation").Log()
		h.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	createForm := mappers.EvaluationFormApi(*form)
	logger.Step("mapped_form").WithString("subject", createForm.Subject()).Log()

	id, err := h.evaluationSrv.CreateEvaluation(ctx, createForm)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidEvaluationRequest:
			logger.Error(err).WithString("step", "validation").Log()
			h.renderError(w, r, http.StatusBadRequest, err.Error())
		default:
			logger.Error(err).Log()
			h.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to create evaluation: %v", err))
		}
		return
	}

	logger.Success().WithUUID("evaluation_id", id).Log()
	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, mappers.EvaluationCreatedToApi(id))
}

// (GET /api/v1/evaluations/{id})
func (h *ServiceHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawID := chi.URLParam(r, "id")
	logger := log.NewDebugLogger("evaluation_handler").
		WithContext(ctx).
		Operation("get_evaluation").
		WithString("evaluation_id", rawID).
		Build()

	id, err := uuid.Parse(rawID)
	if err != nil {
		logger.Error(err).WithString("step", "parse_id").Log()
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid evaluation id %q", rawID))
		return
	}

	evaluation, err := h.evaluationSrv.GetEvaluation(ctx, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			logger.Error(err).Log()
			h.renderError(w, r, http.StatusNotFound, err.Error())
		default:
			logger.Error(err).Log()
			h.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to get evaluation: %v", err))
		}
		return
	}

	logger.Success().WithString("status", string(evaluation.Status)).Log()
	_ = render.Render(w, r, mappers.EvaluationToApi(*evaluation))
}

func (h *ServiceHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	_ = render.Render(w, r, v1alpha1.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}
