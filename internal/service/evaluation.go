package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/stepfree/access-planner/internal/service/mappers"
	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/pkg/log"
)

// Submitter starts the background evaluation of a subject.
type Submitter interface {
	Submit(ctx context.Context, subject, userNeeds string) (uuid.UUID, error)
}

type EvaluationService struct {
	store     store.Store
	submitter Submitter
	logger    *log.StructuredLogger
}

func NewEvaluationService(store store.Store, submitter Submitter) *EvaluationService {
	return &EvaluationService{
		store:     store,
		submitter: submitter,
		logger:    log.NewDebugLogger("evaluation_service"),
	}
}

func (es *EvaluationService) CreateEvaluation(ctx context.Context, form mappers.EvaluationCreateForm) (uuid.UUID, error) {
	logger := es.logger.WithContext(ctx)
	tracer := logger.Operation("create_evaluation").
		WithString("subject", form.Subject()).
		WithBool("from_url", form.URL != "").
		Build()

	if form.Subject() == "" {
		return uuid.Nil, NewErrInvalidEvaluationRequest("an address or a listing url is required")
	}
	if form.Needs() == "" {
		return uuid.Nil, NewErrInvalidEvaluationRequest("userNeeds is required")
	}

	id, err := es.submitter.Submit(ctx, form.Subject(), form.Needs())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit evaluation: %w", err)
	}

	tracer.Success().WithUUID("evaluation_id", id).Log()
	return id, nil
}

func (es *EvaluationService) GetEvaluation(ctx context.Context, id uuid.UUID) (*model.Evaluation, error) {
	logger := es.logger.WithContext(ctx)
	tracer := logger.Operation("get_evaluation").
		WithUUID("evaluation_id", id).
		Build()

	evaluation, err := es.store.Evaluation().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrEvaluationNotFound(id)
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	tracer.Success().
		WithString("status", string(evaluation.Status)).
		WithInt("image_results", len(evaluation.Images())).
		WithInt("specialty_results", len(evaluation.Specialties())).
		Log()
	return evaluation, nil
}
