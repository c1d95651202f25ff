package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrEvaluationNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "evaluation")
}

type ErrInvalidEvaluationRequest struct {
	error
}

func NewErrInvalidEvaluationRequest(message string) *ErrInvalidEvaluationRequest {
	return &ErrInvalidEvaluationRequest{fmt.Errorf("invalid evaluation request: %s", message)}
}
