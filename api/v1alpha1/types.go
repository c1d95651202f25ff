package v1alpha1

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	EvaluationStatusProcessing EvaluationStatus = "processing"
	EvaluationStatusCompleted  EvaluationStatus = "completed"
	EvaluationStatusError      EvaluationStatus = "error"
)

// EvaluationCreate is the body of POST /api/v1/evaluations. At least one of
// Address and Url is required; Url wins when both are set.
type EvaluationCreate struct {
	Address   string `json:"address,omitempty" validate:"required_without=Url,omitempty,not_blank,max=512"`
	Url       string `json:"url,omitempty" validate:"omitempty,listing_url,max=2048"`
	UserNeeds string `json:"userNeeds" validate:"required,not_blank,max=4000"`
}

func (e *EvaluationCreate) Bind(r *http.Request) error {
	return nil
}

type EvaluationCreated struct {
	JobId uuid.UUID `json:"jobId"`
}

func (e EvaluationCreated) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type ImageResult struct {
	ImageUrl string      `json:"imageUrl"`
	Triggers *[]string   `json:"triggers"`
	Locator  *[2]float64 `json:"locator"`
}

type SpecialtyResult struct {
	Category string `json:"category"`
	Findings string `json:"findings"`
}

type Evaluation struct {
	Id               uuid.UUID          `json:"id"`
	Subject          string             `json:"subject"`
	UserNeeds        string             `json:"userNeeds"`
	Status           EvaluationStatus   `json:"status"`
	Checklist        *string            `json:"checklist,omitempty"`
	ImageResults     *[]ImageResult     `json:"imageResults,omitempty"`
	SpecialtyResults *[]SpecialtyResult `json:"specialtyResults,omitempty"`
	FinalScore       *int               `json:"finalScore"`
	FinalSummary     *string            `json:"finalSummary,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

func (e Evaluation) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

func (e Error) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type Health struct {
	Status string `json:"status"`
}

func (h Health) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
