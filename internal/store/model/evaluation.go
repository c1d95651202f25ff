package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	EvaluationStatusProcessing EvaluationStatus = "processing"
	EvaluationStatusCompleted  EvaluationStatus = "completed"
	EvaluationStatusError      EvaluationStatus = "error"
)

// Terminal reports whether no transition can leave the status.
func (s EvaluationStatus) Terminal() bool {
	return s == EvaluationStatusCompleted || s == EvaluationStatusError
}

// Evaluation is one accessibility evaluation job. Subject and UserNeeds are
// immutable, ImageResults only grows and the record is frozen once Status is terminal.
type Evaluation struct {
	ID               uuid.UUID                     `gorm:"primaryKey;column:id;type:VARCHAR(255);" json:"id"`
	CreatedAt        time.Time                     `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time                     `gorm:"index" json:"updatedAt"`
	Subject          string                        `gorm:"not null;type:TEXT" json:"subject"`
	UserNeeds        string                        `gorm:"not null;type:TEXT" json:"userNeeds"`
	Status           EvaluationStatus              `gorm:"not null;type:VARCHAR(32);index" json:"status"`
	Checklist        *string                       `gorm:"type:TEXT" json:"checklist,omitempty"`
	ImageResults     *JSONField[[]ImageResult]     `gorm:"type:jsonb" json:"imageResults,omitempty"`
	SpecialtyResults *JSONField[[]SpecialtyResult] `gorm:"type:jsonb" json:"specialtyResults,omitempty"`
	FinalScore       *int                          `json:"finalScore"`
	FinalSummary     *string                       `gorm:"type:TEXT" json:"finalSummary,omitempty"`
}

// ImageResult holds what the vision model saw on one listing photo.
// Triggers is nil when no checklist item was triggered.
type ImageResult struct {
	ImageURL string      `json:"imageUrl"`
	Triggers []string    `json:"triggers"`
	Locator  *[2]float64 `json:"locator"`
}

// SpecialtyResult is the narrative finding of one geo-context check.
type SpecialtyResult struct {
	Category string `json:"category"`
	Findings string `json:"findings"`
}

// EvaluationUpdate lists the fields of a partial update. Nil fields are left untouched.
type EvaluationUpdate struct {
	Status           *EvaluationStatus
	Checklist        *string
	SpecialtyResults []SpecialtyResult
	FinalScore       *int
	FinalSummary     *string
}

func (e Evaluation) Images() []ImageResult {
	if e.ImageResults == nil {
		return nil
	}
	return e.ImageResults.Data
}

func (e Evaluation) Specialties() []SpecialtyResult {
	if e.SpecialtyResults == nil {
		return nil
	}
	return e.SpecialtyResults.Data
}

func (e Evaluation) String() string {
	val, _ := json.Marshal(e)
	return string(val)
}
