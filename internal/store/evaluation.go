package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepfree/access-planner/internal/store/model"
)

type Evaluation interface {
	Create(ctx context.Context, evaluation model.Evaluation) (*model.Evaluation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Evaluation, error)
	Update(ctx context.Context, id uuid.UUID, update model.EvaluationUpdate) (*model.Evaluation, error)
	AppendImageResults(ctx context.Context, id uuid.UUID, results []model.ImageResult) error
	ListStale(ctx context.Context, before time.Time) ([]model.Evaluation, error)
}

type EvaluationStore struct {
	db *gorm.DB
}

// Make sure we conform to Evaluation interface
var _ Evaluation = (*EvaluationStore)(nil)

func NewEvaluationStore(db *gorm.DB) Evaluation {
	return &EvaluationStore{db: db}
}

func (s *EvaluationStore) Create(ctx context.Context, evaluation model.Evaluation) (*model.Evaluation, error) {
	if evaluation.ID == uuid.Nil {
		evaluation.ID = uuid.New()
	}
	if evaluation.Status == "" {
		evaluation.Status = model.EvaluationStatusProcessing
	}

	if result := s.getDB(ctx).Create(&evaluation); result.Error != nil {
		return nil, fmt.Errorf("creating evaluation: %w", result.Error)
	}

	return &evaluation, nil
}

func (s *EvaluationStore) Get(ctx context.Context, id uuid.UUID) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	result := s.getDB(ctx).First(&evaluation, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying evaluation: %w", result.Error)
	}

	return &evaluation, nil
}

// Update writes the non-nil fields of update. Records already in a terminal
// status are left untouched and ErrTerminalRecord is returned.
func (s *EvaluationStore) Update(ctx context.Context, id uuid.UUID, update model.EvaluationUpdate) (*model.Evaluation, error) {
	var updated model.Evaluation

	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProcessing(tx, id, &updated); err != nil {
			return err
		}

		fields := map[string]any{"updated_at": time.Now()}
		if update.Status != nil {
			fields["status"] = *update.Status
			updated.Status = *update.Status
		}
		if update.Checklist != nil {
			fields["checklist"] = *update.Checklist
			updated.Checklist = update.Checklist
		}
		if update.SpecialtyResults != nil {
			fields["specialty_results"] = model.MakeJSONField(update.SpecialtyResults)
			updated.SpecialtyResults = model.MakeJSONField(update.SpecialtyResults)
		}
		if update.FinalScore != nil {
			fields["final_score"] = *update.FinalScore
			updated.FinalScore = update.FinalScore
		}
		if update.FinalSummary != nil {
			fields["final_summary"] = *update.FinalSummary
			updated.FinalSummary = update.FinalSummary
		}

		result := tx.Model(&model.Evaluation{}).
			Where("id = ? AND status = ?", id, model.EvaluationStatusProcessing).
			Updates(fields)
		if result.Error != nil {
			return fmt.Errorf("updating evaluation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTerminalRecord
		}
		updated.UpdatedAt = fields["updated_at"].(time.Time)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// AppendImageResults adds results after the ones already stored. Earlier
// entries are never rewritten.
func (s *EvaluationStore) AppendImageResults(ctx context.Context, id uuid.UUID, results []model.ImageResult) error {
	if len(results) == 0 {
		return nil
	}

	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Evaluation
		if err := lockProcessing(tx, id, &current); err != nil {
			return err
		}

		merged := make([]model.ImageResult, 0, len(current.Images())+len(results))
		merged = append(merged, current.Images()...)
		merged = append(merged, results...)

		result := tx.Model(&model.Evaluation{}).
			Where("id = ? AND status = ?", id, model.EvaluationStatusProcessing).
			Updates(map[string]any{
				"image_results": model.MakeJSONField(merged),
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("appending image results: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTerminalRecord
		}
		return nil
	})
}

// ListStale returns the processing evaluations not updated since before.
func (s *EvaluationStore) ListStale(ctx context.Context, before time.Time) ([]model.Evaluation, error) {
	var evaluations []model.Evaluation
	result := s.getDB(ctx).
		Where("status = ? AND updated_at < ?", model.EvaluationStatusProcessing, before).
		Order("created_at").
		Find(&evaluations)
	if result.Error != nil {
		return nil, fmt.Errorf("listing stale evaluations: %w", result.Error)
	}
	return evaluations, nil
}

func lockProcessing(tx *gorm.DB, id uuid.UUID, evaluation *model.Evaluation) error {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(evaluation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("querying evaluation: %w", err)
	}
	if evaluation.Status.Terminal() {
		return ErrTerminalRecord
	}
	return nil
}

func (s *EvaluationStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
