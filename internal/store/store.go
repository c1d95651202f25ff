package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/stepfree/access-planner/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Evaluation() Evaluation
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	evaluation Evaluation
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:         db,
		evaluation: NewEvaluationStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Evaluation() Evaluation {
	return s.evaluation
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Evaluation{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
