package repository

import (
	"context"
	"errors"

	"go-pos-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrStateNotFound = errors.New("state document not found")

// StateRepository stores whole JSON documents by key.
type StateRepository interface {
	Find(ctx context.Context, key string) (*model.AppState, error)
	Save(ctx context.Context, state *model.AppState) error
}

type stateRepo struct {
	db *gorm.DB
}

func NewStateRepo(db *gorm.DB) StateRepository {
	return &stateRepo{db}
}

func (r *stateRepo) Find(ctx context.Context, key string) (*model.AppState, error) {
	var state model.AppState
	err := r.db.WithContext(ctx).Where("doc_key = ?", key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Save overwrites the document unconditionally; the last writer wins.
func (r *stateRepo) Save(ctx context.Context, state *model.AppState) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(state).Error
}
