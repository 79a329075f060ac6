package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"

	"github.com/sirupsen/logrus"
)

// PosRepository loads and saves the whole point-of-sale document.
type PosRepository interface {
	Load(ctx context.Context) (*model.PosState, error)
	Save(ctx context.Context, state *model.PosState) error
}

type posRepo struct {
	states StateRepository
	log    logrus.FieldLogger
}

func NewPosRepo(states StateRepository, log logrus.FieldLogger) PosRepository {
	return &posRepo{states: states, log: log}
}

// Load returns the stored document, migrated to the current schema. On first
// run it seeds a default document with a single admin and persists it.
func (r *posRepo) Load(ctx context.Context) (*model.PosState, error) {
	row, err := r.states.Find(ctx, model.PosDocumentKey)
	if errors.Is(err, ErrStateNotFound) {
		state, err := model.NewPosState()
		if err != nil {
			return nil, err
		}
		if err := r.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("seed pos document: %w", err)
		}
		r.log.WithField("username", model.DefaultAdminUsername).Info("Seeded default pos document")
		return state, nil
	}
	if err != nil {
		return nil, err
	}

	state, migrated, err := MigratePos(row.Payload)
	if err != nil {
		return nil, err
	}
	if migrated {
		r.log.WithFields(logrus.Fields{
			"from": row.SchemaVersion,
			"to":   state.SchemaVersion,
		}).Info("Migrated pos document")
		if err := r.Save(ctx, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (r *posRepo) Save(ctx context.Context, state *model.PosState) error {
	state.SchemaVersion = model.PosSchemaVersion
	state.Normalize()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode pos document: %w", err)
	}
	return r.states.Save(ctx, &model.AppState{
		Key:           model.PosDocumentKey,
		SchemaVersion: state.SchemaVersion,
		Payload:       payload,
	})
}
