package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"

	"github.com/sirupsen/logrus"
)

// TrackerRepository loads and saves the money-tracker document.
type TrackerRepository interface {
	Load(ctx context.Context) (*model.Tracker, error)
	Save(ctx context.Context, tracker *model.Tracker) error
}

type trackerRepo struct {
	states StateRepository
	log    logrus.FieldLogger
}

func NewTrackerRepo(states StateRepository, log logrus.FieldLogger) TrackerRepository {
	return &trackerRepo{states: states, log: log}
}

func (r *trackerRepo) Load(ctx context.Context) (*model.Tracker, error) {
	row, err := r.states.Find(ctx, model.TrackerDocumentKey)
	if errors.Is(err, ErrStateNotFound) {
		tracker := model.NewTracker()
		if err := r.Save(ctx, tracker); err != nil {
			return nil, fmt.Errorf("seed tracker document: %w", err)
		}
		return tracker, nil
	}
	if err != nil {
		return nil, err
	}

	tracker, migrated, err := MigrateTracker(row.Payload)
	if err != nil {
		return nil, err
	}
	if migrated {
		r.log.WithField("to", tracker.SchemaVersion).Info("Migrated tracker document")
		if err := r.Save(ctx, tracker); err != nil {
			return nil, err
		}
	}
	return tracker, nil
}

func (r *trackerRepo) Save(ctx context.Context, tracker *model.Tracker) error {
	tracker.SchemaVersion = model.TrackerSchemaVersion
	payload, err := json.Marshal(tracker)
	if err != nil {
		return fmt.Errorf("encode tracker document: %w", err)
	}
	return r.states.Save(ctx, &model.AppState{
		Key:           model.TrackerDocumentKey,
		SchemaVersion: tracker.SchemaVersion,
		Payload:       payload,
	})
}
