// Package app wires configuration, logging, the database and the two state
// workspaces for the server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/jwt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Configuration
	Log     *logrus.Logger
	DB      *gorm.DB
	Pos     *service.PosWorkspace
	Tracker *service.TrackerWorkspace
}

// Open loads config, connects to the database and loads both documents,
// seeding and migrating them as needed.
func Open(ctx context.Context) (*App, error) {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)
	if !dotenv {
		log.Warn(".env file not found, relying on system env")
	}
	jwt.SetSecret(cfg.JWTSecret)

	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		return nil, err
	}

	states := repository.NewStateRepo(db)
	loc := cfg.Location()

	pos, err := service.NewWorkspace[*model.PosState](ctx, repository.NewPosRepo(states, log), loc)
	if err != nil {
		return nil, fmt.Errorf("pos: %w", err)
	}
	tracker, err := service.NewWorkspace[*model.Tracker](ctx, repository.NewTrackerRepo(states, log), loc)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	return &App{Config: cfg, Log: log, DB: db, Pos: pos, Tracker: tracker}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
