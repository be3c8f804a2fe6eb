package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/coursedb/internal/config"
	"github.com/coursedb/internal/db"
	"github.com/coursedb/internal/logging"
	"github.com/coursedb/internal/seeder"
	"github.com/rs/zerolog"
	"os"
)

// Command is the Lambda event payload.
type Command struct {
	Name string `json:"name"` // can be run, reset, createTables, load
}

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	store  *db.Db
	seeder *seeder.Seeder
}

func newApp(ctx context.Context, configFile, envFile string) (*app, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, nil)

	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	store := db.NewFromConfig(awsCfg, cfg.Throttle.ActiveTimeout, logger)

	logger.Debug().Msgf("Using endpoint %q in region %s (production=%t)", cfg.Endpoint(), cfg.Region, cfg.Production)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		seeder: seeder.New(cfg, store, logger),
	}, nil
}

func (a *app) dispatch(ctx context.Context, name string) error {
	switch name {
	case "run", "":
		a.logger.Info().Msg("Starting seed run")
		_, err := a.seeder.Run(ctx)
		return err
	case "reset":
		a.logger.Info().Msg("Starting reset command")
		_, err := a.seeder.DeleteAllTables(ctx)
		return err
	case "createTables", "create-tables":
		a.logger.Info().Msg("Starting create tables command")
		_, err := a.seeder.CreateTables(ctx)
		return err
	case "load":
		a.logger.Info().Msg("Starting load command")
		_, err := a.seeder.SeedAll(ctx)
		return err
	default:
		return fmt.Errorf("unknown command: %s", name)
	}
}

func handleRequest(ctx context.Context, request json.RawMessage) error {
	var command Command
	if err := json.Unmarshal(request, &command); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	a, err := newApp(ctx, config.DefaultConfigFile, "")
	if err != nil {
		return err
	}
	if err := a.dispatch(ctx, command.Name); err != nil {
		a.logger.Error().Err(err).Msgf("Command %q failed", command.Name)
		return err
	}
	return nil
}

func main() {
	if _, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok {
		lambda.Start(handleRequest)
		return
	}

	if err := newRootCmd().Execute(); err != nil {
		logger := logging.New(os.Getenv("LOG_LEVEL"), nil)
		logger.Error().Err(err).Msg("Seeding failed")
		os.Exit(1)
	}
}
