package seeder

import (
	"context"
	"errors"
	"github.com/coursedb/internal/config"
	"github.com/coursedb/internal/db"
	"github.com/coursedb/internal/fixtures"
	"github.com/coursedb/internal/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"time"
)

// Store is the database surface the seed procedure needs. *db.Db implements it.
type Store interface {
	ListTableNames(ctx context.Context) ([]string, error)
	DeleteTable(ctx context.Context, name string) error
	CreateOrUpdateTable(ctx context.Context, table schema.Table) error
	PutRecord(ctx context.Context, table schema.Table, record map[string]any) error
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Seeder struct {
	store       Store
	tables      []schema.Table
	fixturesDir string
	throttle    config.Throttle
	logger      zerolog.Logger
	sleep       SleepFunc
	newID       func() string
}

type Option func(*Seeder)

// WithSleep replaces the throttle sleep, mainly so tests run without delays.
func WithSleep(fn SleepFunc) Option {
	return func(s *Seeder) { s.sleep = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Seeder) { s.newID = fn }
}

func New(cfg config.Config, store Store, logger zerolog.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		store:       store,
		tables:      schema.Tables(cfg.Capacity.Read, cfg.Capacity.Write),
		fixturesDir: cfg.FixturesDir,
		throttle:    cfg.Throttle,
		logger:      logger,
		sleep:       sleep,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FileResult is the outcome of seeding one fixture file.
type FileResult struct {
	File     fixtures.File
	Inserted int
	Failed   int
}

type Summary struct {
	Deleted []string
	Ready   []string
	Files   []FileResult
}

// Run deletes every table, recreates the entity tables and loads the
// fixtures. Per-table and per-record failures are logged and skipped; the
// returned error covers everything else (listing tables, reading or parsing
// a fixture, cancellation).
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	var err error

	s.logger.Info().Msg("Deleting existing tables")
	if summary.Deleted, err = s.DeleteAllTables(ctx); err != nil {
		return summary, err
	}

	s.logger.Info().Msg("Creating tables")
	if summary.Ready, err = s.CreateTables(ctx); err != nil {
		return summary, err
	}

	s.logger.Info().Msgf("Seeding fixtures from %s", s.fixturesDir)
	summary.Files, err = s.SeedAll(ctx)
	return summary, err
}

// DeleteAllTables deletes every table in the instance, one at a time. It
// returns the names that were actually deleted.
func (s *Seeder) DeleteAllTables(ctx context.Context) ([]string, error) {
	names, err := s.store.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Msgf("Found %d tables to delete", len(names))

	var deleted []string
	for i, name := range names {
		if i > 0 {
			if err := s.sleep(ctx, s.throttle.DeleteInterval); err != nil {
				return deleted, err
			}
		}
		err := s.store.DeleteTable(ctx, name)
		switch {
		case err == nil:
			s.logger.Info().Msgf("Deleted table %q", name)
			deleted = append(deleted, name)
		case errors.Is(err, db.ErrTableNotFound):
			s.logger.Info().Msgf("Table %q does not exist, skipping", name)
		default:
			s.logger.Error().Err(err).Msgf("Failed to delete table %q", name)
		}
	}

	// Let the backing store settle before schema operations start.
	if err := s.sleep(ctx, s.throttle.SettleDelay); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// CreateTables creates or updates each entity table and waits for it to be
// ACTIVE. A failing table is logged with its stack and the next one is still
// attempted. It returns the names of the tables that are ready.
func (s *Seeder) CreateTables(ctx context.Context) ([]string, error) {
	var ready []string
	for _, table := range s.tables {
		if err := s.sleep(ctx, s.throttle.CreateDelay); err != nil {
			return ready, err
		}
		if err := s.store.CreateOrUpdateTable(ctx, table); err != nil {
			s.logger.Error().Stack().Err(err).Msgf("Failed to create table %q", table.Name)
			continue
		}
		s.logger.Info().Msgf("%s Table is ready", table.Name)
		ready = append(ready, table.Name)
	}
	s.logger.Info().Msgf("%d/%d tables ready", len(ready), len(s.tables))
	return ready, nil
}

func (s *Seeder) DiscoverFixtures() ([]fixtures.File, error) {
	files, err := fixtures.Discover(s.fixturesDir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if !f.Known {
			s.logger.Warn().Msgf("Fixture %s does not match any entity, using table %q", f.Path, f.Table)
		}
	}
	return files, nil
}

// SeedAll discovers the fixtures and seeds each file in name order.
func (s *Seeder) SeedAll(ctx context.Context) ([]FileResult, error) {
	files, err := s.DiscoverFixtures()
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		res, err := s.SeedFixture(ctx, f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SeedFixture inserts every record of one fixture file. Record failures are
// logged and counted; only reading or parsing the file returns an error.
func (s *Seeder) SeedFixture(ctx context.Context, f fixtures.File) (FileResult, error) {
	res := FileResult{File: f}

	records, err := f.Records()
	if err != nil {
		return res, err
	}

	table, ok := schema.Lookup(s.tables, f.Table)
	if !ok {
		table = schema.Table{Name: f.Table}
	}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if record == nil {
			record = map[string]any{}
		}
		s.fillID(table, record)
		if err := s.store.PutRecord(ctx, table, record); err != nil {
			res.Failed++
			s.logger.Error().Err(err).Str("file", f.Path).Int("record", i).Msgf("Failed to seed record into %q", table.Name)
			continue
		}
		res.Inserted++
	}

	s.logger.Info().Msgf("Seeded %s into %q (%d inserted, %d failed)", f.Path, table.Name, res.Inserted, res.Failed)
	return res, nil
}

func (s *Seeder) fillID(table schema.Table, record map[string]any) {
	if !table.GenerateID {
		return
	}
	key := table.PartitionKey.Name
	if v, ok := record[key]; ok && v != nil && v != "" {
		return
	}
	record[key] = s.newID()
}
