package main

import (
	"context"
	"fmt"

	"allday/adapters/excel"
	"allday/adapters/export"
	"allday/adapters/objectstore"
	"allday/adapters/postgres"
	"allday/adapters/postgres/migrations"
	"allday/app"
	"allday/internal"
	"allday/internal/cache"
	"allday/internal/config"
	"allday/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// runtime holds everything a command needs. Optional adapters stay nil
// interfaces when their configuration is absent.
type runtime struct {
	cfg    *config.Config
	tables *config.Tables
	logger *internal.Logger

	db       *sqlx.DB
	results  ports.ResultRepository
	runs     ports.RunRepository
	banks    ports.BankRepository
	exporter ports.BankExporter
}

func newRuntime(ctx context.Context) (*runtime, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewDefaultLogger()
	tables, err := config.LoadTables(cfg.Data.TablesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}

	rt := &runtime{cfg: cfg, tables: tables, logger: logger}
	if cfg.Persists() {
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.db = db
		rt.results = postgres.NewResultRepository(db)
		rt.runs = postgres.NewRunRepository(db)
		rt.banks = postgres.NewBankRepository(db)
		logger.Info("persisting results to postgres")
	}
	if cfg.Simulation.ExportDir != "" {
		rt.exporter = export.NewBankWriter(cfg.Simulation.ExportDir, "snappy", logger)
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
}

func (rt *runtime) source(ctx context.Context) (ports.SnapshotSource, error) {
	if rt.cfg.UsesS3() {
		return objectstore.NewSnapshotSource(ctx, rt.cfg.Storage.Region, rt.cfg.Storage.Bucket, rt.cfg.Storage.Prefix, rt.logger)
	}
	return excel.NewDirSource(rt.cfg.Data.Dir), nil
}

func (rt *runtime) loadSnapshot(ctx context.Context) (*app.Snapshot, error) {
	src, err := rt.source(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewSnapshotService(src, rt.cfg.Data, rt.tables, rt.logger).Load(ctx)
}

func (rt *runtime) materializer() (*app.MaterializeService, error) {
	memo, err := cache.New(rt.cfg.Cache.Size, rt.cfg.Cache.TTL, rt.logger)
	if err != nil {
		return nil, err
	}
	return app.NewMaterializeService(rt.tables, memo, rt.results, rt.runs, rt.logger)
}

func (rt *runtime) packs() *app.PackService {
	return app.NewPackService(rt.tables, rt.banks, rt.exporter, rt.results, rt.logger)
}

func (rt *runtime) migrate(ctx context.Context) error {
	if rt.db == nil {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	return migrations.NewMigrator(rt.db.DB, rt.logger).Up(ctx)
}

// bankSeed resolves the seed flag: explicit flag, then BANK_SEED, then zero
// which the caller replaces with the clock
func (rt *runtime) bankSeed(flag int64) int64 {
	if flag != 0 {
		return flag
	}
	return rt.cfg.Simulation.BankSeed
}
