package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/commons-depicts/backend/internal/config"
	"github.com/pkordes/commons-depicts/backend/internal/repo"
	"github.com/pkordes/commons-depicts/backend/migrations"
)

// openStore opens the depiction store selected by cfg.StoreDriver, brings its
// schema up to date and returns it with a function that releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.DepictRepo, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.DatabaseURL, log)
	default:
		return openSQLite(ctx, cfg.DatabaseURL, log)
	}
}

func openSQLite(ctx context.Context, path string, log *slog.Logger) (repo.DepictRepo, func(), error) {
	store, err := repo.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	version, err := store.Version(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	log.Info("sqlite store ready", "path", path, "schema_version", version)

	return store.Depictions(), func() {
		if err := store.Close(); err != nil {
			log.Error("closing sqlite store", "error", err)
		}
	}, nil
}

func openPostgres(ctx context.Context, dsn string, log *slog.Logger) (repo.DepictRepo, func(), error) {
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("create database pool: %w", err)
	}

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	// goose needs a database/sql handle; borrow one backed by the same pool.
	// The pool owns the connections, so sqlDB is not closed separately.
	sqlDB := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.FS)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("read schema version: %w", err)
	}
	log.Info("postgres store ready", "applied", len(results), "schema_version", version)

	return repo.NewDepictRepo(pool), pool.Close, nil
}
