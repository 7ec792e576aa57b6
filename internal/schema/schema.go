// Package schema owns the SQLite layout of the depictions store and the
// ordered list of steps that evolves it from one version to the next.
//
// The version itself lives in SQLite's PRAGMA user_version; the store reads it
// on open and calls Migrate with it. Every step moves the schema by exactly one
// version, so any upgrade is the in-order replay of the steps in between.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

const (
	// IntroducedIn is the first version in which the depicts table exists.
	// Versions below it have no table at all.
	IntroducedIn = 5

	// LatestVersion is the version a freshly opened store is migrated to.
	LatestVersion = 6

	// Table is the name of the depictions table.
	Table = "depicts"
)

// Column names of the depicts table. Row mapping is always by these names.
const (
	ColumnID        = "id"
	ColumnName      = "name"
	ColumnLastUsed  = "last_used"
	ColumnTimesUsed = "times_used"
)

// Execer is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Step upgrades the schema from Version-1 to Version.
// Up must be idempotent: running it against a schema that already has the
// change is harmless.
type Step struct {
	Version int
	Name    string
	Up      func(ctx context.Context, db Execer) error
}

const createTable = `
	CREATE TABLE IF NOT EXISTS ` + Table + ` (
		` + ColumnID + `         INTEGER PRIMARY KEY AUTOINCREMENT,
		` + ColumnName + `       TEXT    NOT NULL,
		` + ColumnLastUsed + `  INTEGER NOT NULL DEFAULT 0,
		` + ColumnTimesUsed + ` INTEGER NOT NULL DEFAULT 0
	)`

const createRecencyIndex = `
	CREATE INDEX IF NOT EXISTS idx_depicts_last_used
	ON ` + Table + ` (` + ColumnLastUsed + ` DESC, ` + ColumnID + `)`

const dropTable = `DROP TABLE IF EXISTS ` + Table

// steps is indexed by version; steps[0] is unused.
var steps = []Step{
	{},
	{Version: 1, Name: "baseline", Up: noop},
	{Version: 2, Name: "baseline", Up: noop},
	{Version: 3, Name: "baseline", Up: noop},
	{Version: 4, Name: "baseline", Up: noop},
	{Version: 5, Name: "create depicts table", Up: execAll(createTable)},
	{Version: 6, Name: "index depicts by recency", Up: execAll(createRecencyIndex)},
}

// Steps returns the ordered migration table, one entry per version from 1 to
// LatestVersion.
func Steps() []Step {
	out := make([]Step, len(steps)-1)
	copy(out, steps[1:])
	return out
}

// StepFor returns the step that upgrades the schema to version.
func StepFor(version int) (Step, error) {
	if version < 1 || version > LatestVersion {
		return Step{}, fmt.Errorf("schema.StepFor: version %d: %w", version, domain.ErrUnsupportedMigration)
	}
	return steps[version], nil
}

// Migrate applies, in order, every step from from+1 up to and including to.
// from == to is a no-op. Downgrades and targets beyond LatestVersion return
// domain.ErrUnsupportedMigration without touching the database.
//
// Migrate does not record the version; see Apply for that.
func Migrate(ctx context.Context, db Execer, from, to int) error {
	return Apply(ctx, db, from, to, nil)
}

// Apply is Migrate with a hook that runs after each step, e.g. to persist
// the version reached inside the same transaction.
func Apply(ctx context.Context, db Execer, from, to int, after func(ctx context.Context, version int) error) error {
	if err := checkRange(from, to); err != nil {
		return err
	}
	for v := from + 1; v <= to; v++ {
		step := steps[v]
		if err := step.Up(ctx, db); err != nil {
			return fmt.Errorf("schema.Migrate: step %d (%s): %w", v, step.Name, err)
		}
		if after != nil {
			if err := after(ctx, v); err != nil {
				return fmt.Errorf("schema.Migrate: record version %d: %w", v, err)
			}
		}
	}
	return nil
}

// Reset drops the depicts table and recreates it at LatestVersion.
// All stored depictions are lost.
func Reset(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, dropTable); err != nil {
		return fmt.Errorf("schema.Reset: drop: %w", err)
	}
	return Migrate(ctx, db, IntroducedIn-1, LatestVersion)
}

func checkRange(from, to int) error {
	switch {
	case from < 0:
		return fmt.Errorf("schema.Migrate: negative version %d: %w", from, domain.ErrUnsupportedMigration)
	case from > to:
		return fmt.Errorf("schema.Migrate: downgrade %d -> %d: %w", from, to, domain.ErrUnsupportedMigration)
	case to > LatestVersion:
		return fmt.Errorf("schema.Migrate: unknown version %d (latest %d): %w", to, LatestVersion, domain.ErrUnsupportedMigration)
	}
	return nil
}

func noop(context.Context, Execer) error { return nil }

func execAll(stmts ...string) func(ctx context.Context, db Execer) error {
	return func(ctx context.Context, db Execer) error {
		for _, s := range stmts {
			if _, err := db.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}
