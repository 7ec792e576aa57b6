package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/schema"
)

// sqliteParams enables WAL so readers never block the single writer, waits on
// a locked database instead of failing, and makes every transaction take the
// write lock up front (BEGIN IMMEDIATE).
const sqliteParams = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

// SQLiteStore is the embedded, file-backed store. It owns the schema: Open
// migrates the file to schema.LatestVersion before returning.
type SQLiteStore struct {
	db      *sqlx.DB
	depicts *sqliteDepictRepo
}

// OpenSQLite opens (creating if needed) the SQLite file at path and migrates it
// from its recorded PRAGMA user_version to schema.LatestVersion.
// A file written by a newer binary is rejected with domain.ErrUnsupportedMigration.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: %w", err)
	}

	sqlDB, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("repo.OpenSQLite: open", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, storageErr("repo.OpenSQLite: ping", err)
	}

	s := &SQLiteStore{db: sqlDB, depicts: &sqliteDepictRepo{db: sqlDB}}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN turns a file path or a "file:" URI into a driver DSN carrying
// sqliteParams. A URI keeps its own query parameters. In-memory databases are
// rejected: every pooled connection would get its own empty database.
func sqliteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: path is required", domain.ErrValidation)
	}

	if !strings.HasPrefix(path, "file:") {
		if path == ":memory:" {
			return "", fmt.Errorf("%w: in-memory databases are not supported", domain.ErrValidation)
		}
		if strings.Contains(path, "?") {
			return "", fmt.Errorf("%w: query parameters need a file: URI, got %q", domain.ErrValidation, path)
		}
		return filepath.Clean(path) + "?" + sqliteParams, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: invalid sqlite URI: %w", domain.ErrValidation, err)
	}
	name := u.Opaque
	if name == "" {
		name = u.Path
	}
	if name == "" || name == ":memory:" || u.Query().Get("mode") == "memory" {
		return "", fmt.Errorf("%w: in-memory databases are not supported", domain.ErrValidation)
	}
	if u.RawQuery == "" {
		return path + "?" + sqliteParams, nil
	}
	return path + "&" + sqliteParams, nil
}

// Depictions returns the DepictRepo backed by this store.
func (s *SQLiteStore) Depictions() DepictRepo {
	return s.depicts
}

// Version returns the schema version recorded in the file.
func (s *SQLiteStore) Version(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, `PRAGMA user_version`); err != nil {
		return 0, storageErr("repo.SQLiteStore.Version", err)
	}
	return v, nil
}

// Reset drops every stored depiction and recreates the table at the latest version.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.depicts.mu.Lock()
	defer s.depicts.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("repo.SQLiteStore.Reset: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := schema.Reset(ctx, tx); err != nil {
		return storageErr("repo.SQLiteStore.Reset", err)
	}
	if err := setUserVersion(ctx, tx, schema.LatestVersion); err != nil {
		return storageErr("repo.SQLiteStore.Reset", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("repo.SQLiteStore.Reset: commit", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate runs all pending steps in one transaction, recording the version
// after each step so a step is never applied twice.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("repo.SQLiteStore.migrate: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var from int
	if err := tx.GetContext(ctx, &from, `PRAGMA user_version`); err != nil {
		return storageErr("repo.SQLiteStore.migrate: read version", err)
	}
	if from > schema.LatestVersion {
		return fmt.Errorf("repo.SQLiteStore.migrate: file is at version %d, binary knows %d: %w",
			from, schema.LatestVersion, domain.ErrUnsupportedMigration)
	}

	err = schema.Apply(ctx, tx, from, schema.LatestVersion, func(ctx context.Context, v int) error {
		return setUserVersion(ctx, tx, v)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedMigration) {
			return fmt.Errorf("repo.SQLiteStore.migrate: %w", err)
		}
		return storageErr("repo.SQLiteStore.migrate", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("repo.SQLiteStore.migrate: commit", err)
	}
	return nil
}

// setUserVersion writes PRAGMA user_version. PRAGMA arguments cannot be bound,
// hence the formatted integer.
func setUserVersion(ctx context.Context, db schema.Execer, v int) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v))
	return err
}

// sqliteDepictRepo is the SQLite implementation of DepictRepo.
// mu serializes writers inside this process; _txlock=immediate serializes
// them against other processes sharing the file.
type sqliteDepictRepo struct {
	mu sync.Mutex
	db *sqlx.DB
}

const selectDepict = `SELECT id, name, last_used, times_used FROM depicts`

// Save inserts or updates a depiction; see DepictRepo.Save.
func (r *sqliteDepictRepo) Save(ctx context.Context, d domain.Depiction) (domain.Depiction, error) {
	const op = "repo.DepictRepo.Save"
	if err := validateDepiction(op, d); err != nil {
		return domain.Depiction{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := toDepictRow(d)
	if d.IsNew() {
		existing, found, err := getDepict(ctx, tx, `WHERE name = ? ORDER BY id LIMIT 1`, row.Name)
		if err != nil {
			return domain.Depiction{}, storageErr(op, err)
		}
		if found {
			row.ID = existing.ID
			if _, err := updateDepict(ctx, tx, row); err != nil {
				return domain.Depiction{}, storageErr(op+": update", err)
			}
		} else {
			res, err := tx.NamedExecContext(ctx, `
				INSERT INTO depicts (name, last_used, times_used)
				VALUES (:name, :last_used, :times_used)`, row)
			if err != nil {
				return domain.Depiction{}, storageErr(op+": insert", err)
			}
			if row.ID, err = res.LastInsertId(); err != nil {
				return domain.Depiction{}, storageErr(op+": insert id", err)
			}
		}
	} else {
		other, taken, err := getDepict(ctx, tx, `WHERE name = ? AND id <> ? LIMIT 1`, row.Name, row.ID)
		if err != nil {
			return domain.Depiction{}, storageErr(op, err)
		}
		if taken {
			return domain.Depiction{}, fmt.Errorf("%s: %w: name %q belongs to id %d", op, domain.ErrConflict, row.Name, other.ID)
		}
		n, err := updateDepict(ctx, tx, row)
		if err != nil {
			return domain.Depiction{}, storageErr(op+": update", err)
		}
		if n == 0 {
			return domain.Depiction{}, fmt.Errorf("%s: id %d: %w", op, row.ID, domain.ErrNotFound)
		}
	}

	saved, _, err := getDepict(ctx, tx, `WHERE id = ?`, row.ID)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": reload", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Depiction{}, storageErr(op+": commit", err)
	}
	return saved.toDomain(), nil
}

// Touch records one use of name; see DepictRepo.Touch.
func (r *sqliteDepictRepo) Touch(ctx context.Context, name string, at time.Time) (domain.Depiction, error) {
	const op = "repo.DepictRepo.Touch"
	if err := validateName(op, name); err != nil {
		return domain.Depiction{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, found, err := getDepict(ctx, tx, `WHERE name = ? ORDER BY id LIMIT 1`, name)
	if err != nil {
		return domain.Depiction{}, storageErr(op, err)
	}
	if found {
		_, err = tx.ExecContext(ctx, `
			UPDATE depicts
			SET times_used = times_used + 1,
			    last_used  = MAX(last_used, ?)
			WHERE id = ?`, toMillis(at), row.ID)
		if err != nil {
			return domain.Depiction{}, storageErr(op+": update", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO depicts (name, last_used, times_used)
			VALUES (?, ?, 1)`, name, toMillis(at))
		if err != nil {
			return domain.Depiction{}, storageErr(op+": insert", err)
		}
		if row.ID, err = res.LastInsertId(); err != nil {
			return domain.Depiction{}, storageErr(op+": insert id", err)
		}
	}

	touched, _, err := getDepict(ctx, tx, `WHERE id = ?`, row.ID)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": reload", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Depiction{}, storageErr(op+": commit", err)
	}
	return touched.toDomain(), nil
}

// Find returns the depiction with the exact given name.
func (r *sqliteDepictRepo) Find(ctx context.Context, name string) (domain.Depiction, bool, error) {
	row, found, err := getDepict(ctx, r.db, `WHERE name = ? ORDER BY id LIMIT 1`, name)
	if err != nil {
		return domain.Depiction{}, false, storageErr("repo.DepictRepo.Find", err)
	}
	if !found {
		return domain.Depiction{}, false, nil
	}
	return row.toDomain(), true, nil
}

// Recent returns up to limit names ordered by last use, newest first.
func (r *sqliteDepictRepo) Recent(ctx context.Context, limit int) ([]string, error) {
	const op = "repo.DepictRepo.Recent"
	if err := validateLimit(op, limit); err != nil {
		return nil, err
	}
	names := []string{}
	if limit == 0 {
		return names, nil
	}

	err := r.db.SelectContext(ctx, &names, `
		SELECT name FROM depicts
		ORDER BY last_used DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return names, nil
}

// Delete removes the depiction with the given name.
func (r *sqliteDepictRepo) Delete(ctx context.Context, name string) error {
	const op = "repo.DepictRepo.Delete"

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM depicts WHERE name = ?`, name)
	if err != nil {
		return storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %q: %w", op, name, domain.ErrNotFound)
	}
	return nil
}

// getDepict runs selectDepict with the given tail and maps the first row by
// column name.
func getDepict(ctx context.Context, q sqlx.QueryerContext, tail string, args ...any) (depictRow, bool, error) {
	var row depictRow
	err := sqlx.GetContext(ctx, q, &row, selectDepict+" "+tail, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return depictRow{}, false, nil
	}
	if err != nil {
		return depictRow{}, false, err
	}
	return row, true, nil
}

func updateDepict(ctx context.Context, tx *sqlx.Tx, row depictRow) (int64, error) {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE depicts
		SET name       = :name,
		    last_used  = MAX(last_used, :last_used),
		    times_used = MAX(times_used, :times_used)
		WHERE id = :id`, row)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
