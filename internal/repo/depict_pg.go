package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// pgDepictRepo is the Postgres implementation of DepictRepo.
// Writers for the same name are serialized by a transaction-scoped advisory
// lock on the name's hash, which also covers other processes sharing the DB.
type pgDepictRepo struct {
	db db
}

// NewDepictRepo constructs a Postgres DepictRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
// The depicts table is created by the goose migrations in /migrations.
func NewDepictRepo(db db) DepictRepo {
	return &pgDepictRepo{db: db}
}

const pgSelectDepict = `SELECT id, name, last_used, times_used FROM depicts`

// Save inserts or updates a depiction; see DepictRepo.Save.
func (r *pgDepictRepo) Save(ctx context.Context, d domain.Depiction) (domain.Depiction, error) {
	const op = "repo.DepictRepo.Save"
	if err := validateDepiction(op, d); err != nil {
		return domain.Depiction{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := toDepictRow(d)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(@name))`, pgx.NamedArgs{"name": row.Name}); err != nil {
		return domain.Depiction{}, storageErr(op+": lock", err)
	}

	var saved depictRow
	if d.IsNew() {
		existing, found, err := pgGetDepict(ctx, tx, `WHERE name = @name ORDER BY id LIMIT 1`, pgx.NamedArgs{"name": row.Name})
		if err != nil {
			return domain.Depiction{}, storageErr(op, err)
		}
		if found {
			row.ID = existing.ID
			saved, _, err = pgUpdateDepict(ctx, tx, row)
			if err != nil {
				return domain.Depiction{}, storageErr(op+": update", err)
			}
		} else {
			saved, _, err = pgQueryDepict(ctx, tx, `
				INSERT INTO depicts (name, last_used, times_used)
				VALUES (@name, @last_used, @times_used)
				RETURNING id, name, last_used, times_used`, depictArgs(row))
			if err != nil {
				return domain.Depiction{}, storageErr(op+": insert", err)
			}
		}
	} else {
		other, taken, err := pgGetDepict(ctx, tx, `WHERE name = @name AND id <> @id LIMIT 1`,
			pgx.NamedArgs{"name": row.Name, "id": row.ID})
		if err != nil {
			return domain.Depiction{}, storageErr(op, err)
		}
		if taken {
			return domain.Depiction{}, fmt.Errorf("%s: %w: name %q belongs to id %d", op, domain.ErrConflict, row.Name, other.ID)
		}
		var found bool
		saved, found, err = pgUpdateDepict(ctx, tx, row)
		if err != nil {
			return domain.Depiction{}, storageErr(op+": update", err)
		}
		if !found {
			return domain.Depiction{}, fmt.Errorf("%s: id %d: %w", op, row.ID, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Depiction{}, storageErr(op+": commit", err)
	}
	return saved.toDomain(), nil
}

// Touch records one use of name; see DepictRepo.Touch.
func (r *pgDepictRepo) Touch(ctx context.Context, name string, at time.Time) (domain.Depiction, error) {
	const op = "repo.DepictRepo.Touch"
	if err := validateName(op, name); err != nil {
		return domain.Depiction{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Depiction{}, storageErr(op+": begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(@name))`, pgx.NamedArgs{"name": name}); err != nil {
		return domain.Depiction{}, storageErr(op+": lock", err)
	}

	args := pgx.NamedArgs{"name": name, "last_used": toMillis(at)}
	existing, found, err := pgGetDepict(ctx, tx, `WHERE name = @name ORDER BY id LIMIT 1`, args)
	if err != nil {
		return domain.Depiction{}, storageErr(op, err)
	}

	var touched depictRow
	if found {
		args["id"] = existing.ID
		touched, _, err = pgQueryDepict(ctx, tx, `
			UPDATE depicts
			SET times_used = times_used + 1,
			    last_used  = GREATEST(last_used, @last_used)
			WHERE id = @id
			RETURNING id, name, last_used, times_used`, args)
		if err != nil {
			return domain.Depiction{}, storageErr(op+": update", err)
		}
	} else {
		touched, _, err = pgQueryDepict(ctx, tx, `
			INSERT INTO depicts (name, last_used, times_used)
			VALUES (@name, @last_used, 1)
			RETURNING id, name, last_used, times_used`, args)
		if err != nil {
			return domain.Depiction{}, storageErr(op+": insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Depiction{}, storageErr(op+": commit", err)
	}
	return touched.toDomain(), nil
}

// Find returns the depiction with the exact given name.
func (r *pgDepictRepo) Find(ctx context.Context, name string) (domain.Depiction, bool, error) {
	row, found, err := pgGetDepict(ctx, r.db, `WHERE name = @name ORDER BY id LIMIT 1`, pgx.NamedArgs{"name": name})
	if err != nil {
		return domain.Depiction{}, false, storageErr("repo.DepictRepo.Find", err)
	}
	if !found {
		return domain.Depiction{}, false, nil
	}
	return row.toDomain(), true, nil
}

// Recent returns up to limit names ordered by last use, newest first.
func (r *pgDepictRepo) Recent(ctx context.Context, limit int) ([]string, error) {
	const op = "repo.DepictRepo.Recent"
	if err := validateLimit(op, limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []string{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT name FROM depicts
		ORDER BY last_used DESC, id ASC
		LIMIT @limit`, pgx.NamedArgs{"limit": limit})
	if err != nil {
		return nil, storageErr(op, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr(op+": rows", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Delete removes the depiction with the given name.
func (r *pgDepictRepo) Delete(ctx context.Context, name string) error {
	const op = "repo.DepictRepo.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM depicts WHERE name = @name`, pgx.NamedArgs{"name": name})
	if err != nil {
		return storageErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %q: %w", op, name, domain.ErrNotFound)
	}
	return nil
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func depictArgs(row depictRow) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":         row.ID,
		"name":       row.Name,
		"last_used":  row.LastUsed,
		"times_used": row.TimesUsed,
	}
}

func pgGetDepict(ctx context.Context, q pgQuerier, tail string, args pgx.NamedArgs) (depictRow, bool, error) {
	return pgQueryDepict(ctx, q, pgSelectDepict+" "+tail, args)
}

// pgQueryDepict maps the single result row onto depictRow by column name.
func pgQueryDepict(ctx context.Context, q pgQuerier, sql string, args pgx.NamedArgs) (depictRow, bool, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		return depictRow{}, false, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[depictRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return depictRow{}, false, nil
	}
	if err != nil {
		return depictRow{}, false, err
	}
	return row, true, nil
}

func pgUpdateDepict(ctx context.Context, q pgQuerier, row depictRow) (depictRow, bool, error) {
	return pgQueryDepict(ctx, q, `
		UPDATE depicts
		SET name       = @name,
		    last_used  = GREATEST(last_used, @last_used),
		    times_used = GREATEST(times_used, @times_used)
		WHERE id = @id
		RETURNING id, name, last_used, times_used`, depictArgs(row))
}
