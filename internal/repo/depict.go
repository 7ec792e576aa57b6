package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// DepictRepo defines the persistence operations for Depictions.
// Implementations are safe for concurrent use: writes are serialized so two
// saves of the same name never produce two rows.
type DepictRepo interface {
	// Save persists d. A zero ID means "new": the row with the same name is
	// updated in place if one exists, otherwise a row is inserted and a fresh
	// ID assigned. A non-zero ID updates that row in place and returns
	// domain.ErrNotFound if it no longer exists, or domain.ErrConflict if the
	// new name belongs to another row.
	//
	// LastUsed and TimesUsed never move backwards: the stored value is the
	// larger of the old and the new one. The persisted row is returned.
	Save(ctx context.Context, d domain.Depiction) (domain.Depiction, error)

	// Find looks a depiction up by exact name. A missing row is reported as
	// found=false with a nil error.
	Find(ctx context.Context, name string) (domain.Depiction, bool, error)

	// Recent returns up to limit names, most recently used first. Ties on
	// LastUsed are broken by ID ascending. limit must not be negative.
	Recent(ctx context.Context, limit int) ([]string, error)

	// Touch records one use of name at the given time in a single serialized
	// write: TimesUsed goes up by exactly one and LastUsed becomes the later
	// of the stored value and at. A name seen for the first time is inserted
	// with TimesUsed 1. The persisted row is returned.
	Touch(ctx context.Context, name string, at time.Time) (domain.Depiction, error)

	// Delete removes the depiction with the given name.
	// Returns domain.ErrNotFound if there is none. IDs are never reused.
	Delete(ctx context.Context, name string) error
}

// depictRow is the stored shape of a Depiction. Both engines map result
// columns onto it by the db tag, so column order in a query never matters.
type depictRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	LastUsed  int64  `db:"last_used"`
	TimesUsed int64  `db:"times_used"`
}

func toDepictRow(d domain.Depiction) depictRow {
	return depictRow{
		ID:        d.ID,
		Name:      d.Name,
		LastUsed:  toMillis(d.LastUsed),
		TimesUsed: int64(d.TimesUsed),
	}
}

func (r depictRow) toDomain() domain.Depiction {
	return domain.Depiction{
		ID:        r.ID,
		Name:      r.Name,
		LastUsed:  fromMillis(r.LastUsed),
		TimesUsed: int(r.TimesUsed),
	}
}

// zeroMillis is how the zero time.Time is stored: its own millisecond value,
// far below any real timestamp, so 0 stays free for the Unix epoch and
// "never used" still sorts last in Recent.
var zeroMillis = time.Time{}.UnixMilli()

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == zeroMillis {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// validateDepiction checks the invariants every engine enforces before a write.
func validateDepiction(op string, d domain.Depiction) error {
	if err := validateName(op, d.Name); err != nil {
		return err
	}
	if d.TimesUsed < 0 {
		return fmt.Errorf("%s: %w: times used must not be negative", op, domain.ErrValidation)
	}
	if d.ID < 0 {
		return fmt.Errorf("%s: %w: invalid id %d", op, domain.ErrValidation, d.ID)
	}
	return nil
}

func validateName(op, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s: %w: name is required", op, domain.ErrValidation)
	}
	return nil
}

func validateLimit(op string, limit int) error {
	if limit < 0 {
		return fmt.Errorf("%s: %w: limit must not be negative", op, domain.ErrValidation)
	}
	return nil
}
