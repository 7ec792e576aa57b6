package schema_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/schema"
	"github.com/pkordes/commons-depicts/backend/testutil"
)

// ---- Steps -----------------------------------------------------------------

func TestSteps_OrderedAndComplete(t *testing.T) {
	steps := schema.Steps()

	require.Len(t, steps, schema.LatestVersion)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Version, "step %d out of order", i)
		assert.NotNil(t, s.Up, "step %d has no Up func", s.Version)
		assert.NotEmpty(t, s.Name)
	}
}

func TestStepFor_OutOfRange(t *testing.T) {
	_, err := schema.StepFor(0)
	assert.ErrorIs(t, err, domain.ErrUnsupportedMigration)

	_, err = schema.StepFor(schema.LatestVersion + 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedMigration)
}

// ---- Migrate ---------------------------------------------------------------

func TestMigrate_FreshToLatest(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	err := schema.Migrate(context.Background(), db, 0, schema.LatestVersion)

	require.NoError(t, err)
	assert.True(t, objectExists(t, db, "table", schema.Table))
	assert.True(t, objectExists(t, db, "index", "idx_depicts_last_used"))
}

func TestMigrate_DirectMatchesStepwise(t *testing.T) {
	ctx := context.Background()
	direct := testutil.NewSQLiteDB(t)
	stepwise := testutil.NewSQLiteDB(t)

	require.NoError(t, schema.Migrate(ctx, direct, 0, schema.LatestVersion))
	for v := 0; v < schema.LatestVersion; v++ {
		require.NoError(t, schema.Migrate(ctx, stepwise, v, v+1), "step %d -> %d", v, v+1)
	}

	assert.Equal(t, schemaDDL(t, direct), schemaDDL(t, stepwise))
}

func TestMigrate_SameVersionIsNoop(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	err := schema.Migrate(context.Background(), db, 3, 3)

	require.NoError(t, err)
	assert.False(t, objectExists(t, db, "table", schema.Table))
}

func TestMigrate_BelowIntroductionHasNoTable(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, schema.Migrate(context.Background(), db, 0, schema.IntroducedIn-1))

	assert.False(t, objectExists(t, db, "table", schema.Table))
}

func TestMigrate_IntroductionStepCreatesTable(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, schema.Migrate(context.Background(), db, 2, schema.IntroducedIn))

	assert.True(t, objectExists(t, db, "table", schema.Table))
	assert.False(t, objectExists(t, db, "index", "idx_depicts_last_used"),
		"the recency index belongs to the next version")
}

func TestMigrate_Downgrade(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	err := schema.Migrate(context.Background(), db, 6, 5)

	assert.ErrorIs(t, err, domain.ErrUnsupportedMigration)
}

func TestMigrate_UnknownTarget(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	err := schema.Migrate(context.Background(), db, 0, schema.LatestVersion+1)

	assert.ErrorIs(t, err, domain.ErrUnsupportedMigration)
	assert.False(t, objectExists(t, db, "table", schema.Table), "nothing should be applied")
}

func TestMigrate_StepsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, schema.Migrate(ctx, db, 0, schema.LatestVersion))
	// Replaying every step over an up-to-date schema must not fail.
	for _, s := range schema.Steps() {
		require.NoError(t, s.Up(ctx, db), "replay step %d", s.Version)
	}
}

// ---- Apply -----------------------------------------------------------------

func TestApply_VisitsEveryIntermediateVersion(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	var visited []int

	err := schema.Apply(context.Background(), db, 2, 6, func(_ context.Context, v int) error {
		visited = append(visited, v)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6}, visited)
}

// ---- Reset -----------------------------------------------------------------

func TestReset_DropsRows(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, schema.Migrate(ctx, db, 0, schema.LatestVersion))
	_, err := db.ExecContext(ctx, `INSERT INTO depicts (name, last_used, times_used) VALUES ('cat', 1, 1)`)
	require.NoError(t, err)

	require.NoError(t, schema.Reset(ctx, db))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM depicts`).Scan(&n))
	assert.Zero(t, n)
	assert.True(t, objectExists(t, db, "index", "idx_depicts_last_used"))
}

// ---- helpers ---------------------------------------------------------------

func objectExists(t *testing.T, db *sql.DB, kind, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

// schemaDDL returns the CREATE statements of every user object, ordered by name.
func schemaDDL(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.QueryContext(context.Background(),
		`SELECT sql FROM sqlite_master WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}
