package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/repo"
	"github.com/pkordes/commons-depicts/backend/testutil"
)

// newTestPgDepictRepo returns a Postgres DepictRepo backed by a transaction
// that is rolled back when the test ends. Skips without TEST_DATABASE_URL.
func newTestPgDepictRepo(t *testing.T) repo.DepictRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewDepictRepo(tx)
}

func TestPgDepictRepo_Save_Insert(t *testing.T) {
	depicts := newTestPgDepictRepo(t)

	got, err := depicts.Save(context.Background(), domain.Depiction{Name: "cat", LastUsed: ms(100), TimesUsed: 1})

	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, ms(100), got.LastUsed)
}

func TestPgDepictRepo_CatDogScenario(t *testing.T) {
	ctx := context.Background()
	depicts := newTestPgDepictRepo(t)

	cat, err := depicts.Save(ctx, domain.Depiction{Name: "cat", LastUsed: ms(100), TimesUsed: 1})
	require.NoError(t, err)
	_, err = depicts.Save(ctx, domain.Depiction{Name: "dog", LastUsed: ms(200), TimesUsed: 1})
	require.NoError(t, err)
	_, err = depicts.Save(ctx, domain.Depiction{ID: cat.ID, Name: "cat", LastUsed: ms(300), TimesUsed: 2})
	require.NoError(t, err)

	names, err := depicts.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, names)

	got, found, err := depicts.Find(ctx, "cat")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.TimesUsed)
	assert.Equal(t, ms(300), got.LastUsed)
}

func TestPgDepictRepo_Save_NewWithExistingName(t *testing.T) {
	ctx := context.Background()
	depicts := newTestPgDepictRepo(t)

	first, err := depicts.Save(ctx, domain.Depiction{Name: "cat", LastUsed: ms(1), TimesUsed: 1})
	require.NoError(t, err)
	second, err := depicts.Save(ctx, domain.Depiction{Name: "cat", LastUsed: ms(2), TimesUsed: 2})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestPgDepictRepo_Save_UpdateMissingID(t *testing.T) {
	depicts := newTestPgDepictRepo(t)

	_, err := depicts.Save(context.Background(), domain.Depiction{ID: 987654, Name: "ghost"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPgDepictRepo_Find_NotFound(t *testing.T) {
	depicts := newTestPgDepictRepo(t)

	_, found, err := depicts.Find(context.Background(), "nonexistent")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestPgDepictRepo_Recent_Zero(t *testing.T) {
	depicts := newTestPgDepictRepo(t)

	got, err := depicts.Recent(context.Background(), 0)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPgDepictRepo_Delete(t *testing.T) {
	ctx := context.Background()
	depicts := newTestPgDepictRepo(t)
	_, err := depicts.Save(ctx, domain.Depiction{Name: "cat", LastUsed: ms(1), TimesUsed: 1})
	require.NoError(t, err)

	require.NoError(t, depicts.Delete(ctx, "cat"))

	assert.ErrorIs(t, depicts.Delete(ctx, "cat"), domain.ErrNotFound)
}

func TestPgDepictRepo_Touch(t *testing.T) {
	ctx := context.Background()
	depicts := newTestPgDepictRepo(t)

	first, err := depicts.Touch(ctx, "cat", ms(500))
	require.NoError(t, err)
	assert.Equal(t, 1, first.TimesUsed)

	got, err := depicts.Touch(ctx, "cat", ms(100))

	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2, got.TimesUsed)
	assert.Equal(t, ms(500), got.LastUsed)
}

func TestPgDepictRepo_LastUsed_Epoch(t *testing.T) {
	ctx := context.Background()
	depicts := newTestPgDepictRepo(t)

	_, err := depicts.Save(ctx, domain.Depiction{Name: "epoch", LastUsed: ms(0), TimesUsed: 1})
	require.NoError(t, err)

	got, found, err := depicts.Find(ctx, "epoch")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ms(0), got.LastUsed)
}
