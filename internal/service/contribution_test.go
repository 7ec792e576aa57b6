package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/service"
	"github.com/pkordes/commons-depicts/backend/internal/thumbcache"
)

// ---- helpers ---------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newThumbs(t *testing.T) *thumbcache.Cache {
	t.Helper()
	c, err := thumbcache.New(10)
	require.NoError(t, err)
	return c
}

// mediaStub answers captions from a table and thumbnails as "https://thumb/<file>",
// counting thumbnail lookups.
func mediaStub(captions map[string]string, thumbCalls *atomic.Int32) *mockRemote {
	return &mockRemote{
		caption: func(_ context.Context, mediaID, _ string) (string, error) {
			return captions[mediaID], nil
		},
		thumbnailURL: func(_ context.Context, fileName string, _ int) (string, error) {
			if thumbCalls != nil {
				thumbCalls.Add(1)
			}
			return "https://thumb/" + fileName, nil
		},
	}
}

func noLocalFiles(string) bool { return false }

func completed(pageID int64) domain.Contribution {
	return domain.Contribution{
		ID:           uuid.New(),
		Filename:     "Cat.jpg",
		DisplayTitle: "Cat",
		PageID:       pageID,
		State:        domain.StateCompleted,
	}
}

// ---- Describe: title -------------------------------------------------------

func TestContributionService_Describe_UsesCaption(t *testing.T) {
	svc := service.NewContributionService(mediaStub(map[string]string{"M7": "A sleeping cat"}, nil),
		newThumbs(t), quietLogger(), service.ContributionConfig{FileExists: noLocalFiles})

	got, err := svc.Describe(context.Background(), completed(7))

	require.NoError(t, err)
	assert.Equal(t, "A sleeping cat", got.Title)
}

func TestContributionService_Describe_NoCaptionFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		caption string
	}{
		{"absent", ""},
		{"blank", "   "},
		{"placeholder", "No caption"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewContributionService(mediaStub(map[string]string{"M7": tt.caption}, nil),
				newThumbs(t), quietLogger(), service.ContributionConfig{FileExists: noLocalFiles})

			got, err := svc.Describe(context.Background(), completed(7))

			require.NoError(t, err)
			assert.Equal(t, "Cat", got.Title)
		})
	}
}

func TestContributionService_Describe_CaptionErrorDegrades(t *testing.T) {
	remote := mediaStub(nil, nil)
	remote.caption = func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("unreachable")
	}
	svc := service.NewContributionService(remote, newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	got, err := svc.Describe(context.Background(), completed(7))

	require.NoError(t, err)
	assert.Equal(t, "Cat", got.Title)
}

func TestContributionService_Describe_CaptionOnlyWhenCompleted(t *testing.T) {
	remote := mediaStub(nil, nil)
	remote.caption = func(_ context.Context, _, _ string) (string, error) {
		t.Fatal("caption must not be fetched for unfinished uploads")
		return "", nil
	}
	svc := service.NewContributionService(remote, newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	c := completed(7)
	c.State = domain.StateQueued
	got, err := svc.Describe(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, "Cat", got.Title)
}

func TestContributionService_Describe_CaptionTimeout(t *testing.T) {
	remote := mediaStub(nil, nil)
	remote.caption = func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	svc := service.NewContributionService(remote, newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles, Timeout: 10 * time.Millisecond})

	got, err := svc.Describe(context.Background(), completed(7))

	require.NoError(t, err)
	assert.Equal(t, "Cat", got.Title)
}

// ---- Describe: thumbnail ---------------------------------------------------

func TestContributionService_Describe_ThumbnailCached(t *testing.T) {
	var calls atomic.Int32
	thumbs := newThumbs(t)
	svc := service.NewContributionService(mediaStub(nil, &calls), thumbs, quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	first, err := svc.Describe(context.Background(), completed(7))
	require.NoError(t, err)
	second, err := svc.Describe(context.Background(), completed(7))
	require.NoError(t, err)

	assert.Equal(t, "https://thumb/Cat.jpg", first.ThumbnailURL)
	assert.Equal(t, first.ThumbnailURL, second.ThumbnailURL)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, thumbs.Len())
}

func TestContributionService_Describe_LocalFileForUnfinished(t *testing.T) {
	var calls atomic.Int32
	svc := service.NewContributionService(mediaStub(nil, &calls), newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: func(uri string) bool { return uri == "file:///sdcard/cat.jpg" }})

	c := completed(0)
	c.State = domain.StateInProgress
	c.LocalURI = "file:///sdcard/cat.jpg"
	got, err := svc.Describe(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, "file:///sdcard/cat.jpg", got.ThumbnailURL)
	assert.Zero(t, calls.Load())
}

func TestContributionService_Describe_MissingLocalFileUsesRemote(t *testing.T) {
	svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	c := completed(0)
	c.State = domain.StateFailed
	c.LocalURI = "file:///gone.jpg"
	got, err := svc.Describe(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, "https://thumb/Cat.jpg", got.ThumbnailURL)
}

func TestContributionService_Describe_DefaultFileExists(t *testing.T) {
	path := t.TempDir() + "/cat.jpg"
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))
	svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(), service.ContributionConfig{})

	c := completed(0)
	c.State = domain.StateQueued
	c.LocalURI = "file://" + path
	got, err := svc.Describe(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, c.LocalURI, got.ThumbnailURL)
}

func TestContributionService_Describe_ThumbnailErrorDegrades(t *testing.T) {
	remote := mediaStub(nil, nil)
	remote.thumbnailURL = func(_ context.Context, _ string, _ int) (string, error) {
		return "", domain.ErrNotFound
	}
	thumbs := newThumbs(t)
	svc := service.NewContributionService(remote, thumbs, quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	got, err := svc.Describe(context.Background(), completed(7))

	require.NoError(t, err)
	assert.Empty(t, got.ThumbnailURL)
	assert.Zero(t, thumbs.Len())
}

// ---- Describe: state -------------------------------------------------------

func TestContributionService_Describe_States(t *testing.T) {
	tests := []struct {
		name        string
		state       domain.ContributionState
		transferred int64
		wantLabel   string
		wantProg    *domain.Progress
		wantFailed  bool
	}{
		{name: "completed", state: domain.StateCompleted},
		{name: "queued", state: domain.StateQueued, wantLabel: "queued"},
		{name: "in progress, nothing sent", state: domain.StateInProgress, wantProg: &domain.Progress{Indeterminate: true}},
		{name: "in progress, half", state: domain.StateInProgress, transferred: 50, wantProg: &domain.Progress{Percent: 50}},
		{name: "in progress, all sent", state: domain.StateInProgress, transferred: 100, wantProg: &domain.Progress{Indeterminate: true}},
		{name: "failed", state: domain.StateFailed, wantLabel: "failed", wantFailed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(),
				service.ContributionConfig{FileExists: noLocalFiles})

			c := completed(0)
			c.State = tt.state
			c.Transferred = tt.transferred
			c.DataLength = 100
			c.Position = 4
			got, err := svc.Describe(context.Background(), c)

			require.NoError(t, err)
			assert.Equal(t, 5, got.Sequence)
			assert.Equal(t, tt.wantLabel, got.StateLabel)
			assert.Equal(t, tt.wantProg != nil, got.ShowProgress)
			assert.Equal(t, tt.wantProg, got.Progress)
			assert.Equal(t, tt.wantFailed, got.ShowFailedOptions)
		})
	}
}

func TestContributionService_Describe_Validation(t *testing.T) {
	svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(), service.ContributionConfig{})

	c := completed(1)
	c.State = "paused"
	_, err := svc.Describe(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrValidation)

	c = completed(1)
	c.Position = -1
	_, err = svc.Describe(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- DescribeAll -----------------------------------------------------------

func TestContributionService_DescribeAll_KeepsOrder(t *testing.T) {
	captions := map[string]string{}
	var cs []domain.Contribution
	for i := 1; i <= 20; i++ {
		c := completed(int64(i))
		c.Position = i - 1
		c.Filename = uuid.NewString() + ".jpg"
		captions[c.MediaID()] = c.MediaID()
		cs = append(cs, c)
	}
	svc := service.NewContributionService(mediaStub(captions, nil), newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles, Workers: 3})

	got, err := svc.DescribeAll(context.Background(), cs)

	require.NoError(t, err)
	require.Len(t, got, len(cs))
	for i, v := range got {
		assert.Equal(t, cs[i].ID, v.ID)
		assert.Equal(t, i+1, v.Sequence)
		assert.Equal(t, cs[i].MediaID(), v.Title)
	}
}

func TestContributionService_DescribeAll_Empty(t *testing.T) {
	svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(), service.ContributionConfig{})

	got, err := svc.DescribeAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestContributionService_DescribeAll_InvalidEntry(t *testing.T) {
	svc := service.NewContributionService(mediaStub(nil, nil), newThumbs(t), quietLogger(),
		service.ContributionConfig{FileExists: noLocalFiles})

	bad := completed(2)
	bad.State = ""
	_, err := svc.DescribeAll(context.Background(), []domain.Contribution{completed(1), bad})

	assert.ErrorIs(t, err, domain.ErrValidation)
}
