package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/thumbcache"
	"github.com/pkordes/commons-depicts/backend/internal/wikibase"
)

// noCaption is the placeholder some clients store in place of a caption.
const noCaption = "No caption"

const (
	defaultRemoteTimeout = 15 * time.Second
	defaultDescribers    = 8
)

// MediaLookup fetches display data for uploaded files.
type MediaLookup interface {
	Caption(ctx context.Context, mediaID, lang string) (string, error)
	ThumbnailURL(ctx context.Context, fileName string, width int) (string, error)
}

// ContributionConfig tunes a ContributionService. Zero values pick defaults.
type ContributionConfig struct {
	// Timeout bounds each remote call made while describing one contribution.
	Timeout time.Duration
	// Workers bounds how many contributions DescribeAll describes at once.
	Workers int
	// FileExists reports whether a local upload source is still readable.
	FileExists func(uri string) bool
}

// ContributionService turns tracked uploads into list rows.
type ContributionService struct {
	media  MediaLookup
	thumbs *thumbcache.Cache
	log    *slog.Logger
	cfg    ContributionConfig
}

// NewContributionService constructs a ContributionService.
func NewContributionService(media MediaLookup, thumbs *thumbcache.Cache, log *slog.Logger, cfg ContributionConfig) *ContributionService {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRemoteTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultDescribers
	}
	if cfg.FileExists == nil {
		cfg.FileExists = localFileExists
	}
	return &ContributionService{media: media, thumbs: thumbs, log: log, cfg: cfg}
}

// Describe builds the list row for c. Remote failures are logged and degrade
// to the display title or an empty thumbnail; only invalid input is an error.
func (s *ContributionService) Describe(ctx context.Context, c domain.Contribution) (domain.ContributionView, error) {
	if !c.State.Valid() {
		return domain.ContributionView{}, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, c.State)
	}
	if c.Position < 0 {
		return domain.ContributionView{}, fmt.Errorf("%w: position must not be negative", domain.ErrValidation)
	}

	view := domain.ContributionView{
		ID:           c.ID,
		Title:        s.title(ctx, c),
		Sequence:     c.Position + 1,
		ThumbnailURL: s.thumbnail(ctx, c),
	}

	switch c.State {
	case domain.StateQueued:
		view.StateLabel = "queued"
	case domain.StateInProgress:
		p := c.UploadProgress()
		view.ShowProgress = true
		view.Progress = &p
	case domain.StateFailed:
		view.StateLabel = "failed"
		view.ShowFailedOptions = true
	}
	return view, nil
}

// DescribeAll describes cs concurrently and returns the rows in input order.
func (s *ContributionService) DescribeAll(ctx context.Context, cs []domain.Contribution) ([]domain.ContributionView, error) {
	views := make([]domain.ContributionView, len(cs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, c := range cs {
		g.Go(func() error {
			v, err := s.Describe(gctx, c)
			if err != nil {
				return fmt.Errorf("contribution %d: %w", i, err)
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// title prefers the caption of a completed upload over its display title.
func (s *ContributionService) title(ctx context.Context, c domain.Contribution) string {
	mediaID := c.MediaID()
	if c.State != domain.StateCompleted || mediaID == "" {
		return c.DisplayTitle
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	caption, err := s.media.Caption(ctx, mediaID, captionLanguage)
	if err != nil {
		s.log.WarnContext(ctx, "caption lookup failed", "media_id", mediaID, "error", err)
		return c.DisplayTitle
	}
	caption = strings.TrimSpace(caption)
	if caption == "" || caption == noCaption {
		return c.DisplayTitle
	}
	return caption
}

// thumbnail resolves the row image: cached URL, then the local source of an
// unfinished upload, then the remote thumbnail (which is cached).
func (s *ContributionService) thumbnail(ctx context.Context, c domain.Contribution) string {
	if c.Filename == "" {
		return ""
	}
	if u, ok := s.thumbs.Get(c.Filename); ok {
		return u
	}
	if c.State != domain.StateCompleted && c.LocalURI != "" && s.cfg.FileExists(c.LocalURI) {
		return c.LocalURI
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	u, err := s.media.ThumbnailURL(ctx, c.Filename, wikibase.DefaultThumbnailWidth)
	if err != nil {
		s.log.WarnContext(ctx, "thumbnail lookup failed", "filename", c.Filename, "error", err)
		return ""
	}
	s.thumbs.Put(c.Filename, u)
	return u
}

func localFileExists(uri string) bool {
	_, err := os.Stat(strings.TrimPrefix(uri, "file://"))
	return err == nil
}
