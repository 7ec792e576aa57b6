// Package service contains the business logic for the Commons depictions backend.
// Services validate inputs, enforce business rules, and orchestrate repo and
// remote calls. No SQL or HTTP lives here: services depend on interfaces, not
// implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/repo"
	"github.com/pkordes/commons-depicts/backend/internal/wikibase"
)

const (
	// DefaultSuggestLimit is used when Suggest is called without a limit.
	DefaultSuggestLimit = 25
	// MaxSuggestLimit caps the number of suggestions returned.
	MaxSuggestLimit = 100

	captionLanguage = "en"
	captionWorkers  = 8
)

// EntitySearcher finds Wikidata items by label.
type EntitySearcher interface {
	SearchEntities(ctx context.Context, query string, limit int) ([]domain.Entity, error)
}

// DepictsEditor writes depicts statements to Commons files.
type DepictsEditor interface {
	FileEntityID(ctx context.Context, fileName string) (string, error)
	EditEntity(ctx context.Context, token, entityID string, data []byte) error
}

// DepictsRemote is everything DepictService needs from the Wikibase API.
// *wikibase.Client satisfies it.
type DepictsRemote interface {
	EntitySearcher
	DepictsEditor
	DepictedMedia(ctx context.Context, entityID string, offset, limit int) ([]domain.Media, error)
	Caption(ctx context.Context, mediaID, lang string) (string, error)
}

// DepictService owns the depiction picker: the local recency store merged
// with remote Wikidata search, and tagging files with the chosen items.
type DepictService struct {
	depicts repo.DepictRepo
	remote  DepictsRemote
	now     func() time.Time
	log     *slog.Logger
}

// NewDepictService constructs a DepictService. A nil now uses time.Now.
func NewDepictService(depicts repo.DepictRepo, remote DepictsRemote, now func() time.Time) *DepictService {
	if now == nil {
		now = time.Now
	}
	return &DepictService{depicts: depicts, remote: remote, now: now, log: slog.Default()}
}

// WithLogger sets the logger used for degraded remote lookups.
func (s *DepictService) WithLogger(log *slog.Logger) *DepictService {
	if log != nil {
		s.log = log
	}
	return s
}

// Save validates and persists d, returning the stored row.
func (s *DepictService) Save(ctx context.Context, d domain.Depiction) (domain.Depiction, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return domain.Depiction{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if d.TimesUsed < 0 {
		return domain.Depiction{}, fmt.Errorf("%w: times_used must not be negative", domain.ErrValidation)
	}
	return s.depicts.Save(ctx, d)
}

// Find returns the depiction with the given name, or domain.ErrNotFound.
func (s *DepictService) Find(ctx context.Context, name string) (domain.Depiction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Depiction{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	d, found, err := s.depicts.Find(ctx, name)
	if err != nil {
		return domain.Depiction{}, err
	}
	if !found {
		return domain.Depiction{}, fmt.Errorf("depiction %q: %w", name, domain.ErrNotFound)
	}
	return d, nil
}

// Recent returns up to limit depiction names, most recently used first.
func (s *DepictService) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
	}
	return s.depicts.Recent(ctx, limit)
}

// Delete forgets a depiction.
func (s *DepictService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return s.depicts.Delete(ctx, name)
}

// Use records one use of name now, creating the depiction on first use.
// The increment happens inside the store, so concurrent uses are all counted.
func (s *DepictService) Use(ctx context.Context, name string) (domain.Depiction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Depiction{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return s.depicts.Touch(ctx, name, s.now().UTC().Truncate(time.Millisecond))
}

// Suggest merges recently used names matching query with remote Wikidata
// search results. Recent names come first in recency order; remote items
// whose label is already listed enrich that row instead of repeating it.
// A blank query lists recent names only.
func (s *DepictService) Suggest(ctx context.Context, query string, limit int) ([]domain.Suggestion, error) {
	switch {
	case limit <= 0:
		limit = DefaultSuggestLimit
	case limit > MaxSuggestLimit:
		limit = MaxSuggestLimit
	}
	query = strings.TrimSpace(query)
	needle := strings.ToLower(query)

	recent, err := s.depicts.Recent(ctx, MaxSuggestLimit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, 0, limit)
	index := make(map[string]int, len(recent))
	for _, name := range recent {
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		index[strings.ToLower(name)] = len(out)
		out = append(out, domain.Suggestion{Name: name, Recent: true})
	}

	if query != "" {
		entities, err := s.remote.SearchEntities(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("service.DepictService.Suggest: %w", err)
		}
		for _, e := range entities {
			key := strings.ToLower(e.Label)
			if i, ok := index[key]; ok {
				if out[i].EntityID == "" {
					out[i].EntityID = e.ID
					out[i].Description = e.Description
				}
				continue
			}
			index[key] = len(out)
			out = append(out, domain.Suggestion{Name: e.Label, EntityID: e.ID, Description: e.Description})
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TagFile adds a depicts statement for each entity to the Commons file and
// records one use of each entity's label.
func (s *DepictService) TagFile(ctx context.Context, fileName, token string, entities []domain.Entity) error {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	if token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrValidation)
	}

	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	claims, err := wikibase.DepictsClaims(ids)
	if err != nil {
		return err
	}

	mediaID, err := s.remote.FileEntityID(ctx, fileName)
	if err != nil {
		return fmt.Errorf("service.DepictService.TagFile: %w", err)
	}
	if err := s.remote.EditEntity(ctx, token, mediaID, claims); err != nil {
		return fmt.Errorf("service.DepictService.TagFile: %w", err)
	}

	for _, e := range entities {
		name := e.Label
		if strings.TrimSpace(name) == "" {
			name = e.ID
		}
		if _, err := s.Use(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// DepictedMedia lists one page of Commons files depicting entityID. Each
// item's DisplayTitle is its caption when one exists, else its file title.
// A failed caption lookup is logged and leaves that item on its file title.
func (s *DepictService) DepictedMedia(ctx context.Context, entityID string, page domain.PaginationParams) ([]domain.Media, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity id is required", domain.ErrValidation)
	}

	media, err := s.remote.DepictedMedia(ctx, entityID, page.Offset(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("service.DepictService.DepictedMedia: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(captionWorkers)
	for i := range media {
		media[i].DisplayTitle = media[i].Title
		if media[i].PageID <= 0 {
			continue
		}
		g.Go(func() error {
			mediaID := domain.MediaID(media[i].PageID)
			caption, err := s.remote.Caption(ctx, mediaID, captionLanguage)
			if err != nil {
				s.log.WarnContext(ctx, "caption lookup failed", "media_id", mediaID, "error", err)
				return nil
			}
			media[i].SetCaption(caption)
			return nil
		})
	}
	_ = g.Wait()
	return media, nil
}
