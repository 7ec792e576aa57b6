package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

const categorySearchLimit = 25

// yearPattern matches four-digit years 1900-2099 inside a category name.
var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// CategorySearcher finds Commons categories by free text.
type CategorySearcher interface {
	SearchCategories(ctx context.Context, query string, limit int) ([]string, error)
}

// CategoryService suggests categories for an upload.
type CategoryService struct {
	searcher CategorySearcher
	now      func() time.Time
}

// NewCategoryService constructs a CategoryService. A nil now uses time.Now.
func NewCategoryService(searcher CategorySearcher, now func() time.Time) *CategoryService {
	if now == nil {
		now = time.Now
	}
	return &CategoryService{searcher: searcher, now: now}
}

// Search returns the selected categories followed by remote matches for
// query and for each image title. With a blank query it also searches the
// default terms derived from the titles (see defaultTerms). Categories naming a year other than the
// current or previous one are dropped, duplicates removed, and the remote
// matches ranked by similarity to query.
//
// Returns domain.ErrNotFound when nothing is left to offer.
func (s *CategoryService) Search(ctx context.Context, query string, selected, imageTitles []string) ([]domain.CategoryItem, error) {
	query = strings.TrimSpace(query)

	items := make([]domain.CategoryItem, 0, len(selected))
	seen := make(map[string]bool)
	for _, name := range selected {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, domain.CategoryItem{Name: name, Selected: true})
	}

	terms := make([]string, 0, len(imageTitles)+1)
	if query != "" {
		terms = append(terms, query)
	}
	for _, title := range imageTitles {
		if title = strings.TrimSpace(title); title != "" {
			terms = append(terms, title)
		}
	}
	if query == "" {
		terms = append(terms, defaultTerms(imageTitles)...)
	}

	var found []string
	for _, term := range terms {
		names, err := s.searcher.SearchCategories(ctx, term, categorySearchLimit)
		if err != nil {
			return nil, fmt.Errorf("service.CategoryService.Search: %w", err)
		}
		for _, name := range names {
			if name == "" || seen[name] || s.hasStaleYear(name) {
				continue
			}
			seen[name] = true
			found = append(found, name)
		}
	}

	for _, name := range rankBySimilarity(query, found) {
		items = append(items, domain.CategoryItem{Name: name})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no categories found: %w", domain.ErrNotFound)
	}
	return items, nil
}

// defaultTerms derives plain search phrases from upload titles: the "File:"
// prefix, extension, digits and separators are dropped, so
// "File:Red_cat-2019 (3).jpg" becomes "Red cat". Phrases equal to the raw
// title or already listed are skipped.
func defaultTerms(imageTitles []string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, title := range imageTitles {
		title = strings.TrimSpace(title)
		seen[title] = true
	}
	for _, title := range imageTitles {
		term := titlePhrase(strings.TrimSpace(title))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

var titleNoise = regexp.MustCompile(`[\d_\-()\[\].,]+`)

func titlePhrase(title string) string {
	title = strings.TrimPrefix(title, "File:")
	if ext := path.Ext(title); ext != "" && len(ext) <= 5 {
		title = strings.TrimSuffix(title, ext)
	}
	return strings.Join(strings.Fields(titleNoise.ReplaceAllString(title, " ")), " ")
}

// Verify checks that the uploader picked at least one category.
func (s *CategoryService) Verify(selected []domain.CategoryItem) error {
	for _, item := range selected {
		if item.Selected && strings.TrimSpace(item.Name) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no category selected", domain.ErrValidation)
}

// hasStaleYear reports whether name mentions a year other than the current
// or the previous one.
func (s *CategoryService) hasStaleYear(name string) bool {
	year := s.now().Year()
	for _, m := range yearPattern.FindAllString(name, -1) {
		y, _ := strconv.Atoi(m)
		if y != year && y != year-1 {
			return true
		}
	}
	return false
}

// rankBySimilarity orders names by fuzzy match score against query, best
// first. Equal scores keep their input order; names that do not match at all
// follow in input order. A blank query leaves names as they are.
func rankBySimilarity(query string, names []string) []string {
	if query == "" || len(names) == 0 {
		return names
	}

	matches := fuzzy.Find(query, names)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})

	out := make([]string, 0, len(names))
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.Index] = true
		out = append(out, m.Str)
	}
	for i, name := range names {
		if !matched[i] {
			out = append(out, name)
		}
	}
	return out
}
