package wikibase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// DefaultThumbnailWidth is the pixel width requested for list thumbnails.
const DefaultThumbnailWidth = 640

// Caption returns the caption (the media entity's label) of a file in lang.
// A file without a caption in that language yields "" and no error.
func (c *Client) Caption(ctx context.Context, mediaID, lang string) (string, error) {
	params := url.Values{
		"action":    {"wbgetentities"},
		"ids":       {mediaID},
		"props":     {"labels"},
		"languages": {lang},
	}
	res, err := c.get(ctx, c.commonsURL, params)
	if err != nil {
		return "", fmt.Errorf("wikibase.Caption: %w", err)
	}
	path := "entities." + gjson.Escape(mediaID) + ".labels." + gjson.Escape(lang) + ".value"
	return res.Get(path).String(), nil
}

// ThumbnailURL returns a scaled thumbnail URL for a Commons file, falling back
// to the original file URL when the API does not scale it.
// Returns domain.ErrNotFound if the file does not exist.
func (c *Client) ThumbnailURL(ctx context.Context, fileName string, width int) (string, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	params := url.Values{
		"action":        {"query"},
		"prop":          {"imageinfo"},
		"iiprop":        {"url"},
		"iiurlwidth":    {strconv.Itoa(width)},
		"titles":        {fileTitle(fileName)},
		"formatversion": {"2"},
	}
	res, err := c.get(ctx, c.commonsURL, params)
	if err != nil {
		return "", fmt.Errorf("wikibase.ThumbnailURL: %w", err)
	}

	page := res.Get("query.pages.0")
	if !page.Exists() || page.Get("missing").Bool() {
		return "", fmt.Errorf("wikibase.ThumbnailURL: %s: %w", fileName, domain.ErrNotFound)
	}
	info := page.Get("imageinfo.0")
	if thumb := info.Get("thumburl").String(); thumb != "" {
		return thumb, nil
	}
	return info.Get("url").String(), nil
}

// SearchCategories returns names (without the "Category:" prefix) of
// categories matching query.
func (c *Client) SearchCategories(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srnamespace":   {"14"},
		"srsearch":      {query},
		"srlimit":       {strconv.Itoa(limit)},
		"formatversion": {"2"},
	}
	res, err := c.get(ctx, c.commonsURL, params)
	if err != nil {
		return nil, fmt.Errorf("wikibase.SearchCategories: %w", err)
	}

	names := []string{}
	for _, title := range res.Get("query.search.#.title").Array() {
		names = append(names, strings.TrimPrefix(title.String(), "Category:"))
	}
	return names, nil
}
