package wikibase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// DepictsProperty is the Wikidata property "depicts".
const DepictsProperty = "P180"

// SearchEntities searches Wikidata items whose label or alias matches query.
func (c *Client) SearchEntities(ctx context.Context, query string, limit int) ([]domain.Entity, error) {
	params := url.Values{
		"action":   {"wbsearchentities"},
		"type":     {"item"},
		"language": {"en"},
		"uselang":  {"en"},
		"search":   {query},
		"limit":    {strconv.Itoa(limit)},
	}
	res, err := c.get(ctx, c.wikidataURL, params)
	if err != nil {
		return nil, fmt.Errorf("wikibase.SearchEntities: %w", err)
	}

	entities := []domain.Entity{}
	res.Get("search").ForEach(func(_, v gjson.Result) bool {
		entities = append(entities, domain.Entity{
			ID:          v.Get("id").String(),
			Label:       v.Get("label").String(),
			Description: v.Get("description").String(),
		})
		return true
	})
	return entities, nil
}

// FileEntityID returns the Wikibase media ID ("M" + page id) of a Commons file.
// Returns domain.ErrNotFound if the file does not exist.
func (c *Client) FileEntityID(ctx context.Context, fileName string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"info"},
		"titles":        {fileTitle(fileName)},
		"formatversion": {"2"},
	}
	res, err := c.get(ctx, c.commonsURL, params)
	if err != nil {
		return "", fmt.Errorf("wikibase.FileEntityID: %w", err)
	}

	page := res.Get("query.pages.0")
	pageID := page.Get("pageid").Int()
	if !page.Exists() || page.Get("missing").Bool() || pageID <= 0 {
		return "", fmt.Errorf("wikibase.FileEntityID: %s: %w", fileName, domain.ErrNotFound)
	}
	return domain.MediaID(pageID), nil
}

// EditEntity posts a wbeditentity change for entityID. data is the JSON
// entity fragment, e.g. the output of DepictsClaims. token is a CSRF token
// obtained by the caller; the client does not authenticate.
func (c *Client) EditEntity(ctx context.Context, token, entityID string, data []byte) error {
	form := url.Values{
		"action": {"wbeditentity"},
		"token":  {token},
		"id":     {entityID},
		"data":   {string(data)},
	}
	res, err := c.postForm(ctx, c.commonsURL, form)
	if err != nil {
		return fmt.Errorf("wikibase.EditEntity: %w", err)
	}
	if res.Get("success").Int() != 1 {
		return fmt.Errorf("wikibase.EditEntity: %s: edit not acknowledged", entityID)
	}
	return nil
}

// DepictsClaims builds the wbeditentity data adding one "depicts" statement
// per Wikidata item ID.
func DepictsClaims(entityIDs []string) ([]byte, error) {
	if len(entityIDs) == 0 {
		return nil, fmt.Errorf("wikibase.DepictsClaims: %w: at least one entity is required", domain.ErrValidation)
	}

	data := []byte(`{"claims":[]}`)
	for _, id := range entityIDs {
		if !isItemID(id) {
			return nil, fmt.Errorf("wikibase.DepictsClaims: %w: %q is not a Wikidata item id", domain.ErrValidation, id)
		}
		claim := map[string]any{
			"mainsnak": map[string]any{
				"snaktype": "value",
				"property": DepictsProperty,
				"datavalue": map[string]any{
					"type": "wikibase-entityid",
					"value": map[string]any{
						"entity-type": "item",
						"id":          id,
					},
				},
			},
			"type": "statement",
			"rank": "preferred",
		}
		var err error
		if data, err = sjson.SetBytes(data, "claims.-1", claim); err != nil {
			return nil, fmt.Errorf("wikibase.DepictsClaims: %w", err)
		}
	}
	return data, nil
}

// DepictedMedia lists Commons files that carry a "depicts" statement for
// entityID. Captions are not filled in.
func (c *Client) DepictedMedia(ctx context.Context, entityID string, offset, limit int) ([]domain.Media, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srnamespace":   {"6"},
		"srsearch":      {"haswbstatement:" + DepictsProperty + "=" + entityID},
		"sroffset":      {strconv.Itoa(offset)},
		"srlimit":       {strconv.Itoa(limit)},
		"formatversion": {"2"},
	}
	res, err := c.get(ctx, c.commonsURL, params)
	if err != nil {
		return nil, fmt.Errorf("wikibase.DepictedMedia: %w", err)
	}

	media := []domain.Media{}
	res.Get("query.search").ForEach(func(_, v gjson.Result) bool {
		media = append(media, domain.Media{
			PageID: v.Get("pageid").Int(),
			Title:  v.Get("title").String(),
		})
		return true
	})
	return media, nil
}

func isItemID(id string) bool {
	if len(id) < 2 || id[0] != 'Q' {
		return false
	}
	return strings.Trim(id[1:], "0123456789") == ""
}
