// Package domain contains the core data types for the Commons depictions backend.
// Apart from uuid it has no external dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"strings"
	"time"
)

// Depiction is a named tag (usually a Wikidata item label) that a user has
// attached to an upload. LastUsed and TimesUsed rank it in suggestions.
//
// Name is the natural key: at most one stored Depiction has a given name.
// ID is assigned by the store on first save and is zero until then.
type Depiction struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LastUsed  time.Time `json:"last_used"`
	TimesUsed int       `json:"times_used"`
}

// IsNew reports whether d has not been persisted yet.
func (d Depiction) IsNew() bool {
	return d.ID == 0
}

// Entity is a Wikidata item returned by a remote depiction search.
type Entity struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Suggestion is one row of the merged depiction picker: names the user has
// used before come first (Recent=true), remote search matches after them.
type Suggestion struct {
	Name        string `json:"name"`
	EntityID    string `json:"entity_id,omitempty"`
	Description string `json:"description,omitempty"`
	Recent      bool   `json:"recent"`
}

// Media is a Commons file that depicts some entity.
// Caption is empty when the file has no caption in the requested language;
// DisplayTitle is what a list row shows.
type Media struct {
	PageID       int64  `json:"page_id"`
	Title        string `json:"title"`
	Caption      string `json:"caption,omitempty"`
	DisplayTitle string `json:"display_title"`
}

// SetCaption records caption and makes it the display title. A blank
// caption leaves the file title on display.
func (m *Media) SetCaption(caption string) {
	m.Caption = strings.TrimSpace(caption)
	m.DisplayTitle = m.Title
	if m.Caption != "" {
		m.DisplayTitle = m.Caption
	}
}
