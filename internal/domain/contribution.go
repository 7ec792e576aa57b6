package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// ContributionState is the upload lifecycle state of a contribution.
type ContributionState string

const (
	StateQueued     ContributionState = "queued"
	StateInProgress ContributionState = "in_progress"
	StateCompleted  ContributionState = "completed"
	StateFailed     ContributionState = "failed"
)

// Valid reports whether s is one of the known states.
func (s ContributionState) Valid() bool {
	switch s {
	case StateQueued, StateInProgress, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Contribution is a single upload as tracked by the client.
// PageID is only meaningful once the upload has completed.
type Contribution struct {
	ID           uuid.UUID         `json:"id"`
	Filename     string            `json:"filename"`
	DisplayTitle string            `json:"display_title"`
	PageID       int64             `json:"page_id,omitempty"`
	LocalURI     string            `json:"local_uri,omitempty"`
	State        ContributionState `json:"state"`
	Transferred  int64             `json:"transferred"`
	DataLength   int64             `json:"data_length"`
	Position     int               `json:"position"`
}

// MediaID returns the Wikibase media identifier of the uploaded file,
// e.g. page 80618155 becomes "M80618155". Empty when PageID is unset.
func (c Contribution) MediaID() string {
	return MediaID(c.PageID)
}

// MediaID returns the Wikibase media identifier for a Commons page ID,
// or "" for a non-positive ID.
func MediaID(pageID int64) string {
	if pageID <= 0 {
		return ""
	}
	return "M" + strconv.FormatInt(pageID, 10)
}

// Progress describes the upload progress bar.
type Progress struct {
	Indeterminate bool `json:"indeterminate"`
	Percent       int  `json:"percent"`
}

// UploadProgress computes the progress of an in-progress upload.
// Nothing transferred yet, or everything transferred but not yet
// acknowledged, shows as indeterminate.
func (c Contribution) UploadProgress() Progress {
	if c.Transferred <= 0 || c.Transferred >= c.DataLength {
		return Progress{Indeterminate: true}
	}
	return Progress{Percent: int(c.Transferred * 100 / c.DataLength)}
}

// ContributionView is what a contribution list row renders.
type ContributionView struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Sequence          int       `json:"sequence"`
	StateLabel        string    `json:"state_label,omitempty"`
	ThumbnailURL      string    `json:"thumbnail_url,omitempty"`
	ShowProgress      bool      `json:"show_progress"`
	Progress          *Progress `json:"progress,omitempty"`
	ShowFailedOptions bool      `json:"show_failed_options"`
}
