package handler

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// ContributionPayload is one upload as reported by the client.
type ContributionPayload struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	Filename     string    `json:"filename"`
	DisplayTitle string    `json:"display_title"`
	PageID       int64     `json:"page_id" validate:"gte=0"`
	LocalURI     string    `json:"local_uri"`
	State        string    `json:"state" validate:"required,oneof=queued in_progress completed failed"`
	Transferred  int64     `json:"transferred" validate:"gte=0"`
	DataLength   int64     `json:"data_length" validate:"gte=0"`
	Position     int       `json:"position" validate:"gte=0"`
}

// DescribeContributionsRequest is the body of POST /contributions/describe.
type DescribeContributionsRequest struct {
	Contributions []ContributionPayload `json:"contributions" validate:"max=500,dive"`
}

// DescribeContributions handles POST /contributions/describe.
func (s *Server) DescribeContributions(w http.ResponseWriter, r *http.Request) {
	var req DescribeContributionsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	cs := make([]domain.Contribution, len(req.Contributions))
	for i, p := range req.Contributions {
		cs[i] = domain.Contribution{
			ID:           p.ID,
			Filename:     p.Filename,
			DisplayTitle: p.DisplayTitle,
			PageID:       p.PageID,
			LocalURI:     p.LocalURI,
			State:        domain.ContributionState(p.State),
			Transferred:  p.Transferred,
			DataLength:   p.DataLength,
			Position:     p.Position,
		}
	}

	views, err := s.contributions.DescribeAll(r.Context(), cs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if views == nil {
		views = []domain.ContributionView{}
	}
	render.JSON(w, r, ListResponse[domain.ContributionView]{Data: views})
}
