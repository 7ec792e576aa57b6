package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

const defaultRecentLimit = 20

// SaveDepictionRequest is the body of PUT /depictions.
type SaveDepictionRequest struct {
	ID        int64     `json:"id" validate:"gte=0"`
	Name      string    `json:"name" validate:"required"`
	LastUsed  time.Time `json:"last_used"`
	TimesUsed int       `json:"times_used" validate:"gte=0"`
}

// SaveDepiction handles PUT /depictions.
// A request without id records the name (merging with any existing row);
// a request with id updates that row.
func (s *Server) SaveDepiction(w http.ResponseWriter, r *http.Request) {
	var req SaveDepictionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	d, err := s.depicts.Save(r.Context(), domain.Depiction{
		ID:        req.ID,
		Name:      req.Name,
		LastUsed:  req.LastUsed,
		TimesUsed: req.TimesUsed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

// GetDepiction handles GET /depictions/{name}.
func (s *Server) GetDepiction(w http.ResponseWriter, r *http.Request) {
	d, err := s.depicts.Find(r.Context(), pathParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

// DeleteDepiction handles DELETE /depictions/{name}.
func (s *Server) DeleteDepiction(w http.ResponseWriter, r *http.Request) {
	if err := s.depicts.Delete(r.Context(), pathParam(r, "name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UseDepiction handles POST /depictions/{name}/use.
func (s *Server) UseDepiction(w http.ResponseWriter, r *http.Request) {
	d, err := s.depicts.Use(r.Context(), pathParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

// RecentDepictions handles GET /depictions/recent?limit=.
func (s *Server) RecentDepictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	names, err := s.depicts.Recent(r.Context(), derefInt(limit, defaultRecentLimit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	render.JSON(w, r, ListResponse[string]{Data: names})
}

// SuggestDepictions handles GET /depictions/suggest?q=&limit=.
func (s *Server) SuggestDepictions(w http.ResponseWriter, r *http.Request) {
	q, err := queryString(r, "q")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	suggestions, err := s.depicts.Suggest(r.Context(), q, derefInt(limit, 0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	render.JSON(w, r, ListResponse[domain.Suggestion]{Data: suggestions})
}
