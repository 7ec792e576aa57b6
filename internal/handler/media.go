package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// EntityRef names a Wikidata item in a tagging request.
type EntityRef struct {
	ID    string `json:"id" validate:"required,startswith=Q"`
	Label string `json:"label"`
}

// TagFileRequest is the body of POST /files/{fileName}/depictions.
// Token is a CSRF token for the Commons session; it is forwarded as is.
type TagFileRequest struct {
	Token    string      `json:"token" validate:"required"`
	Entities []EntityRef `json:"entities" validate:"required,min=1,dive"`
}

// ListDepictedMedia handles GET /entities/{entityId}/media?page=&limit=.
func (s *Server) ListDepictedMedia(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	media, err := s.depicts.DepictedMedia(r.Context(), pathParam(r, "entityId"), domain.NewPaginationParams(page, limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if media == nil {
		media = []domain.Media{}
	}
	render.JSON(w, r, ListResponse[domain.Media]{Data: media})
}

// TagFile handles POST /files/{fileName}/depictions.
func (s *Server) TagFile(w http.ResponseWriter, r *http.Request) {
	var req TagFileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	entities := make([]domain.Entity, len(req.Entities))
	for i, e := range req.Entities {
		entities[i] = domain.Entity{ID: e.ID, Label: e.Label}
	}
	if err := s.depicts.TagFile(r.Context(), pathParam(r, "fileName"), req.Token, entities); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
