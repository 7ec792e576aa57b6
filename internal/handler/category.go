package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// SearchCategoriesRequest is the body of POST /categories/search.
type SearchCategoriesRequest struct {
	Query    string   `json:"query"`
	Selected []string `json:"selected"`
	Titles   []string `json:"titles"`
}

// VerifyCategoriesRequest is the body of POST /categories/verify.
type VerifyCategoriesRequest struct {
	Items []domain.CategoryItem `json:"items"`
}

// SearchCategories handles POST /categories/search.
func (s *Server) SearchCategories(w http.ResponseWriter, r *http.Request) {
	var req SearchCategoriesRequest
	if err := s.decode(r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	items, err := s.categories.Search(r.Context(), req.Query, req.Selected, req.Titles)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, ListResponse[domain.CategoryItem]{Data: items})
}

// VerifyCategories handles POST /categories/verify. It answers 204 when at
// least one category is selected.
func (s *Server) VerifyCategories(w http.ResponseWriter, r *http.Request) {
	var req VerifyCategoriesRequest
	if err := s.decode(r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	if err := s.categories.Verify(req.Items); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
