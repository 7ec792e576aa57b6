// Package handler implements the HTTP handlers for the Commons depictions API.
// All handlers are methods on Server, mounted on a chi router by Routes.
// Methods are split into resource-specific files (health.go, depiction.go, etc.)
// but all share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// DepictServicer defines the depiction operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the store or the remote API.
type DepictServicer interface {
	Save(ctx context.Context, d domain.Depiction) (domain.Depiction, error)
	Find(ctx context.Context, name string) (domain.Depiction, error)
	Recent(ctx context.Context, limit int) ([]string, error)
	Delete(ctx context.Context, name string) error
	Use(ctx context.Context, name string) (domain.Depiction, error)
	Suggest(ctx context.Context, query string, limit int) ([]domain.Suggestion, error)
	TagFile(ctx context.Context, fileName, token string, entities []domain.Entity) error
	DepictedMedia(ctx context.Context, entityID string, page domain.PaginationParams) ([]domain.Media, error)
}

// CategoryServicer defines the category operations the handlers depend on.
type CategoryServicer interface {
	Search(ctx context.Context, query string, selected, imageTitles []string) ([]domain.CategoryItem, error)
	Verify(selected []domain.CategoryItem) error
}

// ContributionServicer defines the contribution operations the handlers depend on.
type ContributionServicer interface {
	DescribeAll(ctx context.Context, cs []domain.Contribution) ([]domain.ContributionView, error)
}

// Server serves every API endpoint. Methods are in resource-specific files
// but all operate on this struct.
type Server struct {
	depicts       DepictServicer
	categories    CategoryServicer
	contributions ContributionServicer
	log           *slog.Logger
	validate      *validator.Validate
}

// NewServer constructs the Server with all its dependencies.
// A nil logger uses slog.Default().
func NewServer(depicts DepictServicer, categories CategoryServicer, contributions ContributionServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		depicts:       depicts,
		categories:    categories,
		contributions: contributions,
		log:           log,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes returns a router with every endpoint registered. main.go mounts it
// beneath the global middleware stack.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/depictions", func(r chi.Router) {
		r.Put("/", s.SaveDepiction)
		r.Get("/recent", s.RecentDepictions)
		r.Get("/suggest", s.SuggestDepictions)
		r.Get("/{name}", s.GetDepiction)
		r.Delete("/{name}", s.DeleteDepiction)
		r.Post("/{name}/use", s.UseDepiction)
	})

	r.Get("/entities/{entityId}/media", s.ListDepictedMedia)
	r.Post("/files/{fileName}/depictions", s.TagFile)

	r.Post("/categories/search", s.SearchCategories)
	r.Post("/categories/verify", s.VerifyCategories)

	r.Post("/contributions/describe", s.DescribeContributions)

	return r
}
