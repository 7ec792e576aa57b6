package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
	"github.com/pkordes/commons-depicts/backend/internal/wikibase"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeError maps a service error onto an HTTP status. Unexpected errors are
// logged and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *wikibase.APIError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, r, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrConflict):
		writeErrorBody(w, r, http.StatusConflict, "conflict", unwrapMessage(err, domain.ErrConflict))
	case errors.As(err, &apiErr):
		s.log.WarnContext(r.Context(), "upstream API error", "path", r.URL.Path, "error", err)
		writeErrorBody(w, r, http.StatusBadGateway, "upstream_error", apiErr.Error())
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeRequestError answers a request rejected before reaching the service
// layer: oversized, malformed or failing struct validation.
func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &maxErr):
		writeErrorBody(w, r, http.StatusRequestEntityTooLarge, "body_too_large",
			fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	case errors.As(err, &verrs):
		writeErrorBody(w, r, http.StatusUnprocessableEntity, "validation_error", validationMessage(verrs))
	default:
		writeErrorBody(w, r, http.StatusBadRequest, "bad_request", err.Error())
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "validation error: name is required" → "name is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), rule))
	}
	return strings.Join(parts, "; ")
}
