package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/commons-depicts/backend/internal/middleware"
)

// decodeHandler decodes a depiction save body the way the API handlers do
// and reports MaxBytesError as 413.
var decodeHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func depictionBody(nameLen int) string {
	return `{"name":"` + strings.Repeat("x", nameLen) + `"}`
}

func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 64

	tests := []struct {
		name          string
		body          string
		contentLength int64 // -1 means unknown length
		want          int
	}{
		{"small body", depictionBody(10), 0, http.StatusOK},
		{"exactly at limit", depictionBody(limit - len(depictionBody(0))), 0, http.StatusOK},
		{"declared length over limit", depictionBody(200), 0, http.StatusRequestEntityTooLarge},
		{"streamed body over limit", depictionBody(200), -1, http.StatusRequestEntityTooLarge},
		{"streamed small body", depictionBody(10), -1, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(limit)(decodeHandler)

			req := httptest.NewRequest(http.MethodPut, "/depictions", strings.NewReader(tt.body))
			if tt.contentLength < 0 {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMaxBodySizeHandler_NoBody(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(8)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/depictions/recent", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
