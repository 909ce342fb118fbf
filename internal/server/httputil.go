package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/internal/storage"
	"github.com/goliatone/go-boarding/pkg/appstate"
	"github.com/goliatone/go-boarding/pkg/graphql"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write json", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// statusFor maps backend and storage errors to an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, graphql.ErrUnauthenticated), errors.Is(err, appstate.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, graphql.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	}
}
