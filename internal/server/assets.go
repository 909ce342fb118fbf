package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/pkg/schemaexport"
	"github.com/goliatone/go-boarding/pkg/theme"
)

// stylesheet serves the generated CSS of one theme.
func (s *Server) stylesheet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "file"), ".css")
	css, err := s.Themes.Catalog().Stylesheet(id)
	if err != nil {
		if errors.Is(err, theme.ErrUnknownTheme) {
			s.writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown theme "+id)
			return
		}
		s.logger.Error("render stylesheet", zap.String("theme", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "could not render stylesheet")
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(css)
}

// openAPI publishes the input schemas of every entity.
func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := schemaexport.Document(s.opts.Title, "1.0.0", s.Entities.Schemas())
	if err != nil {
		s.logger.Error("export schemas", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "could not export schemas")
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// ApplyInitialTheme fetches settings and applies their theme once. With the
// sign-out policy a failure ends the session until Reauthenticate installs a
// new token; the server keeps running either way.
func (s *Server) ApplyInitialTheme(ctx context.Context) {
	if _, err := s.Settings.FetchAndApply(ctx); err != nil {
		s.logger.Warn("initial settings fetch", zap.Error(err))
	}
}

// Reauthenticate installs token as the session and retries the settings
// fetch. It is the way back after the sign-out policy ended the session.
func (s *Server) Reauthenticate(ctx context.Context, token string) error {
	if s.App == nil {
		return errors.New("server: no application context")
	}
	if err := s.App.SignIn(token); err != nil {
		return fmt.Errorf("server: sign in: %w", err)
	}
	s.logger.Info("session restored", zap.String("subject", s.App.Snapshot().Subject))
	s.ApplyInitialTheme(ctx)
	return nil
}
