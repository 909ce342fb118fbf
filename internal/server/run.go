package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-boarding/internal/config"
	"github.com/goliatone/go-boarding/internal/storage"
	"github.com/goliatone/go-boarding/pkg/appstate"
	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/graphql"
	"github.com/goliatone/go-boarding/pkg/i18n"
	"github.com/goliatone/go-boarding/pkg/renderers/html"
	"github.com/goliatone/go-boarding/pkg/service"
	"github.com/goliatone/go-boarding/pkg/theme"
	"github.com/goliatone/go-boarding/pkg/upload"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap builds the server and its collaborators from cfg. The returned
// close function releases the file store and the theme hub.
func Bootstrap(cfg config.Config, logger *zap.Logger) (*Server, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var appOptions []appstate.Option
	if cfg.JWTKey != "" {
		appOptions = append(appOptions, appstate.WithVerifyKey([]byte(cfg.JWTKey)))
	}
	app := appstate.New(appOptions...)
	if cfg.Token != "" {
		if err := app.SignIn(cfg.Token); err != nil {
			return nil, nil, fmt.Errorf("server: sign in: %w", err)
		}
	}

	client, err := graphql.NewClient(cfg.GraphQLEndpoint,
		graphql.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		graphql.WithTokenSource(app),
		graphql.WithLogger(logger.Named("graphql")),
	)
	if err != nil {
		return nil, nil, err
	}
	directory, err := service.NewDefaultDirectory(client)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := theme.NewCatalog(cfg.BasePath, cfg.Themes...)
	if err != nil {
		return nil, nil, err
	}
	if !catalog.Has(cfg.DefaultTheme) {
		return nil, nil, fmt.Errorf("server: default theme %q is not in the catalog", cfg.DefaultTheme)
	}
	head := theme.NewHead()
	var applier *theme.Applier
	hub := theme.NewHub(func() (theme.Link, bool) { return applier.Current() }, logger.Named("theme"))
	applier, err = theme.NewApplier(catalog, head, app, theme.WithBroadcaster(hub), theme.WithLogger(logger.Named("theme")))
	if err != nil {
		return nil, nil, err
	}
	if err := applier.ApplyTheme(context.Background(), cfg.DefaultTheme); err != nil {
		return nil, nil, err
	}

	settingsOptions := []service.SettingsOption{service.WithSettingsLogger(logger.Named("settings"))}
	if cfg.SignOutOnSettingsFailure {
		settingsOptions = append(settingsOptions, service.WithPolicy(service.SignOutPolicy(app)))
	}
	settings, err := service.NewSettings(client, applier, settingsOptions...)
	if err != nil {
		return nil, nil, err
	}

	files, err := storage.Open(cfg.Uploads.Database, cfg.Uploads.Dir, cfg.BasePath+cfg.Uploads.PublicPath)
	if err != nil {
		return nil, nil, err
	}
	uploads, err := upload.NewManager(files, upload.WithLogger(logger.Named("upload")))
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}

	renderer, err := html.New(
		html.WithAssetsPath(cfg.BasePath+"/assets"),
		html.WithCreatable(entities.Booking, entities.Pet),
	)
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}
	messages, err := i18n.New(cfg.Locale)
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}

	srv, err := New(Options{BasePath: cfg.BasePath, Locale: cfg.Locale}, Deps{
		Entities:  entities.NewRegistry(catalog.IDs()...),
		Directory: directory,
		Settings:  settings,
		Themes:    applier,
		Head:      head,
		Hub:       hub,
		Uploads:   uploads,
		Files:     files,
		Renderer:  renderer,
		Messages:  messages,
		App:       app,
		Logger:    logger,
	})
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		hub.Close()
		uploads.Wait()
		return files.Close()
	}
	return srv, closeFn, nil
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	tokenSource func() (string, error)
}

// WithTokenReload re-reads the session token from source on SIGHUP and
// reauthenticates the server with it.
func WithTokenReload(source func() (string, error)) RunOption {
	return func(rc *runConfig) {
		rc.tokenSource = source
	}
}

// Run serves the admin on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger, options ...RunOption) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := runConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&rc)
		}
	}
	srv, closeFn, err := Bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("close server resources", zap.Error(err))
		}
	}()

	srv.ApplyInitialTheme(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("boarding admin listening", zap.String("addr", cfg.Addr), zap.String("base_path", cfg.BasePath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})
	if rc.tokenSource != nil {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		g.Go(func() error {
			watchTokenReload(gctx, srv, hup, rc.tokenSource, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		// Open websocket feeds are hijacked, so Shutdown does not wait on them.
		srv.Hub.Close()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// watchTokenReload reauthenticates srv each time reload fires.
func watchTokenReload(ctx context.Context, srv *Server, reload <-chan os.Signal, source func() (string, error), logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			token, err := source()
			if err != nil {
				logger.Warn("reload token", zap.Error(err))
				continue
			}
			if err := srv.Reauthenticate(ctx, token); err != nil {
				logger.Warn("reauthenticate", zap.Error(err))
			}
		}
	}
}
