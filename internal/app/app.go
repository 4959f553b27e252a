package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/config"
	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/store"
	"github.com/vovakirdan/pollchat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/pollchat/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	endRequests     context.CancelFunc
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	if cfg.JWTSecret == config.Default().JWTSecret {
		logger.Warn().Msg("jwt_secret is the default value; set POLLCHAT_JWT_SECRET in production")
	}

	hub := core.NewHub(core.Options{
		PollInterval:  cfg.PollInterval,
		CacheSize:     cfg.CacheSize,
		PresenceTTL:   cfg.PresenceTTL(),
		SweepInterval: cfg.SweepInterval(),
	}, logger)

	authService := auth.NewService(st, hub, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	}, logger)

	// Every request context derives from base, so cancelling it releases
	// held long-polls and streams at shutdown.
	base, endRequests := context.WithCancel(context.Background())
	server := transporthttp.NewServer(hub, authService, cfg, logger)
	server.BaseContext = func(net.Listener) context.Context { return base }

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		endRequests:     endRequests,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts the
// server down and closes the store.
func (a *App) Run(ctx context.Context) error {
	defer a.closeStore()
	defer a.endRequests()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	listenErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		err := a.server.ListenAndServe()
		if errors.Is(err, stdhttp.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	return a.shutdown(listenErr)
}

// shutdown releases held requests and drains the server within the
// configured timeout.
func (a *App) shutdown(listenErr <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Int("waiting", a.hub.Waiting()).Msg("shutting down http server")
	a.endRequests()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-listenErr
}

func (a *App) closeStore() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return
	}
	a.log.Info().Msg("store closed")
}
