package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teamcal/internal/access"
	"teamcal/internal/api"
	"teamcal/internal/auth"
	"teamcal/internal/config"
	"teamcal/internal/domain"
	"teamcal/internal/events"
	"teamcal/internal/logging"
	"teamcal/internal/router"
	"teamcal/internal/storage"
	"teamcal/internal/storage/postgres"
	"teamcal/internal/storage/sqlite"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bearer := auth.NewBearerAuth(cfg, store, logger)
	resolver := access.NewResolver(store)
	svc := events.NewService(store, resolver)
	handlers := api.NewHandlers(cfg, store, resolver, svc, bearer, logger)
	mux := router.New(cfg, handlers, bearer, logger)

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	cleanup := func() {
		store.Close()
	}

	if err := ensureBootstrapAdmin(context.Background(), cfg, store, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	return srv, cleanup, nil
}

// ensureBootstrapAdmin creates the configured admin account on first start so
// a fresh deployment is reachable without the interactive register flow.
func ensureBootstrapAdmin(ctx context.Context, cfg *config.Config, store storage.Store, logger zerolog.Logger) error {
	if cfg.Bootstrap.AdminUsername == "" || cfg.Bootstrap.AdminPassword == "" {
		return nil
	}
	if _, err := store.GetUserByUsername(ctx, cfg.Bootstrap.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(cfg.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     cfg.Bootstrap.AdminUsername,
		DisplayName:  cfg.Bootstrap.AdminUsername,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleAdmin},
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return err
	}
	logger.Info().Str("username", u.Username).Msg("bootstrap admin created")
	return nil
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config, logger zerolog.Logger) (storage.Store, error) {
	storeLog := logging.Component(logger, "storage")
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresURL, storeLog)
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLitePath, storeLog)
	default:
		return nil, errors.New("unknown storage type: " + cfg.Storage.Type)
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
