package api

import (
	"github.com/rs/zerolog"

	"teamcal/internal/access"
	"teamcal/internal/auth"
	"teamcal/internal/config"
	"teamcal/internal/events"
	"teamcal/internal/storage"
)

type Handlers struct {
	cfg      *config.Config
	store    storage.Store
	resolver *access.Resolver
	events   *events.Service
	bearer   *auth.BearerAuth
	logger   zerolog.Logger
}

func NewHandlers(cfg *config.Config, store storage.Store, resolver *access.Resolver, svc *events.Service, bearer *auth.BearerAuth, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		events:   svc,
		bearer:   bearer,
		logger:   logger,
	}
}
