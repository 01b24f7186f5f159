package router

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"teamcal/internal/api"
	"teamcal/internal/auth"
	"teamcal/internal/config"
	"teamcal/internal/domain"
)

type Router struct {
	config   *config.Config
	handlers *api.Handlers
	bearer   *auth.BearerAuth
	logger   zerolog.Logger
}

func New(cfg *config.Config, h *api.Handlers, bearer *auth.BearerAuth, logger zerolog.Logger) http.Handler {
	r := &Router{
		config:   cfg,
		handlers: h,
		bearer:   bearer,
		logger:   logger,
	}
	return r.setupRoutes()
}

func (r *Router) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	h := r.handlers

	mux.HandleFunc("GET /healthz", r.handleHealth)

	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("GET /api/auth/session", r.require(h.Session))

	mux.HandleFunc("GET /api/users", r.admin(h.ListUsers))
	mux.HandleFunc("POST /api/users", r.admin(h.CreateUser))
	mux.HandleFunc("PUT /api/users/{id}", r.admin(h.UpdateUser))
	mux.HandleFunc("DELETE /api/users/{id}", r.admin(h.DeleteUser))

	mux.HandleFunc("GET /api/calendars", r.optional(h.ListCalendars))
	mux.HandleFunc("POST /api/calendars", r.admin(h.CreateCalendar))
	mux.HandleFunc("GET /api/calendars/{id}", r.optional(h.GetCalendar))
	mux.HandleFunc("PUT /api/calendars/{id}", r.require(h.UpdateCalendar))
	mux.HandleFunc("DELETE /api/calendars/{id}", r.admin(h.DeleteCalendar))
	mux.HandleFunc("POST /api/calendars/{id}/permissions", r.admin(h.GrantPermission))
	mux.HandleFunc("DELETE /api/calendars/{id}/permissions/{userId}", r.admin(h.RevokePermission))

	mux.HandleFunc("POST /api/events", r.require(h.CreateEvent))
	mux.HandleFunc("GET /api/events/aggregated", r.optional(h.AggregatedEvents))
	mux.HandleFunc("GET /api/events/calendar/{calendarId}", r.optional(h.EventsByCalendar))
	mux.HandleFunc("GET /api/events/{id}", r.optional(h.GetEvent))
	mux.HandleFunc("PUT /api/events/{id}", r.require(h.UpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", r.require(h.DeleteEvent))

	mux.HandleFunc("GET /api/views", r.admin(h.ListViews))
	mux.HandleFunc("POST /api/views", r.admin(h.CreateView))
	mux.HandleFunc("GET /api/views/alias/{alias}", h.ViewByAlias)
	mux.HandleFunc("GET /api/views/{id}", r.admin(h.GetView))
	mux.HandleFunc("PUT /api/views/{id}", r.admin(h.UpdateView))
	mux.HandleFunc("DELETE /api/views/{id}", r.admin(h.DeleteView))

	mux.HandleFunc("GET /api/public/calendars", h.PublicCalendars)
	mux.HandleFunc("GET /api/public/events", h.PublicEvents)

	mux.HandleFunc("GET /api/feeds/calendars/{id}", r.optional(h.CalendarFeed))

	return r.withLogging(mux)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// optional attaches a principal when a valid bearer token is presented and
// rejects bad tokens; requests without credentials pass through anonymous.
func (r *Router) optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p, err := r.authenticate(req)
		if err != nil {
			r.logAttempt(req, err)
			unauthorized(w)
			return
		}
		if p != nil {
			r.reportPrincipal(req, p)
			req = req.WithContext(auth.WithPrincipal(req.Context(), p))
		}
		next(w, req)
	}
}

func (r *Router) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p, err := r.authenticate(req)
		if err != nil || p == nil {
			r.logAttempt(req, err)
			unauthorized(w)
			return
		}
		r.reportPrincipal(req, p)
		next(w, req.WithContext(auth.WithPrincipal(req.Context(), p)))
	}
}

func (r *Router) reportPrincipal(req *http.Request, p *auth.Principal) {
	if holder, ok := req.Context().Value(holderKey).(*principalHolder); ok {
		holder.p = p
	}
}

func (r *Router) admin(next http.HandlerFunc) http.HandlerFunc {
	return r.require(func(w http.ResponseWriter, req *http.Request) {
		p, _ := auth.PrincipalFrom(req.Context())
		if !p.IsAdmin() {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"` + domain.ErrForbidden.Error() + `"}`))
			return
		}
		next(w, req)
	})
}

// authenticate returns (nil, nil) for requests carrying no credentials.
func (r *Router) authenticate(req *http.Request) (*auth.Principal, error) {
	authz := req.Header.Get("Authorization")
	if authz == "" {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return nil, domain.ErrUnauthorized
	}
	return r.bearer.Authenticate(req.Context(), strings.TrimSpace(authz[7:]))
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="teamcal"`)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

func (r *Router) logAttempt(req *http.Request, authErr error) {
	logEvent := r.logger.Info().
		Bool("auth_success", false).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("ip", realIP(req)).
		Str("user_agent", req.Header.Get("User-Agent"))
	if authErr != nil {
		logEvent = logEvent.Str("error", authErr.Error())
	}
	logEvent.Msg("auth attempt")
}
