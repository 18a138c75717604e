// Package server wires the store, services, pages and API into one
// http.Handler and runs it under a supervisor tree.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-iftar/internal/api"
	"github.com/joeblew999/plat-iftar/internal/api/admin"
	"github.com/joeblew999/plat-iftar/internal/api/mapui"
	"github.com/joeblew999/plat-iftar/internal/auth"
	"github.com/joeblew999/plat-iftar/internal/config"
	"github.com/joeblew999/plat-iftar/internal/db"
	"github.com/joeblew999/plat-iftar/internal/humastar"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/mapctl"
	"github.com/joeblew999/plat-iftar/internal/service"
	"github.com/joeblew999/plat-iftar/internal/session"
	"github.com/joeblew999/plat-iftar/internal/store"
	"github.com/joeblew999/plat-iftar/internal/templates"
	"github.com/joeblew999/plat-iftar/web"
)

// Server is the iftar map HTTP server.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	handler http.Handler
	humaAPI huma.API

	store     service.Store
	closer    io.Closer
	locations *service.LocationService
	sessions  *session.Registry
	guard     *auth.Guard
	renderer  *templates.Renderer

	msgs     service.Messages
	boundary service.DayBoundary
	tz       *time.Location
	baseURL  string
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStore replaces the configured store. Used by tests.
func WithStore(st service.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithNow replaces the wall clock for listing boundaries.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New wires the store, services and routes described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	tz, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("map timezone: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		msgs:     service.MessagesFor(cfg.Language),
		boundary: service.DayBoundary{Hour: cfg.Map.DayBoundaryHour, Loc: tz},
		tz:       tz,
		baseURL:  baseURL(cfg.Server),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		if s.store, s.closer, err = openStore(ctx, cfg.Store); err != nil {
			return nil, err
		}
	}

	s.renderer, err = templates.New(web.FS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	s.guard, err = auth.NewGuard(auth.GuardConfig{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		JWTSecret:    cfg.Admin.JWTSecret,
		Timeout:      cfg.Admin.SessionTimeout,
		CookieName:   cfg.Admin.CookieName,
		CookieSecure: cfg.Admin.CookieSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("admin guard: %w", err)
	}

	catalog := newCatalog(cfg.Catalog)
	s.locations = service.NewLocationService(s.store, catalog, service.NewEventBus())
	s.sessions = session.NewRegistry(mapctl.Config{
		FocusWindow:   cfg.Map.FocusWindow,
		GPSWindow:     cfg.Map.GPSWindow,
		GPSErrorDelay: cfg.Map.GPSErrorDelay,
		GPSTimeout:    cfg.Map.GPSTimeout,
		FocusZoom:     cfg.Map.FocusZoom,
		Catalog:       catalog,
		DayBoundary:   s.boundary,
	}, cfg.Session.TTL, session.WithSecureCookie(strings.HasPrefix(s.baseURL, "https://")))

	s.humaAPI = humago.New(s.mux, s.humaConfig())

	s.routes()
	s.handler = requestID(s.guard.Middleware(s.sessions.Middleware(s.mux)))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated spec.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Locations exposes the location service.
func (s *Server) Locations() *service.LocationService { return s.locations }

// Sessions exposes the visitor session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Close releases the store.
func (s *Server) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Server) humaConfig() huma.Config {
	c := huma.DefaultConfig("plat-iftar API", api.Version)
	c.Info.Description = "Community map of iftar distribution points."
	c.Servers = []*huma.Server{{URL: s.baseURL, Description: "Configured base URL"}}
	// no $schema property in responses
	c.CreateHooks = []func(huma.Config) huma.Config{}
	c.Transformers = append(c.Transformers, humastar.LinkTransformer())
	return c
}

// restRoutes registers the JSON API, the part covered by the Go client.
func (s *Server) restRoutes(humaAPI huma.API) {
	api.RegisterRoutes(humaAPI, &api.Services{
		Locations:   s.locations,
		DayBoundary: s.boundary,
		Messages:    s.msgs,
		BaseURL:     s.baseURL,
		Now:         s.now,
	})
	api.NewInfoHandler(s.cfg.Store.Driver, s.cfg.Language, s.guard.Enabled(), len(s.cfg.Events.KafkaBrokers) > 0).
		RegisterRoutes(humaAPI)
}

func (s *Server) routes() {
	s.restRoutes(s.humaAPI)

	mapui.NewHandler(s.locations, s.renderer, s.msgs, s.cfg.Language, s.tz).RegisterRoutes(s.humaAPI)
	admin.NewHandler(s.locations, s.renderer, s.msgs, s.boundary, s.now).RegisterRoutes(s.humaAPI)

	// after every operation is known
	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("GET /static/", http.FileServerFS(web.FS))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /{$}", s.handleMap)
	s.mux.HandleFunc("GET "+auth.AdminPath, s.handleAdmin)
	s.mux.HandleFunc("GET "+auth.LoginPath, s.handleLoginPage)
	s.mux.Handle("POST "+auth.LoginPath, auth.LoginLimiter(s.cfg.Admin.LoginRateLimit)(http.HandlerFunc(s.handleLogin)))
	s.mux.HandleFunc("POST "+auth.LogoutPath, s.handleLogout)
}

// openStore connects the configured backend. The remote driver is wrapped
// in a circuit breaker.
func openStore(ctx context.Context, cfg config.StoreConfig) (service.Store, io.Closer, error) {
	if cfg.Driver == "memory" {
		logging.Warn().Msg("using the in-memory store, locations are lost on restart")
		m := store.NewMemory()
		return m, m, nil
	}

	conn, err := db.Open(ctx, db.Config{Driver: cfg.Driver, DSN: cfg.DSN, DataDir: cfg.DataDir})
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewSQL(ctx, conn, cfg.Driver)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	logging.Info().Str("driver", cfg.Driver).Msg("location store ready")

	if cfg.Driver == "pgx" {
		return store.NewBreaker(st, store.DefaultBreakerConfig("store-pgx")), st, nil
	}
	return st, st, nil
}

func newCatalog(cfg config.CatalogConfig) *service.Catalog {
	convert := func(in []config.Option) []service.Option {
		out := make([]service.Option, len(in))
		for i, o := range in {
			out[i] = service.Option{Key: o.Key, Label: o.Label, Emoji: o.Emoji, Color: o.Color, Badge: o.Badge}
		}
		return out
	}
	return service.NewCatalog(convert(cfg.IftarTypes), convert(cfg.Audiences))
}

func baseURL(cfg config.ServerConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimSuffix(cfg.BaseURL, "/")
	}
	host := cfg.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Port)
}

// requestID tags each request's context and response with an ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}
