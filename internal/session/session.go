// Package session keeps one map controller per visitor, keyed by a cookie,
// and bridges it to the visitor's live Datastar stream.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/mapctl"
	"github.com/joeblew999/plat-iftar/internal/metrics"
)

// CookieName is the visitor session cookie.
const CookieName = "iftar_session"

// Session is one visitor's map state.
type Session struct {
	ID string

	ctl *mapctl.Controller
	geo *BrowserGeolocator

	changed  chan struct{} // coalesced controller change notifications
	commands chan Command

	mu       sync.Mutex
	date     string
	reload   bool
	streams  int
	lastSeen time.Time
	now      func() time.Time
}

func newSession(id string, cfg mapctl.Config, clock mapctl.Clock) *Session {
	s := &Session{
		ID:       id,
		changed:  make(chan struct{}, 1),
		commands: make(chan Command, 8),
		now:      clock.Now,
		lastSeen: clock.Now(),
	}
	s.geo = newBrowserGeolocator(s, clock)
	s.date = cfg.DayBoundary.Date(clock.Now())
	s.ctl = mapctl.New(cfg,
		mapctl.WithClock(clock),
		mapctl.WithGeolocator(s.geo),
		mapctl.WithCamera(browserCamera{sess: s}),
		mapctl.OnChange(func(mapctl.View) { s.notify() }),
		mapctl.WithLogger(logging.With("mapctl").With().Str("session", id).Logger()),
	)
	return s
}

// Controller returns the session's map controller.
func (s *Session) Controller() *mapctl.Controller { return s.ctl }

// Geolocator returns the browser geolocation bridge.
func (s *Session) Geolocator() *BrowserGeolocator { return s.geo }

// Changed fires after controller state changes. Bursts coalesce.
func (s *Session) Changed() <-chan struct{} { return s.changed }

// Commands delivers browser commands to the live stream.
func (s *Session) Commands() <-chan Command { return s.commands }

// Date is the map's selected distribution date.
func (s *Session) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// SetDate changes the selected date and wakes the stream.
func (s *Session) SetDate(date string) {
	s.mu.Lock()
	s.date = date
	s.mu.Unlock()
	s.notify()
}

// Refresh wakes the stream so it reloads its locations.
func (s *Session) Refresh() {
	s.mu.Lock()
	s.reload = true
	s.mu.Unlock()
	s.notify()
}

// TakeRefresh reports and clears a pending Refresh.
func (s *Session) TakeRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reload
	s.reload = false
	return r
}

// Attach marks a live stream. The returned func detaches it.
func (s *Session) Attach() (detach func()) {
	s.mu.Lock()
	s.streams++
	s.lastSeen = s.now()
	s.mu.Unlock()
	metrics.LiveStreams.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.streams--
			s.lastSeen = s.now()
			s.mu.Unlock()
			metrics.LiveStreams.Dec()
		})
	}
}

// Live reports whether a browser stream is attached.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams > 0
}

// Touch records activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams == 0 && s.lastSeen.Before(t)
}

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Session) send(c Command) error {
	select {
	case s.commands <- c:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Registry holds the live sessions.
type Registry struct {
	cfg    mapctl.Config
	ttl    time.Duration
	clock  mapctl.Clock
	secure bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock for sessions and the janitor.
func WithClock(c mapctl.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(r *Registry) { r.secure = secure }
}

// NewRegistry creates a registry. Idle sessions expire after ttl.
func NewRegistry(cfg mapctl.Config, ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	r := &Registry{
		cfg:      cfg,
		ttl:      ttl,
		clock:    mapctl.RealClock,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session with id, if it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Ensure returns the session for id, creating one under a new id when id
// is unknown. created reports whether a new session was made.
func (r *Registry) Ensure(id string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Touch()
		return s, false
	}
	id = uuid.NewString()
	s = newSession(id, r.cfg, r.clock)
	r.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return s, true
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the ttl and without a live
// stream. It returns the number removed.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var dropped []*Session
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, id)
			dropped = append(dropped, s)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range dropped {
		s.ctl.Cancel()
		s.geo.failAll()
	}
	return len(dropped)
}

type ctxKey struct{}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// NewContext attaches s to ctx.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Middleware resolves the visitor's session from its cookie, issuing a new
// cookie when needed, and stores it in the request context.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var id string
		if c, err := req.Cookie(CookieName); err == nil {
			id = c.Value
		}
		s, created := r.Ensure(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.secure,
				SameSite: http.SameSiteLaxMode,
			})
			logging.Ctx(req.Context()).Debug().Str("session", s.ID).Msg("visitor session created")
		}
		next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), s)))
	})
}
