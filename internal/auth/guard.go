package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/joeblew999/plat-iftar/internal/logging"
)

// Paths of the admin page group.
const (
	AdminPath  = "/admin"
	LoginPath  = "/admin/login"
	LogoutPath = "/admin/logout"
)

// Guard owns the admin session cookie and the route rules around it.
// A Guard without credentials never authenticates anyone.
type Guard struct {
	creds      *Credentials
	jwt        *JWTManager
	cookieName string
	secure     bool
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	Timeout      time.Duration
	CookieName   string
	CookieSecure bool
}

// NewGuard builds a guard. Missing credentials yield a disabled guard.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	g := &Guard{cookieName: cfg.CookieName, secure: cfg.CookieSecure}
	if g.cookieName == "" {
		g.cookieName = "iftar_admin"
	}
	if cfg.Username == "" || cfg.PasswordHash == "" {
		logging.Warn().Msg("admin credentials not configured, dashboard disabled")
		return g, nil
	}

	creds, err := NewCredentials(cfg.Username, cfg.PasswordHash)
	if err != nil {
		return nil, err
	}
	jm, err := NewJWTManager(cfg.JWTSecret, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	g.creds = creds
	g.jwt = jm
	return g, nil
}

// Enabled reports whether logins are possible.
func (g *Guard) Enabled() bool { return g.creds != nil }

// Login checks the credentials and sets the session cookie.
func (g *Guard) Login(w http.ResponseWriter, username, password string) bool {
	if !g.Enabled() || !g.creds.Check(username, password) {
		return false
	}
	token, err := g.jwt.GenerateToken(username)
	if err != nil {
		logging.Error().Err(err).Msg("issuing admin session failed")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.jwt.Timeout().Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// Logout clears the session cookie.
func (g *Guard) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session returns the claims of a valid session cookie, or nil.
func (g *Guard) Session(r *http.Request) *Claims {
	if !g.Enabled() {
		return nil
	}
	c, err := r.Cookie(g.cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims, err := g.jwt.ValidateToken(c.Value)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected admin session")
		return nil
	}
	return claims
}

// Authenticated reports whether r carries a valid session.
func (g *Guard) Authenticated(r *http.Request) bool {
	return g.Session(r) != nil
}

// Middleware enforces the route rules:
//   - /admin/login with a valid session redirects to /admin
//   - the rest of /admin without one redirects to /admin/login
//   - protected API routes without one answer 401
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		switch {
		case p == LoginPath:
			if r.Method == http.MethodGet && g.Authenticated(r) {
				http.Redirect(w, r, AdminPath, http.StatusSeeOther)
				return
			}
		case p == AdminPath || strings.HasPrefix(p, AdminPath+"/"):
			if !g.Authenticated(r) {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
		case ProtectedAPI(r):
			if !g.Authenticated(r) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"admin session required"}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ProtectedAPI reports whether r targets an admin-only API route.
func ProtectedAPI(r *http.Request) bool {
	p := r.URL.Path
	if strings.HasPrefix(p, "/api/v1/admin/") {
		return true
	}
	if strings.HasPrefix(p, "/api/v1/locations/") && (r.Method == http.MethodPut || r.Method == http.MethodDelete) {
		return true
	}
	return false
}

// LoginLimiter limits login attempts per client IP.
func LoginLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 5
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}
