package server

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/joeblew999/plat-iftar/internal/auth"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/session"
)

const pageTitle = "রাজশাহী ইফতার ম্যাপ"

// Shown on the splash screen, one at random per page load.
var quotes = []string{
	"ইফতারের মেনু কী? নাকি আজকেও মেস-এর খিচুড়ি? 🍛",
	"সেহরিতে ঘুম থেকে ওঠা পৃথিবীর কঠিনতম কাজ! 😴",
	"সবাই খেজুর খোঁজে, আর আমরা খুঁজি পেয়াজু! 🧅",
	"পড়াশোনা থাক দূরে, এখন শুধু ইফতারের স্বপ্নে বিভোর। 📚✨",
	"ইফতারের ১ মিনিট পরেই রাতের খাবারের চিন্তা শুরু! 🥘",
	"পকেটে টাকা নাই, কিন্তু ইফতারের বাজেটে কোনো আপস নেই! 💸",
}

// MapConfig is handed to the Leaflet glue.
type MapConfig struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Zoom      int     `json:"zoom"`
	FocusZoom int     `json:"focusZoom"`
}

type mapPage struct {
	Lang    string
	Title   string
	Config  MapConfig
	Signals string
	Quote   string
	Msgs    pageMessages
	Date    string
}

type pageMessages struct {
	Locating  string
	ClickHint string
}

type adminPage struct {
	Lang     string
	Title    string
	Signals  string
	Username string
}

type loginPage struct {
	Lang     string
	Title    string
	Username string
	Error    string
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	if d := r.URL.Query().Get("date"); d != "" {
		if _, err := time.Parse(time.DateOnly, d); err == nil {
			sess.SetDate(d)
			sess.Refresh()
		}
	}
	date := sess.Date()

	s.render(w, r, http.StatusOK, "map-page", mapPage{
		Lang:  s.cfg.Language,
		Title: pageTitle,
		Config: MapConfig{
			Lat:       s.cfg.Map.CenterLat,
			Lng:       s.cfg.Map.CenterLng,
			Zoom:      s.cfg.Map.Zoom,
			FocusZoom: s.cfg.Map.FocusZoom,
		},
		Signals: signals(map[string]any{
			"ready":      false,
			"mode":       "idle",
			"loading":    false,
			"menuOpen":   false,
			"clickMode":  false,
			"drawerOpen": false,
			"gpsError":   "",
			"formOpen":   false,
			"formError":  "",
			"popupOpen":  false,
			"loadError":  "",
			"date":       date,
			"count":      0,
		}),
		Quote: quotes[rand.IntN(len(quotes))],
		Msgs:  pageMessages{Locating: s.msgs.Locating, ClickHint: s.msgs.ClickHint},
		Date:  date,
	})
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	var username string
	if claims := s.guard.Session(r); claims != nil {
		username = claims.Username
	}
	s.render(w, r, http.StatusOK, "admin-page", adminPage{
		Lang:  s.cfg.Language,
		Title: pageTitle + " · Admin",
		Signals: signals(map[string]any{
			"since":          "today",
			"count":          0,
			"editing":        "",
			"confirmDelete":  "",
			"confirmMessage": "",
			"error":          "",
			"success":        "",
		}),
		Username: username,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login-page", loginPage{Lang: s.cfg.Language, Title: pageTitle + " · Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	if s.guard.Login(w, username, r.PostFormValue("password")) {
		logging.Ctx(r.Context()).Info().Str("username", username).Msg("admin logged in")
		http.Redirect(w, r, auth.AdminPath, http.StatusSeeOther)
		return
	}

	logging.Ctx(r.Context()).Warn().Str("username", username).Str("ip", r.RemoteAddr).Msg("admin login failed")
	s.render(w, r, http.StatusUnauthorized, "login-page", loginPage{
		Lang:     s.cfg.Language,
		Title:    pageTitle + " · Login",
		Username: username,
		Error:    s.msgs.InvalidCredentials,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.guard.Logout(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.renderer.Render(name, data)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("render page failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func signals(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
