// Package config loads plat-iftar configuration from struct defaults, an
// optional YAML file, and IFTAR_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-iftar/internal/validation"
)

// EnvPrefix is stripped from environment variables before mapping them to keys.
// IFTAR_STORE_DRIVER -> store.driver, IFTAR_ADMIN_JWT_SECRET -> admin.jwt_secret
const EnvPrefix = "IFTAR_"

// DefaultConfigPaths are searched when no explicit path is given.
var DefaultConfigPaths = []string{"iftar.yaml", "iftar.yml", "/etc/iftar/iftar.yaml"}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Map      MapConfig      `koanf:"map"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Admin    AdminConfig    `koanf:"admin"`
	Session  SessionConfig  `koanf:"session"`
	Logging  LoggingConfig  `koanf:"logging"`
	Events   EventsConfig   `koanf:"events"`
	Language string         `koanf:"language" validate:"oneof=bn en"`
}

type ServerConfig struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port" validate:"min=1,max=65535"`
	BaseURL string `koanf:"base_url"`
}

type StoreConfig struct {
	Driver  string `koanf:"driver" validate:"oneof=duckdb pgx sqlite memory"`
	DSN     string `koanf:"dsn"`
	DataDir string `koanf:"data_dir"`
}

// MapConfig holds the map view and controller timings.
type MapConfig struct {
	CenterLat       float64       `koanf:"center_lat" validate:"latitude"`
	CenterLng       float64       `koanf:"center_lng" validate:"longitude"`
	Zoom            int           `koanf:"zoom" validate:"min=1,max=20"`
	FocusZoom       int           `koanf:"focus_zoom" validate:"min=1,max=20"`
	Timezone        string        `koanf:"timezone"`
	DayBoundaryHour int           `koanf:"day_boundary_hour" validate:"min=0,max=23"`
	FocusWindow     time.Duration `koanf:"focus_window"`
	GPSWindow       time.Duration `koanf:"gps_window"`
	GPSErrorDelay   time.Duration `koanf:"gps_error_delay"`
	GPSTimeout      time.Duration `koanf:"gps_timeout"`
}

// Option is one entry of an enumerated catalog set.
type Option struct {
	Key   string `koanf:"key" validate:"required"`
	Label string `koanf:"label"`
	Emoji string `koanf:"emoji"`
	Color string `koanf:"color"`
	Badge string `koanf:"badge"`
}

type CatalogConfig struct {
	IftarTypes []Option `koanf:"iftar_types" validate:"min=1,dive"`
	Audiences  []Option `koanf:"audiences" validate:"min=1,dive"`
}

type AdminConfig struct {
	Username       string        `koanf:"username"`
	PasswordHash   string        `koanf:"password_hash"`
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	CookieName     string        `koanf:"cookie_name"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	LoginRateLimit int           `koanf:"login_rate_limit"`
}

// Enabled reports whether the admin dashboard can be used.
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.PasswordHash != "" && len(a.JWTSecret) >= 32
}

type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type EventsConfig struct {
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8087},
		Store:  StoreConfig{Driver: "duckdb", DataDir: ".data"},
		Map: MapConfig{
			CenterLat:       24.3636,
			CenterLng:       88.6241,
			Zoom:            13,
			FocusZoom:       17,
			Timezone:        "Asia/Dhaka",
			DayBoundaryHour: 19,
			FocusWindow:     1500 * time.Millisecond,
			GPSWindow:       1200 * time.Millisecond,
			GPSErrorDelay:   3 * time.Second,
			GPSTimeout:      8 * time.Second,
		},
		Catalog: CatalogConfig{
			IftarTypes: []Option{
				{Key: "mosque", Label: "মসজিদে ইফতার", Emoji: "🕌", Color: "#22c55e"},
				{Key: "street", Label: "রাস্তায় বিতরণ", Emoji: "🥡", Color: "#f97316"},
				{Key: "orphanage", Label: "এতিমখানায়", Emoji: "🏠", Color: "#3b82f6"},
				{Key: "other", Label: "অন্যান্য", Emoji: "🍽️", Color: "#d4af37"},
			},
			Audiences: []Option{
				{Key: "everyone", Label: "সবার জন্য", Badge: "badge-success"},
				{Key: "poor", Label: "দরিদ্রদের জন্য", Badge: "badge-warning"},
				{Key: "travellers", Label: "পথচারীদের জন্য", Badge: "badge-info"},
				{Key: "destitute", Label: "দুস্থদের জন্য", Badge: "badge-secondary"},
			},
		},
		Admin: AdminConfig{
			SessionTimeout: 24 * time.Hour,
			CookieName:     "iftar_admin",
			CookieSecure:   true,
			LoginRateLimit: 5,
		},
		Session:  SessionConfig{TTL: 2 * time.Hour},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Events:   EventsConfig{KafkaTopic: "iftar.locations"},
		Language: "bn",
	}
}

// Load builds the configuration. path may be empty, in which case the
// default paths are searched and a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	if err := splitList(k, "events.kafka_brokers"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules and cross-field constraints.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == "pgx" && c.Store.DSN == "" {
		return fmt.Errorf("invalid config: store.dsn is required for the pgx driver")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: map.timezone: %w", err)
	}
	if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < 32 {
		return fmt.Errorf("invalid config: admin.jwt_secret must be at least 32 characters")
	}
	return nil
}

// Location resolves the configured map timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Map.Timezone == "" || c.Map.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Map.Timezone)
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envToKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}
