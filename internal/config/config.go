// Package config loads worldmap settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by WORLDMAP_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// Config holds every runtime knob. Precedence: environment, then YAML, then defaults.
type Config struct {
	Addr      string `yaml:"addr"`
	Env       string `yaml:"env"`
	Backend   string `yaml:"backend"`
	PublicURL string `yaml:"public_url"`

	DatabaseURL string `yaml:"database_url"`
	MediaDir    string `yaml:"media_dir"`

	Supabase SupabaseConfig `yaml:"supabase"`
	Redis    RedisConfig    `yaml:"redis"`

	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	DraftSchema  int           `yaml:"draft_schema"`
	SlugDebounce time.Duration `yaml:"slug_debounce"`
	MinZoom      float64       `yaml:"min_zoom"`
}

type SupabaseConfig struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	Bucket         string `yaml:"bucket"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Addr:         ":8080",
		Env:          "production",
		Backend:      BackendMemory,
		PublicURL:    "http://localhost:8080",
		MediaDir:     "./data/media",
		Supabase:     SupabaseConfig{Bucket: "memories"},
		Redis:        RedisConfig{TTL: 5 * time.Minute},
		SessionTTL:   30 * time.Minute,
		DraftSchema:  2,
		SlugDebounce: 300 * time.Millisecond,
		MinZoom:      10,
	}
}

// Load reads .env if present, then the YAML file named by WORLDMAP_CONFIG, then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup("WORLDMAP_CONFIG"); ok && path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("WORLDMAP_ADDR", &c.Addr)
	str("WORLDMAP_ENV", &c.Env)
	str("WORLDMAP_BACKEND", &c.Backend)
	str("WORLDMAP_PUBLIC_URL", &c.PublicURL)
	str("DATABASE_URL", &c.DatabaseURL)
	str("WORLDMAP_MEDIA_DIR", &c.MediaDir)
	str("SUPABASE_URL", &c.Supabase.URL)
	str("SUPABASE_SERVICE_ROLE_KEY", &c.Supabase.ServiceRoleKey)
	str("SUPABASE_BUCKET", &c.Supabase.Bucket)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASS", &c.Redis.Password)
	str("WORLDMAP_JWT_SECRET", &c.JWTSecret)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	dur("WORLDMAP_SLUG_DEBOUNCE", &c.SlugDebounce)
	dur("WORLDMAP_SESSION_TTL", &c.SessionTTL)
	dur("REDIS_TTL", &c.Redis.TTL)

	if v, ok := lookup("WORLDMAP_DRAFT_SCHEMA"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(v), "v"))
		if err != nil {
			errs = append(errs, fmt.Errorf("WORLDMAP_DRAFT_SCHEMA: %w", err))
		} else {
			c.DraftSchema = n
		}
	}
	if v, ok := lookup("WORLDMAP_MIN_ZOOM"); ok && v != "" {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("WORLDMAP_MIN_ZOOM: %w", err))
		} else {
			c.MinZoom = z
		}
	}
	return errors.Join(errs...)
}

// Development reports whether the console logger and verbose errors are wanted.
func (c Config) Development() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// Validate rejects settings that cannot produce a working server.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
		if c.MediaDir == "" {
			errs = append(errs, errors.New("WORLDMAP_MEDIA_DIR is required for the postgres backend"))
		}
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.DraftSchema != 1 && c.DraftSchema != 2 {
		errs = append(errs, fmt.Errorf("unknown draft schema v%d", c.DraftSchema))
	}
	if c.SlugDebounce < 0 {
		errs = append(errs, errors.New("slug debounce must not be negative"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.MinZoom < 0 {
		errs = append(errs, errors.New("min zoom must not be negative"))
	}
	if !c.Development() && c.JWTSecret == "" {
		errs = append(errs, errors.New("WORLDMAP_JWT_SECRET is required outside development"))
	}
	return errors.Join(errs...)
}
