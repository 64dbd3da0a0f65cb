package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendLocal    = "local"
)

type Config struct {
	Env                string
	ListenAddr         string
	DatabaseURL        string
	StoreBackend       string
	LocalStorePath     string
	GoogleClientID     string
	LogLevel           string
	EventWorkers       int
	EventQueueSize     int
	EmailTemplatesFile string
	EnhanceDelay       time.Duration
	StagePolicy        string
	CompanyName        string
}

// ErrNoDatabaseURL is returned with an otherwise usable config. Callers decide
// whether the local backend is acceptable.
var ErrNoDatabaseURL = errors.New("DATABASE_URL not set")

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadDotenv reads the given files, or .env, into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func Load() (Config, error) {
	cfg := Config{
		Env:                getenv("APP_ENV", "development"),
		ListenAddr:         getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:        getenv("DATABASE_URL", os.Getenv("NEON_DATABASE_URL")),
		LocalStorePath:     getenv("LOCAL_STORE_PATH", "data/hireflow.db"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		EventWorkers:       getenvInt("EVENT_WORKERS", 2),
		EventQueueSize:     getenvInt("EVENT_QUEUE_SIZE", 256),
		EmailTemplatesFile: os.Getenv("EMAIL_TEMPLATES_FILE"),
		EnhanceDelay:       getenvDuration("ENHANCE_DELAY", 2*time.Second),
		StagePolicy:        getenv("STAGE_POLICY", "fallback"),
		CompanyName:        os.Getenv("COMPANY_NAME"),
	}
	def := BackendLocal
	if cfg.DatabaseURL != "" {
		def = BackendPostgres
	}
	cfg.StoreBackend = strings.ToLower(getenv("STORE_BACKEND", def))
	switch cfg.StoreBackend {
	case BackendPostgres, BackendLocal:
	default:
		return cfg, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendLocal, cfg.StoreBackend)
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for local runs; callers decide.
		return cfg, ErrNoDatabaseURL
	}
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
