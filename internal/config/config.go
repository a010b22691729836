// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by the CLI and the client libraries.
type Config struct {
	// APIBaseURL is the backend origin. The /api/v1 prefix is appended by the
	// gateway client.
	APIBaseURL string `env:"CHAINFUND_API_URL,default=http://localhost:8000"`

	// RequestTimeout bounds each HTTP round-trip.
	RequestTimeout time.Duration `env:"CHAINFUND_TIMEOUT,default=30s"`

	// StorePath is the durable session file. Empty selects the default
	// location under the user config directory.
	StorePath string `env:"CHAINFUND_STORE_PATH"`

	// RedisAddr, when set, stores the durable session in Redis instead of a
	// local file (headless deployments sharing one session across processes).
	RedisAddr string `env:"CHAINFUND_REDIS_ADDR"`

	// KeystorePath is the encrypted wallet key file. Empty selects the
	// default location under the user config directory.
	KeystorePath string `env:"CHAINFUND_KEYSTORE"`

	// KeystorePassphrase unlocks the wallet keystore.
	KeystorePassphrase string `env:"CHAINFUND_PASSPHRASE"`

	// RateLimit caps outbound requests per second. Zero disables the limiter.
	RateLimit float64 `env:"CHAINFUND_RATE_LIMIT,default=0"`

	// LogLevel selects the zerolog level.
	LogLevel string `env:"CHAINFUND_LOG_LEVEL,default=info"`
}

// Load reads .env (when present) and decodes the environment.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = defaultPath("session.json")
	}
	if cfg.KeystorePath == "" {
		cfg.KeystorePath = defaultPath("keystore.json")
	}

	return cfg, nil
}

func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".chainfund", name)
	}
	return filepath.Join(dir, "chainfund", name)
}
