package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service. It is loaded once at
// process start and passed by reference; nothing reads the environment after
// Load returns.
type Config struct {
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppIdleTimeout  time.Duration `envconfig:"APP_IDLE_TIMEOUT" default:"60s"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	AuthSecret      string        `envconfig:"AUTH_SECRET" required:"true"`
	TokenIssuer     string        `envconfig:"TOKEN_ISSUER" default:"trove"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	FirstSuperuserEmail    string `envconfig:"FIRST_SUPERUSER_EMAIL"`
	FirstSuperuserPassword string `envconfig:"FIRST_SUPERUSER_PASSWORD"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		return nil, errors.New("auth secret must be provided")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	cleaned := cfg.CORSAllowedOrigins[:0]
	for _, origin := range cfg.CORSAllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	cfg.CORSAllowedOrigins = cleaned
	return &cfg, nil
}

// BootstrapSuperuser reports whether an initial superuser should be created.
func (c *Config) BootstrapSuperuser() bool {
	return c != nil && c.FirstSuperuserEmail != "" && c.FirstSuperuserPassword != ""
}
