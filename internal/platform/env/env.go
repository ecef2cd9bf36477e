package env

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultWebAddr    = ":8080"
	DefaultAPIBaseURL = "http://localhost:8090"
	DefaultPetitionID = "default"

	// DefaultSessionSecret is only good enough while sign-in is disabled.
	DefaultSessionSecret = "dev-insecure-change-me"
)

// ErrInsecureSessionSecret rejects GitHub sign-in with a guessable session key.
var ErrInsecureSessionSecret = errors.New("SESSION_SECRET must be set when GitHub sign-in is enabled")

// Config is the full web process configuration.
type Config struct {
	WebAddr         string        `env:"WEB_ADDR" envDefault:":8080"`
	APIBaseURL      string        `env:"API_BASE_URL" envDefault:"http://localhost:8090"`
	APITimeout      time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	PetitionID      string        `env:"DEFAULT_PETITION_ID" envDefault:"default"`
	CountRefresh    time.Duration `env:"COUNT_REFRESH" envDefault:"20s"`
	BurdenDelay     time.Duration `env:"BURDEN_DELAY" envDefault:"2s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	SessionSecret      string        `env:"SESSION_SECRET" envDefault:"dev-insecure-change-me"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	OAuthRedirectURL   string        `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"false"`

	DatabaseURL string `env:"DATABASE_URL"`
	DB          PoolConfig

	NATSURL            string        `env:"NATS_URL"`
	NATSConnectTimeout time.Duration `env:"NATS_CONNECT_TIMEOUT" envDefault:"20s"`
	HandoffBucket      string        `env:"HANDOFF_BUCKET" envDefault:"petition_handoff"`
	HandoffTTL         time.Duration `env:"HANDOFF_TTL" envDefault:"10m"`
}

// PoolConfig tunes the optional Postgres pool.
type PoolConfig struct {
	MinConns          int           `env:"DB_MIN_CONNS" envDefault:"1"`
	MaxConns          int           `env:"DB_MAX_CONNS" envDefault:"8"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads Config from the supplied variables only.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PetitionID == "" {
		cfg.PetitionID = DefaultPetitionID
	}
	if cfg.CountRefresh <= 0 {
		cfg.CountRefresh = 20 * time.Second
	}
	if cfg.BurdenDelay < 0 {
		cfg.BurdenDelay = 0
	}
	if cfg.OAuthEnabled() && (cfg.SessionSecret == "" || cfg.SessionSecret == DefaultSessionSecret) {
		return Config{}, ErrInsecureSessionSecret
	}
	return cfg, nil
}

// OAuthEnabled reports whether GitHub sign-in is configured.
func (c Config) OAuthEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
