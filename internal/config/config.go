package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Config is read once at startup and passed into each component's
// constructor. Credentials are optional on purpose: a missing set routes the
// dependent component to its fail-fast degraded mode instead of crashing the
// process.
type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN"`
	RedisURL    string `env:"REDIS_URL"`

	EmailAPIURL string `env:"EMAIL_API_URL"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`

	SMTPHost         string `env:"SMTP_HOST"`
	SMTPUser         string `env:"SMTP_USER"`
	SMTPPass         string `env:"SMTP_PASS"`
	SMTPTLSPort      int    `env:"SMTP_TLS_PORT,default=465"`
	SMTPStartTLSPort int    `env:"SMTP_STARTTLS_PORT,default=587"`

	EmailTo   string `env:"EMAIL_TO"`
	EmailFrom string `env:"EMAIL_FROM,default=portfolio@cauafreitas.dev"`

	// PrimaryTransport selects which transport the delivery strategy tries
	// first: "api" or "smtp".
	PrimaryTransport   string `env:"PRIMARY_TRANSPORT,default=api"`
	SendTimeoutSeconds int    `env:"SEND_TIMEOUT_SECONDS,default=10"`

	BackgroundDelivery  bool `env:"BACKGROUND_DELIVERY,default=false"`
	DispatchBuffer      int  `env:"DISPATCH_BUFFER,default=64"`
	DispatchConcurrency int  `env:"DISPATCH_CONCURRENCY,default=2"`

	ContactRateLimit       int `env:"CONTACT_RATE_LIMIT,default=5"`
	FeedbackRateLimit      int `env:"FEEDBACK_RATE_LIMIT,default=3"`
	RateLimitWindowMinutes int `env:"RATE_LIMIT_WINDOW_MINUTES,default=60"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}
