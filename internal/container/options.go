package container

import (
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/serroba/shortlinks/internal/middleware"
	"go.uber.org/zap/zapcore"
)

// DevSessionSecret is the default session secret. It is only fit for local development.
const DevSessionSecret = "dev-only-session-secret-change-me"

// Options configures the server and the consumer. Every field can be set by flag or by a
// SERVICE_-prefixed environment variable.
type Options struct {
	Port               int    `default:"8080" help:"Port to listen on" short:"p" validate:"min=1,max=65535"`
	BaseURL            string `default:"" help:"Public base URL of short links, defaults to http://localhost:PORT" validate:"omitempty,url"`
	CodeLength         int    `default:"6" help:"Length of generated link ids" short:"c" validate:"min=4,max=64"`
	UserIDLength       int    `default:"6" help:"Length of generated user ids" validate:"min=4,max=64"`
	LogFormat          string `default:"console" help:"Log format: console or json" validate:"oneof=console json"`
	LogLevel           string `default:"info" help:"Log level" validate:"loglevel"`
	SessionSecret      string `default:"dev-only-session-secret-change-me" help:"Secret signing session cookies" validate:"min=16"`
	SessionCookie      string `default:"session" help:"Name of the session cookie" validate:"required"`
	SessionTTL         string `default:"24h" help:"Lifetime of a session" validate:"duration"`
	SecureCookies      bool   `default:"false" help:"Only send cookies over HTTPS"`
	BcryptCost         int    `default:"10" help:"bcrypt cost of stored password hashes" validate:"min=4,max=31"`
	RedisAddr          string `default:"" help:"Redis address; enables shared rate limits and redis event streams" short:"r" validate:"omitempty,hostname_port"`
	DatabaseURL        string `default:"" help:"PostgreSQL URL; enables persistent storage" short:"d" validate:"omitempty,url"`
	SeedDemo           bool   `default:"false" help:"Load the demo users and links on start"`
	RateLimitPerMinute int    `default:"10" help:"Register and login attempts allowed per client per minute, 0 disables" validate:"min=0"`
	RateLimitPrune     string `default:"1m" help:"How often idle in-memory rate limit counters are dropped" validate:"duration"`
	TrustedProxies     string `default:"" help:"Comma-separated proxy IPs or CIDRs whose X-Forwarded-For and X-Real-IP headers are believed" validate:"proxies"`
}

// Validate checks option values that flags and env parsing cannot.
func (o *Options) Validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("duration", validateDuration); err != nil {
		return err
	}

	if err := validate.RegisterValidation("proxies", validateProxies); err != nil {
		return err
	}

	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return nil
}

// SessionLifetime returns the parsed session TTL. Options must have been validated.
func (o *Options) SessionLifetime() time.Duration {
	ttl, _ := time.ParseDuration(o.SessionTTL)

	return ttl
}

// RateLimitPruneInterval returns the parsed prune interval. Options must have been validated.
func (o *Options) RateLimitPruneInterval() time.Duration {
	interval, _ := time.ParseDuration(o.RateLimitPrune)

	return interval
}

// Proxies returns the parsed trusted proxies. Options must have been validated.
func (o *Options) Proxies() middleware.TrustedProxies {
	proxies, _ := middleware.ParseTrustedProxies(o.TrustedProxies)

	return proxies
}

// PublicBaseURL returns the base URL used to build short links.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fieldLevel.Field().String())

	return err == nil
}

func validateDuration(fieldLevel validator.FieldLevel) bool {
	d, err := time.ParseDuration(fieldLevel.Field().String())

	return err == nil && d > 0
}

func validateProxies(fieldLevel validator.FieldLevel) bool {
	_, err := middleware.ParseTrustedProxies(fieldLevel.Field().String())

	return err == nil
}
