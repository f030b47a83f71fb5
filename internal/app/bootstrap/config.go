// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/bloomcycle/bloom/internal/app/prediction"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables (BLOOM_MONGO_URI, ...).
const EnvVarPrefix = "BLOOM"

// appConfigKeys defines the configuration keys for Bloom. They are loaded via
// WAFFLE's config system from config files (mongo_uri), environment variables
// (BLOOM_MONGO_URI) and flags (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "bloom", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "bloom-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Failed login lockout
	{Name: "login_lockout_enabled", Default: true, Desc: "Lock a login ID after repeated failures"},
	{Name: "login_max_failures", Default: 5, Desc: "Failed attempts before lockout"},
	{Name: "login_window", Default: "15m", Desc: "Window for counting failed attempts"},
	{Name: "login_lockout", Default: "15m", Desc: "Lockout duration"},

	// JSON API limiter
	{Name: "api_rate_per_second", Default: 5, Desc: "Sustained /api requests per second per client"},
	{Name: "api_burst", Default: 20, Desc: "Burst size for /api requests per client"},
	{Name: "api_idle_evict", Default: "10m", Desc: "Forget limiter state for clients idle this long"},

	// Calendar
	{Name: "timezone", Default: "UTC", Desc: "IANA time zone used to decide today's date"},
	{Name: "prediction_ahead", Default: 3, Desc: "Number of predicted cycles shown"},
	{Name: "prediction_range", Default: 2, Desc: "Days either side of a predicted period start"},

	// Timeouts
	{Name: "short_timeout", Default: "5s", Desc: "Timeout for single store operations"},
	{Name: "long_timeout", Default: "30s", Desc: "Timeout for schema setup and bulk operations"},

	{Name: "version", Default: "dev", Desc: "Version string reported by /health"},
}

// LoadConfig loads WAFFLE core config and Bloom's app config.
//
// WAFFLE's config.LoadWithAppConfig merges, in order of precedence,
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 720*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		LoginLockoutEnabled: appValues.Bool("login_lockout_enabled"),
		LoginMaxFailures:    appValues.Int("login_max_failures"),
		LoginWindow:         appValues.Duration("login_window", 15*time.Minute),
		LoginLockout:        appValues.Duration("login_lockout", 15*time.Minute),

		APIRatePerSecond: appValues.Int("api_rate_per_second"),
		APIBurst:         appValues.Int("api_burst"),
		APIIdleEvict:     appValues.Duration("api_idle_evict", 10*time.Minute),

		Timezone:        appValues.String("timezone"),
		PredictionAhead: appValues.Int("prediction_ahead"),
		PredictionRange: appValues.Int("prediction_range"),

		ShortTimeout: appValues.Duration("short_timeout", 5*time.Second),
		LongTimeout:  appValues.Duration("long_timeout", 30*time.Second),

		Version: appValues.String("version"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects settings the server cannot run with.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := time.LoadLocation(appCfg.Timezone); err != nil {
		logger.Error("invalid timezone", zap.String("timezone", appCfg.Timezone), zap.Error(err))
		return fmt.Errorf("invalid timezone %q: %w", appCfg.Timezone, err)
	}
	if appCfg.PredictionAhead < 0 || appCfg.PredictionRange < 0 {
		return errors.New("prediction_ahead and prediction_range must not be negative")
	}
	if appCfg.APIRatePerSecond <= 0 || appCfg.APIBurst <= 0 {
		return errors.New("api_rate_per_second and api_burst must be positive")
	}
	if appCfg.LoginLockoutEnabled && appCfg.LoginMaxFailures <= 0 {
		return errors.New("login_max_failures must be positive when lockout is enabled")
	}
	return nil
}

// appClock returns the clock used for "today" in the configured zone.
// ValidateConfig has already checked the zone name.
func appClock(appCfg AppConfig) calendar.Clock {
	loc, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return calendar.ClockFunc(func() time.Time { return time.Now().In(loc) })
}

// predictionConfig maps the prediction settings onto prediction.Config.
func predictionConfig(appCfg AppConfig) prediction.Config {
	cfg := prediction.DefaultConfig()
	cfg.Ahead = appCfg.PredictionAhead
	cfg.Range = appCfg.PredictionRange
	return cfg
}
