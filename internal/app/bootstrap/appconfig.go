// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds Bloom-specific configuration.
//
// Values come from config files, BLOOM_* environment variables or
// command-line flags (see LoadConfig). WAFFLE's CoreConfig covers ports,
// TLS, logging, CORS and body limits; everything the tracker itself needs
// lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: bloom-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 720h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Failed login lockout
	LoginLockoutEnabled bool
	LoginMaxFailures    int           // failures inside LoginWindow before lockout (default: 5)
	LoginWindow         time.Duration // window for counting failures (default: 15m)
	LoginLockout        time.Duration // how long the account stays locked (default: 15m)

	// JSON API limiter, per client
	APIRatePerSecond int           // sustained requests per second (default: 5)
	APIBurst         int           // bucket size (default: 20)
	APIIdleEvict     time.Duration // forget clients idle this long (default: 10m)

	// Calendar and predictions
	Timezone        string // IANA zone used for "today" (default: UTC)
	PredictionAhead int    // predicted cycles shown ahead (default: 3)
	PredictionRange int    // days either side of a predicted start (default: 2)

	// Store operation timeouts
	ShortTimeout time.Duration // single document reads and writes (default: 5s)
	LongTimeout  time.Duration // schema setup and bulk work (default: 30s)

	// Version reported by the health endpoint
	Version string
}
