package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PublicURL     string        // Public base URL of the broker (default: http://localhost:3000)
	AppOrigin     string        // Storefront origin, used for CORS and the Steam callback (default: http://localhost:5173)
	Issuer        string        // Issuer claim of custom tokens (default: gamevault-broker)
	TokenAudience []string      // Audience of custom tokens, comma separated (default: gamevault-identity)
	TokenTTL      time.Duration // Custom token lifetime (default: 5m)
	NumKeys       int           // Number of signing keys to generate (default: 2, min: 1, max: 10)

	StoreDriver  string // Document store driver (sqlite, postgres) (default: sqlite)
	DatabaseFile string // Path to SQLite database file (default: ./gamevault.db)
	DatabaseURL  string // Postgres connection string, required for the postgres driver

	SessionDriver       string        // Session store driver (memory, redis) (default: memory)
	RedisAddr           string        // Redis address (default: localhost:6379)
	RedisPassword       string        // Optional
	RedisDB             int           // Redis database number (default: 0)
	SessionTTL          time.Duration // Broker session lifetime (default: 24h)
	SessionCookieSecure bool          // Mark the session cookie Secure (default: false)

	SteamAPIKey string // Optional: enables player summaries
	SteamRealm  string // OpenID realm (default: PublicURL + "/")

	TOTPIssuer string // Issuer shown in authenticator apps (default: GameStoreApp)
	TOTPSkew   int    // Accepted periods either side of now (default: 1)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 3000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

const (
	StoreDriverSQLite     = "sqlite"
	StoreDriverPostgres   = "postgres"
	SessionDriverMemory   = "memory"
	SessionDriverRedis    = "redis"
	sessionCookieName     = "gamevault_session"
	steamCallbackPath     = "/auth/steam/callback"
	steamReturnPath       = "/auth/steam/return"
	defaultTokenAudience  = "gamevault-identity"
	defaultBrokerIssuer   = "gamevault-broker"
	defaultBrokerPublic   = "http://localhost:3000"
	defaultStorefrontHost = "http://localhost:5173"
)

// LoadConfig reads the environment, loading a .env file first when one is
// present.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("broker: ignoring .env file: %v", err)
	}

	cfg := Config{
		PublicURL:     strings.TrimSuffix(getEnvOrDefault("BROKER_PUBLIC_URL", defaultBrokerPublic), "/"),
		AppOrigin:     strings.TrimSuffix(getEnvOrDefault("BROKER_APP_ORIGIN", defaultStorefrontHost), "/"),
		Issuer:        getEnvOrDefault("BROKER_ISSUER", defaultBrokerIssuer),
		TokenAudience: splitList(getEnvOrDefault("BROKER_TOKEN_AUDIENCE", defaultTokenAudience)),
		TokenTTL:      getEnvDurationOrDefault("BROKER_TOKEN_TTL", 5*time.Minute),
		NumKeys:       getEnvIntOrDefault("BROKER_NUM_KEYS", 2),

		StoreDriver:  strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreDriverSQLite)),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "gamevault.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		SessionDriver:       strings.ToLower(getEnvOrDefault("SESSION_DRIVER", SessionDriverMemory)),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvIntOrDefault("REDIS_DB", 0),
		SessionTTL:          getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		SessionCookieSecure: getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),

		SteamAPIKey: os.Getenv("STEAM_API_KEY"),
		SteamRealm:  os.Getenv("STEAM_REALM"),

		TOTPIssuer: getEnvOrDefault("TOTP_ISSUER", "GameStoreApp"),
		TOTPSkew:   getEnvIntOrDefault("TOTP_SKEW", 1),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 3000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.SteamRealm == "" {
		cfg.SteamRealm = cfg.PublicURL + "/"
	}
	if len(cfg.TokenAudience) == 0 {
		cfg.TokenAudience = []string{defaultTokenAudience}
	}

	return cfg
}

// Validate reports settings the broker cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.SessionDriver {
	case SessionDriverMemory, SessionDriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_DRIVER %q", c.SessionDriver))
	}

	if c.TOTPSkew < 0 {
		errs = append(errs, errors.New("TOTP_SKEW must not be negative"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("BROKER_TOKEN_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// SteamReturnURL is where Steam sends the browser back to.
func (c Config) SteamReturnURL() string { return c.PublicURL + steamReturnPath }

// AppCallbackURL is the storefront page that receives the handshake result.
func (c Config) AppCallbackURL() string { return c.AppOrigin + steamCallbackPath }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
