package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"BROKER_PUBLIC_URL", "BROKER_APP_ORIGIN", "BROKER_ISSUER", "BROKER_TOKEN_AUDIENCE",
	"BROKER_TOKEN_TTL", "BROKER_NUM_KEYS", "STORE_DRIVER", "DATABASE_FILE", "DATABASE_URL",
	"SESSION_DRIVER", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
	"SESSION_COOKIE_SECURE", "STEAM_API_KEY", "STEAM_REALM", "TOTP_ISSUER", "TOTP_SKEW",
	"ENV", "LOG_LEVEL", "LOG_FORMAT", "PORT", "SHUTDOWN_GRACE_PERIOD", "HOUSEKEEPING_INTERVAL",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	require.Equal(t, "http://localhost:3000", cfg.PublicURL)
	require.Equal(t, "http://localhost:5173", cfg.AppOrigin)
	require.Equal(t, "gamevault-broker", cfg.Issuer)
	require.Equal(t, []string{"gamevault-identity"}, cfg.TokenAudience)
	require.Equal(t, 5*time.Minute, cfg.TokenTTL)
	require.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	require.Equal(t, SessionDriverMemory, cfg.SessionDriver)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.False(t, cfg.SessionCookieSecure)
	require.Equal(t, "http://localhost:3000/", cfg.SteamRealm)
	require.Equal(t, "GameStoreApp", cfg.TOTPIssuer)
	require.Equal(t, 1, cfg.TOTPSkew)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)

	require.Equal(t, "http://localhost:3000/auth/steam/return", cfg.SteamReturnURL())
	require.Equal(t, "http://localhost:5173/auth/steam/callback", cfg.AppCallbackURL())
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BROKER_PUBLIC_URL", "https://broker.example/")
	t.Setenv("BROKER_TOKEN_AUDIENCE", "identity, storefront ,")
	t.Setenv("BROKER_TOKEN_TTL", "2")
	t.Setenv("SESSION_DRIVER", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("TOTP_SKEW", "0")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "45s")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	require.Equal(t, "https://broker.example", cfg.PublicURL)
	require.Equal(t, "https://broker.example/", cfg.SteamRealm)
	require.Equal(t, []string{"identity", "storefront"}, cfg.TokenAudience)
	require.Equal(t, 2*time.Minute, cfg.TokenTTL)
	require.Equal(t, SessionDriverRedis, cfg.SessionDriver)
	require.Equal(t, 3, cfg.RedisDB)
	require.True(t, cfg.SessionCookieSecure)
	require.Equal(t, 0, cfg.TOTPSkew)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, 45*time.Second, cfg.ShutdownGracePeriod)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{StoreDriver: StoreDriverSQLite, SessionDriver: SessionDriverMemory, TokenTTL: time.Minute}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.StoreDriver = StoreDriverPostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.StoreDriver = "mongo" },
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "unknown sessions",
			mutate:  func(c *Config) { c.SessionDriver = "memcached" },
			wantErr: "SESSION_DRIVER",
		},
		{
			name:    "negative skew",
			mutate:  func(c *Config) { c.TOTPSkew = -1 },
			wantErr: "TOTP_SKEW",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
