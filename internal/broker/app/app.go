package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/gamevault/internal/broker/http"
	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/postgres"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
	"github.com/aussiebroadwan/gamevault/pkg/steamid"
	"github.com/aussiebroadwan/gamevault/pkg/totpx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the session broker with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	sessions   sessions.Store
	nonces     steamid.NonceStore
	redis      *redis.Client
	purgers    map[string]service.Purger
	keyManager *jwtx.KeyManager

	// Services
	sessionService      *service.SessionService
	twoFactorService    *service.TwoFactorService
	steamService        *service.SteamService
	housekeepingService *service.HousekeepingService
	housekeepingRunning atomic.Bool

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the broker: stores, signing keys, services
// and the HTTP server. Nothing listens until Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "session-broker",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:   cfg.Issuer,
		Audience: cfg.TokenAudience,
		NumKeys:  cfg.NumKeys,
	})
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager
	app.logger.Info("signing keys generated", "count", keyManager.NumSigners())

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the broker's HTTP handler with all routes applied.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until SIGINT/SIGTERM or a listener error, then shuts down.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.housekeepingRunning.Store(true)

	app.logger.Info("session broker starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Wait for a signal or for the listener to fail
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the server, stops housekeeping and closes the stores.
// It is safe to call without Run.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session broker...")

	// In-flight requests get the grace period to finish
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingRunning.CompareAndSwap(true, false) {
		app.housekeepingService.Stop()
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("session broker stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured document store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.StoreDriver {
	case StoreDriverPostgres:
		db, err := postgres.NewStore(ctx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initSessions picks the session and nonce stores. In-memory stores are
// purged by the housekeeping worker; redis expires keys itself.
func (app *Application) initSessions(ctx context.Context) error {
	if app.cfg.SessionDriver == SessionDriverRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		app.redis = client
		app.sessions = sessions.NewRedisStore(client, app.cfg.SessionTTL)
		app.nonces = sessions.NewRedisNonces(client)
		app.logger.Info("session store ready", "driver", SessionDriverRedis, "addr", app.cfg.RedisAddr)
		return nil
	}

	memSessions := sessions.NewMemoryStore(app.cfg.SessionTTL)
	memNonces := sessions.NewMemoryNonces()
	app.sessions = memSessions
	app.nonces = memNonces
	app.purgers = map[string]service.Purger{
		"sessions": memSessions,
		"nonces":   memNonces,
	}
	app.logger.Info("session store ready", "driver", SessionDriverMemory)
	return nil
}

// initServices builds the steam, 2fa, session and housekeeping services.
func (app *Application) initServices() error {
	steam, err := steamid.New(steamid.Config{
		Realm:    app.cfg.SteamRealm,
		ReturnTo: app.cfg.SteamReturnURL(),
		APIKey:   app.cfg.SteamAPIKey,
	}, app.nonces)
	if err != nil {
		return fmt.Errorf("failed to initialize steam client: %w", err)
	}
	if !steam.HasAPIKey() {
		app.logger.Warn("STEAM_API_KEY not set, steam profiles will have no name or avatar")
	}

	totpCfg := totpx.DefaultConfig()
	totpCfg.Issuer = app.cfg.TOTPIssuer
	totpCfg.Skew = uint(app.cfg.TOTPSkew)

	app.sessionService = &service.SessionService{
		Sessions: app.sessions,
		Logger:   app.logger.With("component", "sessions"),
	}
	app.twoFactorService = &service.TwoFactorService{
		Settings: store.NewDocumentStoreAdapter(app.db),
		TOTP:     totpx.New(totpCfg),
		Logger:   app.logger.With("component", "2fa"),
	}
	app.steamService = &service.SteamService{
		Steam:    steam,
		Store:    app.db,
		Sessions: app.sessionService,
		Signer:   app.keyManager,
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.TokenAudience,
		TokenTTL: app.cfg.TokenTTL,
		Logger:   app.logger.With("component", "steam"),
	}

	// Action tokens are identity records, so they are purged through the
	// identity view of the database.
	app.housekeepingService = service.NewHousekeepingService(
		store.NewIdentityStoreAdapter(app.db),
		app.logger.With("component", "housekeeping"),
		app.cfg.HousekeepingInterval,
		app.purgers,
	)
	return nil
}

// initHTTP builds the router with a fresh metrics registry.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.db,
		app.sessions,
		httpapi.NewRegistry(),
		httpapi.RouterConfig{
			Cookie: httpx.CookieConfig{
				Name:   sessionCookieName,
				Secure: app.cfg.SessionCookieSecure,
			},
			CORS:           httpx.CORSConfig{AllowedOrigins: []string{app.cfg.AppOrigin}},
			AppCallbackURL: app.cfg.AppCallbackURL(),
			BuildVersion:   BuildVersion,
		},
		app.logger,
	)

	router.SessionService = app.sessionService
	router.TwoFactorService = app.twoFactorService
	router.SteamService = app.steamService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
