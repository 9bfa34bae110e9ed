package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/aussiebroadwan/gamevault/api/broker" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	registry     *prometheus.Registry

	store    store.Store
	sessions sessions.Store

	cookie         httpx.CookieConfig
	appCallbackURL string

	SteamService     *service.SteamService
	TwoFactorService *service.TwoFactorService
	SessionService   *service.SessionService
}

// RouterConfig carries the browser facing settings of the router.
type RouterConfig struct {
	Cookie         httpx.CookieConfig
	CORS           httpx.CORSConfig
	AppCallbackURL string
	BuildVersion   string
}

func NewRouter(
	keys *jwtx.KeyManager,
	st store.Store,
	sess sessions.Store,
	registry *prometheus.Registry,
	cfg RouterConfig,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		keys:           keys,
		buildVersion:   cfg.BuildVersion,
		startTime:      time.Now(),
		logger:         logger,
		registry:       registry,
		store:          st,
		sessions:       sess,
		cookie:         cfg.Cookie,
		appCallbackURL: cfg.AppCallbackURL,
	}

	// The metrics middleware sits next to the mux so it sees the matched
	// pattern on the request.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(cfg.CORS),
		httpx.SessionMiddleware(cfg.Cookie),
		MetricsMiddleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSteam()
	r.registerSession()
	r.registerTwoFactor()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			GameVault Session Broker API
//	@version		0.1.0
//	@description	Server side companion of the GameVault storefront. It runs the Steam OpenID handshake,
//	@description	mints short lived custom tokens for the identity provider, issues and checks TOTP codes
//	@description	and ends the broker session on logout.
//	@description
//	@description	Custom tokens are signed with EdDSA (Ed25519) and can be verified using the JWKS endpoint.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/gamevault
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:3000
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSteam() {
	h := &SteamHandler{
		SteamService:   r.SteamService,
		Cookie:         r.cookie,
		AppCallbackURL: r.appCallbackURL,
	}

	// Both legs are browser redirects - lenient rate limit
	r.Mux.Handle("GET /auth/steam",
		httpx.Chain(http.HandlerFunc(h.HandleBegin),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /auth/steam/return",
		httpx.Chain(http.HandlerFunc(h.HandleReturn),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &LogoutHandler{SessionService: r.SessionService, Cookie: r.cookie}

	// POST /logout - moderate rate limit by session, falling back to IP
	r.Mux.Handle("POST /logout",
		httpx.Chain(h,
			httpx.RateLimitBySession(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{TwoFactorService: r.TwoFactorService}

	r.Mux.Handle("POST /generate-2fa",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /verify-2fa - strict rate limit by IP + uid to slow down code guessing
	r.Mux.Handle("POST /verify-2fa",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "uid"),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.sessions, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.registry != nil {
		r.Mux.Handle("GET /metrics", MetricsHandler(r.registry))
	}
}
