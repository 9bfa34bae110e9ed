package httpx

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig lists the browser origins allowed to call the broker with
// credentials.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// CORS answers preflight requests and decorates responses for the
// configured origins.
func CORS(cfg CORSConfig) Middleware {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 300
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           maxAge,
	})
}
