package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of database, signer, and session store components
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	brokersdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	brokersdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	sess sessions.Store,
	keys *jwtx.KeyManager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{
			"database": "ok",
			"signer":   "ok",
			"sessions": "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		degrade := func(name, msg string) {
			checks[name] = "error: " + msg
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(ctx); err != nil {
			degrade("database", err.Error())
		}
		if !keys.IsReady() {
			degrade("signer", "no keys loaded")
		}
		if err := sess.Ping(ctx); err != nil {
			degrade("sessions", err.Error())
		}

		httpx.WriteJSON(w, statusCode, brokersdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
