package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Reports that the broker process is up, with its uptime and build version.
//	@Description	Dependencies are not checked here; see /readyz.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	brokersdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, brokersdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
