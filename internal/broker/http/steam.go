package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
)

// SteamHandler runs both legs of the Steam OpenID handshake.
type SteamHandler struct {
	SteamService *service.SteamService
	Cookie       httpx.CookieConfig

	// AppCallbackURL is the storefront page that receives ?token= or
	// ?error= once the handshake ends.
	AppCallbackURL string
}

// HandleBegin handles GET /auth/steam
//
//	@Summary		Start Steam sign in
//	@Description	Opens a broker session, sets the session cookie and redirects to the Steam OpenID login.
//	@Tags			Steam
//	@Success		302	"Redirect to Steam"
//	@Failure		302	"Redirect to the app callback with error=steam_auth_failed"
//	@Router			/auth/steam [get].
func (h *SteamHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess, authURL, err := h.SteamService.Begin(ctx)
	if err != nil {
		log.Error("failed to start steam handshake", "err", err)
		h.redirectApp(w, r, "error", service.SteamErrorCode(err))
		return
	}

	h.Cookie.SetCookie(w, sess.ID, sess.ExpiresAt)
	httpx.NoCache(w)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleReturn handles GET /auth/steam/return
//
//	@Summary		Finish Steam sign in
//	@Description	Verifies the OpenID assertion, provisions the profile, mints a custom token and ends the broker session.
//	@Description	The browser is always redirected to the app callback, with either token or error set.
//	@Tags			Steam
//	@Param			openid.mode			query	string	true	"OpenID mode, id_res on success"
//	@Param			openid.claimed_id	query	string	false	"Claimed Steam identity"
//	@Success		302					"Redirect to the app callback with token=..."
//	@Failure		302					"Redirect to the app callback with error=..."
//	@Router			/auth/steam/return [get].
func (h *SteamHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// The handshake session ends here whatever the outcome.
	h.Cookie.ClearCookie(w)

	token, err := h.SteamService.Complete(ctx, httpx.SessionIDFromContext(ctx), r.URL.Query())
	if err != nil {
		code := service.SteamErrorCode(err)
		log.Warn("steam handshake failed", "code", code, "err", err)
		h.redirectApp(w, r, "error", code)
		return
	}

	h.redirectApp(w, r, "token", token)
}

func (h *SteamHandler) redirectApp(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.AppCallbackURL
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	target += sep + url.Values{key: {value}}.Encode()

	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}
