package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
)

// LogoutHandler ends the broker session named by the session cookie.
type LogoutHandler struct {
	SessionService *service.SessionService
	Cookie         httpx.CookieConfig
}

// ServeHTTP handles POST /logout
//
//	@Summary		Log out
//	@Description	Clears the user from the broker session and destroys it. A request without a session still succeeds.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	httpx.MessageResponse	"Logged out"
//	@Failure		429	{object}	httpx.ErrorResponse		"Rate limit exceeded"
//	@Failure		500	{object}	httpx.ErrorResponse		"Logout failed or Session destroy failed"
//	@Router			/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	err := h.SessionService.Logout(ctx, httpx.SessionIDFromContext(ctx))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSessionDestroyFailed):
		log.Error("session destroy failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Session destroy failed", service.CodeSessionDestroyFailed)
		return
	default:
		log.Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Logout failed", service.CodeLogoutFailed)
		return
	}

	h.Cookie.ClearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "Logged out"})
}
