package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
)

// GenerateRequest is the body of POST /generate-2fa.
type GenerateRequest struct {
	UID string `json:"uid"`
}

// GenerateResponse carries a fresh TOTP secret. The broker keeps no copy.
type GenerateResponse struct {
	Secret     string `json:"secret"`
	QRCodeURL  string `json:"qrCodeUrl"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// VerifyRequest is the body of POST /verify-2fa.
type VerifyRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

type VerifyResponse struct {
	Success bool `json:"success"`
}

// TwoFactorHandler relays TOTP issuance and validation.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

// HandleGenerate handles POST /generate-2fa
//
//	@Summary		Issue a TOTP secret
//	@Description	Generates a secret for uid and returns it with its otpauth URI and a QR code data URL.
//	@Tags			Second factor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GenerateRequest			true	"User id"
//	@Success		200		{object}	GenerateResponse		"Secret, QR code and otpauth URI"
//	@Failure		400		{object}	httpx.ErrorResponse		"No UID provided"
//	@Failure		429		{object}	httpx.ErrorResponse		"Rate limit exceeded"
//	@Failure		500		{object}	httpx.ErrorResponse		"Failed to generate 2FA"
//	@Router			/generate-2fa [post].
func (h *TwoFactorHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req GenerateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
	}
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		httpx.WriteError(w, http.StatusBadRequest, "No UID provided", "")
		return
	}

	enr, err := h.TwoFactorService.Generate(ctx, uid)
	if err != nil {
		log.Error("failed to generate 2FA secret", "uid", uid, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to generate 2FA", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, GenerateResponse{
		Secret:     enr.Secret,
		QRCodeURL:  enr.QRCodeURL,
		OTPAuthURL: enr.URL,
	})
}

// HandleVerify handles POST /verify-2fa
//
//	@Summary		Verify a TOTP code
//	@Description	Checks token against the secret stored in the settings of uid.
//	@Tags			Second factor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyRequest		true	"User id and code"
//	@Success		200		{object}	VerifyResponse		"Code accepted"
//	@Failure		400		{object}	httpx.ErrorResponse	"Missing fields, 2FA not enabled or invalid token"
//	@Failure		429		{object}	httpx.ErrorResponse	"Rate limit exceeded"
//	@Failure		500		{object}	httpx.ErrorResponse	"Failed to verify 2FA"
//	@Router			/verify-2fa [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req VerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
	}
	uid, code := strings.TrimSpace(req.UID), strings.TrimSpace(req.Token)
	if uid == "" || code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing UID or token", "")
		return
	}

	err := h.TwoFactorService.Verify(ctx, uid, code)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, VerifyResponse{Success: true})
	case errors.Is(err, service.ErrSecondFactorNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "2FA not enabled", brokersdk.CodeNotEnabled)
	case errors.Is(err, service.ErrInvalidSecondFactor):
		log.Warn("invalid 2FA token", "uid", uid)
		httpx.WriteError(w, http.StatusBadRequest, "Invalid 2FA token", brokersdk.CodeInvalidToken)
	default:
		log.Error("failed to verify 2FA", "uid", uid, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to verify 2FA", "")
	}
}
