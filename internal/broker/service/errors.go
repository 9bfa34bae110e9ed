package service

import "errors"

var (
	ErrSecondFactorNotEnabled = errors.New("2FA not enabled")
	ErrInvalidSecondFactor    = errors.New("invalid 2FA token")
	ErrLogoutFailed           = errors.New("logout failed")
	ErrSessionDestroyFailed   = errors.New("session destroy failed")
)

// Redirect codes the Steam handshake reports to the app as ?error=<code>.
const (
	CodeSteamAuthFailed       = "steam_auth_failed"
	CodeTokenGenerationFailed = "token_generation_failed"
	CodeLogoutFailed          = "logout_failed"
	CodeSessionDestroyFailed  = "session_destroy_failed"
)

// SteamError is a failed handshake step. Code is what the app is told.
type SteamError struct {
	Code string
	Err  error
}

func (e *SteamError) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *SteamError) Unwrap() error { return e.Err }

func steamErr(code string, err error) error {
	return &SteamError{Code: code, Err: err}
}

// SteamErrorCode extracts the redirect code, defaulting to
// CodeSteamAuthFailed.
func SteamErrorCode(err error) string {
	var se *SteamError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeSteamAuthFailed
}
