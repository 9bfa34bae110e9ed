package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
)

// Kind classifies an auth failure. The UI branches on Kind and Code and
// renders Localize(err, lang).
type Kind string

const (
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindEmailUnverified        Kind = "email_unverified"
	KindProviderError          Kind = "provider_error"
	KindRegistrationError      Kind = "registration_error"
	KindReauthenticationFailed Kind = "reauthentication_failed"
	KindInvalidCode            Kind = "invalid_code"
	KindNotEnabled             Kind = "not_enabled"
	KindNoActiveUser           Kind = "no_active_user"
	KindNetworkFailure         Kind = "network_failure"
	KindServerSessionError     Kind = "server_session_error"
	KindSecondFactorRequired   Kind = "second_factor_required"
	KindSignInInProgress       Kind = "sign_in_in_progress"
	KindAlreadySignedIn        Kind = "already_signed_in"
	KindInvalidInput           Kind = "invalid_input"
)

// Codes carried by ServerSessionError, as sent by the broker on the Steam
// callback redirect.
const (
	CodeSteamAuthFailed       = "steam_auth_failed"
	CodeTokenGenerationFailed = "token_generation_failed"
	CodeLogoutFailed          = "logout_failed"
	CodeSessionDestroyFailed  = "session_destroy_failed"
)

// Error is returned by every Machine operation.
type Error struct {
	Kind    Kind
	Code    string // optional detail, e.g. a Steam redirect code
	Message string // provider supplied text, not localized
	Err     error
}

func (e *Error) Error() string {
	s := "authflow: " + string(e.Kind)
	if e.Code != "" {
		s += " (" + e.Code + ")"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a Code also
// requires the code to match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidCredentials     = &Error{Kind: KindInvalidCredentials}
	ErrEmailUnverified        = &Error{Kind: KindEmailUnverified}
	ErrProviderError          = &Error{Kind: KindProviderError}
	ErrRegistrationError      = &Error{Kind: KindRegistrationError}
	ErrReauthenticationFailed = &Error{Kind: KindReauthenticationFailed}
	ErrInvalidCode            = &Error{Kind: KindInvalidCode}
	ErrNotEnabled             = &Error{Kind: KindNotEnabled}
	ErrNoActiveUser           = &Error{Kind: KindNoActiveUser}
	ErrNetworkFailure         = &Error{Kind: KindNetworkFailure}
	ErrServerSessionError     = &Error{Kind: KindServerSessionError}
	ErrSecondFactorRequired   = &Error{Kind: KindSecondFactorRequired}
	ErrSignInInProgress       = &Error{Kind: KindSignInInProgress}
	ErrAlreadySignedIn        = &Error{Kind: KindAlreadySignedIn}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

func invalidInput(code, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Code: code, Message: msg}
}

// providerErr classifies an identity provider failure.
func providerErr(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newError(KindNetworkFailure, err)
	case errors.Is(err, identity.ErrInvalidCredentials):
		return newError(KindInvalidCredentials, err)
	case errors.Is(err, identity.ErrNoCurrentUser):
		return newError(KindNoActiveUser, err)
	default:
		return newError(KindProviderError, err)
	}
}

// documentErr classifies a document store failure.
func documentErr(op string, err error) *Error {
	return newError(KindNetworkFailure, fmt.Errorf("%s: %w", op, err))
}

// brokerErr classifies a broker call failure.
func brokerErr(err error) *Error {
	switch {
	case errors.Is(err, brokersdk.ErrInvalidCode):
		return newError(KindInvalidCode, err)
	case errors.Is(err, brokersdk.ErrNotEnabled):
		return newError(KindNotEnabled, err)
	case errors.Is(err, brokersdk.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return newError(KindNetworkFailure, err)
	default:
		return newError(KindProviderError, err)
	}
}

// reauthErr maps a failed re-authentication.
func reauthErr(err error) *Error {
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return newError(KindReauthenticationFailed, err)
	}
	return providerErr(err)
}
