package authflow

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/gamevault/pkg/identity"
)

// SteamCallback is what the broker appends to the app's callback URL.
type SteamCallback struct {
	Token     string
	ErrorCode string
}

// ParseSteamCallback reads the token and error query parameters.
func ParseSteamCallback(q url.Values) SteamCallback {
	return SteamCallback{
		Token:     strings.TrimSpace(q.Get("token")),
		ErrorCode: strings.TrimSpace(q.Get("error")),
	}
}

// SignInWithPassword signs in with email and password. Accounts whose
// email is not verified are signed straight back out.
func (m *Machine) SignInWithPassword(ctx context.Context, email, password string) error {
	prev, err := m.beginSignIn()
	if err != nil {
		return err
	}

	u, err := m.deps.Provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.failSignIn()
		return providerErr(err)
	}

	if !u.EmailVerified {
		if err := m.deps.Provider.SignOut(ctx); err != nil {
			m.log.WarnContext(ctx, "sign out of unverified account failed", "uid", u.ID, "err", err)
		}
		m.failSignIn()
		return &Error{Kind: KindEmailUnverified}
	}

	m.establish(ctx, u, prev, false)
	return nil
}

// SignInWithOAuthPopup obtains a credential from the popup and signs in
// with it.
func (m *Machine) SignInWithOAuthPopup(ctx context.Context, p identity.OAuthProvider) error {
	if m.deps.Popup == nil {
		return &Error{Kind: KindProviderError, Message: "oauth popup not configured"}
	}
	prev, err := m.beginSignIn()
	if err != nil {
		return err
	}

	credential, err := m.deps.Popup.Open(ctx, p)
	if err != nil {
		m.failSignIn()
		return newError(KindProviderError, err)
	}

	u, err := m.deps.Provider.SignInWithOAuth(ctx, p, credential)
	if err != nil {
		m.failSignIn()
		e := providerErr(err)
		if e.Kind == KindInvalidCredentials {
			e.Kind = KindProviderError
		}
		return e
	}

	m.establish(ctx, u, prev, false)
	return nil
}

// InitiateSteamSignIn leaves the app for the broker's Steam entry point.
func (m *Machine) InitiateSteamSignIn(ctx context.Context) error {
	if m.deps.Broker == nil || m.deps.Navigator == nil {
		return &Error{Kind: KindProviderError, Message: "steam sign in not configured"}
	}
	target := m.deps.Broker.SteamEntryURL()
	m.log.DebugContext(ctx, "navigating to steam sign in", "url", target)
	if err := m.deps.Navigator.Navigate(target); err != nil {
		return newError(KindNetworkFailure, err)
	}
	return nil
}

// CompleteSteamCallback exchanges the broker's custom token for a signed
// in identity. A redirect error code is reported without contacting the
// provider.
func (m *Machine) CompleteSteamCallback(ctx context.Context, cb SteamCallback) error {
	if cb.ErrorCode != "" {
		return &Error{Kind: KindServerSessionError, Code: cb.ErrorCode}
	}
	if cb.Token == "" {
		return &Error{Kind: KindServerSessionError, Code: CodeTokenGenerationFailed}
	}

	prev, err := m.beginSignIn()
	if err != nil {
		return err
	}

	u, err := within(ctx, m.cfg.SteamCallbackTimeout, func(ctx context.Context) (identity.User, error) {
		return m.deps.Provider.SignInWithCustomToken(ctx, cb.Token)
	})
	if err != nil {
		m.failSignIn()
		if errors.Is(err, context.DeadlineExceeded) {
			m.log.WarnContext(ctx, "steam token exchange timed out", "timeout", m.cfg.SteamCallbackTimeout)
			return newError(KindNetworkFailure, err)
		}
		return providerErr(err)
	}

	m.establish(ctx, u, prev, false)
	return nil
}

// Restore re-reads the provider's current user, for example after a page
// load. A second factor verified earlier for the same user still counts.
func (m *Machine) Restore(ctx context.Context) error {
	prev, err := m.beginSignIn()
	if err != nil {
		return err
	}

	u, err := m.deps.Provider.CurrentUser(ctx)
	if errors.Is(err, identity.ErrNoCurrentUser) {
		m.reset()
		return nil
	}
	if err != nil {
		m.reset()
		return providerErr(err)
	}

	m.establish(ctx, u, prev, true)
	return nil
}
