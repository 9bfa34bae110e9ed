package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/steamid"
)

// SteamProvider is the part of steamid.Client the handshake uses.
type SteamProvider interface {
	AuthURL() string
	Verify(ctx context.Context, q url.Values) (string, error)
	HasAPIKey() bool
	PlayerSummary(ctx context.Context, steamID string) (steamid.PlayerSummary, error)
}

// TokenSigner mints custom tokens. *jwtx.KeyManager implements it.
type TokenSigner interface {
	Sign(claims jwtx.Claims) (string, error)
}

// SteamService turns a Steam OpenID assertion into a short-lived custom
// token the app exchanges with its identity provider.
type SteamService struct {
	Steam    SteamProvider
	Store    store.Store
	Sessions *SessionService
	Signer   TokenSigner

	Issuer   string
	Audience []string
	TokenTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

func (s *SteamService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Begin opens an anonymous session for the browser starting a handshake
// and returns it with the provider URL to redirect to.
func (s *SteamService) Begin(ctx context.Context) (sessions.Session, string, error) {
	sess, err := s.Sessions.Sessions.Create(ctx, "")
	if err != nil {
		return sessions.Session{}, "", steamErr(CodeSteamAuthFailed, fmt.Errorf("create session: %w", err))
	}
	return sess, s.Steam.AuthURL(), nil
}

// Complete runs the return leg of the handshake and returns the minted
// token. sessionID is the session Begin opened, if the browser still has
// it. Failures are *SteamError values carrying the redirect code.
func (s *SteamService) Complete(ctx context.Context, sessionID string, q url.Values) (string, error) {
	token, err := s.complete(ctx, sessionID, q)
	if err != nil {
		SteamHandshakes.WithLabelValues(SteamErrorCode(err)).Inc()
		return "", err
	}
	SteamHandshakes.WithLabelValues("ok").Inc()
	return token, nil
}

func (s *SteamService) complete(ctx context.Context, sessionID string, q url.Values) (string, error) {
	steamID, err := s.Steam.Verify(ctx, q)
	if err != nil {
		return "", steamErr(CodeSteamAuthFailed, fmt.Errorf("verify assertion: %w", err))
	}
	log := s.Logger.With("steam_id", steamID)

	summary := steamid.PlayerSummary{SteamID: steamID}
	if s.Steam.HasAPIKey() {
		fetched, err := s.Steam.PlayerSummary(ctx, steamID)
		if err != nil {
			// The token is still useful without a name and avatar.
			log.Warn("player summary unavailable", "error", err)
		} else {
			summary = fetched
		}
	}

	profile, err := s.ensureAccount(ctx, summary)
	if err != nil {
		return "", steamErr(CodeSteamAuthFailed, fmt.Errorf("ensure account: %w", err))
	}

	sess, err := s.bindSession(ctx, sessionID, steamID)
	if err != nil {
		return "", steamErr(CodeSteamAuthFailed, fmt.Errorf("bind session: %w", err))
	}

	claims := jwtx.NewCustomTokenClaims(jwtx.CustomTokenParams{
		Subject:  steamID,
		Provider: steamProviderKind,
		Name:     profile.DisplayName,
		Picture:  profile.Avatar,
		AMR:      []string{"openid"},
		Issuer:   s.Issuer,
		Audience: s.Audience,
		TTL:      s.TokenTTL,
		Now:      s.now(),
	})
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", steamErr(CodeTokenGenerationFailed, fmt.Errorf("sign token: %w", err))
	}

	// The session only lives for the handshake.
	if err := s.Sessions.Logout(ctx, sess.ID); err != nil {
		if errors.Is(err, ErrSessionDestroyFailed) {
			return "", steamErr(CodeSessionDestroyFailed, err)
		}
		return "", steamErr(CodeLogoutFailed, err)
	}

	log.Info("steam sign in completed")
	return token, nil
}

const steamProviderKind = "steam"

// bindSession attaches steamID to the handshake session, creating one when
// the browser arrived without it.
func (s *SteamService) bindSession(ctx context.Context, sessionID, steamID string) (sessions.Session, error) {
	if sessionID != "" {
		sess, err := s.Sessions.Sessions.Get(ctx, sessionID)
		switch {
		case err == nil:
			sess.UserID = steamID
			if err := s.Sessions.Sessions.Save(ctx, sess); err != nil {
				return sessions.Session{}, err
			}
			return sess, nil
		case !errors.Is(err, sessions.ErrNotFound):
			return sessions.Session{}, err
		}
	}
	return s.Sessions.Sessions.Create(ctx, steamID)
}

// ensureAccount creates the profile, default settings and steam identity
// for a first sign in, and refreshes the identity's name and avatar
// otherwise. It returns the stored profile.
func (s *SteamService) ensureAccount(ctx context.Context, summary steamid.PlayerSummary) (domain.Profile, error) {
	var profile domain.Profile
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := s.now()
		steamID := summary.SteamID

		existing, err := tx.Profiles().GetProfile(ctx, steamID)
		switch {
		case err == nil:
			profile = existing
		case errors.Is(err, store.ErrNotFound):
			profile = newSteamProfile(summary, now)
			if err := tx.Profiles().UpsertProfile(ctx, profile); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
		default:
			return fmt.Errorf("load profile: %w", err)
		}

		if _, err := tx.Settings().GetSettings(ctx, steamID); errors.Is(err, store.ErrNotFound) {
			defaults := account.DefaultSettings()
			if err := tx.Settings().UpsertSettings(ctx, domain.Settings{
				UserID:    steamID,
				Language:  defaults.Language,
				UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("create settings: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		return mirrorIdentity(ctx, tx, summary, profile, now)
	})
	return profile, err
}

func newSteamProfile(summary steamid.PlayerSummary, now time.Time) domain.Profile {
	base := account.NewProfile(summary.PersonaName, "", summary.AvatarFull)
	p := domain.Profile{
		UserID:      summary.SteamID,
		DisplayName: base.DisplayName,
		Avatar:      base.Avatar,
		SteamID:     summary.SteamID,
		ProfileURL:  summary.ProfileURL,
		CountryCode: summary.CountryCode,
		StateCode:   summary.StateCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if summary.CityID != 0 {
		city := summary.CityID
		p.CityID = &city
	}
	return p
}

func mirrorIdentity(ctx context.Context, tx store.Tx, summary steamid.PlayerSummary, profile domain.Profile, now time.Time) error {
	ident, err := tx.Identities().GetIdentityByID(ctx, summary.SteamID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		err := tx.Identities().CreateIdentity(ctx, domain.Identity{
			ID:              summary.SteamID,
			DisplayName:     profile.DisplayName,
			PhotoURL:        profile.Avatar,
			Provider:        steamProviderKind,
			ProviderSubject: summary.SteamID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("create identity: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load identity: %w", err)
	}

	if summary.PersonaName == "" || (ident.DisplayName == summary.PersonaName && ident.PhotoURL == summary.AvatarFull) {
		return nil
	}
	ident.DisplayName = summary.PersonaName
	if summary.AvatarFull != "" {
		ident.PhotoURL = summary.AvatarFull
	}
	ident.UpdatedAt = now
	if err := tx.Identities().UpdateIdentity(ctx, ident); err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}
