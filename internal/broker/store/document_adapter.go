package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/pkg/account"
)

// DocumentStoreAdapter adapts Store to account.DocumentStore. Merges run in
// a transaction so concurrent patches to one document do not interleave.
type DocumentStoreAdapter struct {
	store Store
	now   func() time.Time
}

var _ account.DocumentStore = (*DocumentStoreAdapter)(nil)

func NewDocumentStoreAdapter(store Store) *DocumentStoreAdapter {
	return &DocumentStoreAdapter{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (a *DocumentStoreAdapter) GetProfile(ctx context.Context, uid string) (account.Profile, error) {
	row, err := a.store.Profiles().GetProfile(ctx, uid)
	if err != nil {
		return account.Profile{}, documentErr(err)
	}
	return domainToProfile(row), nil
}

func (a *DocumentStoreAdapter) PutProfile(ctx context.Context, uid string, p account.Profile) error {
	return a.store.WithTx(ctx, func(tx Tx) error {
		now := a.now()
		row := profileToDomain(uid, p)
		prev, err := tx.Profiles().GetProfile(ctx, uid)
		switch {
		case err == nil:
			row.CreatedAt = prev.CreatedAt
		case errors.Is(err, ErrNotFound):
			if row.CreatedAt.IsZero() {
				row.CreatedAt = now
			}
		default:
			return err
		}
		row.UpdatedAt = now
		return tx.Profiles().UpsertProfile(ctx, row)
	})
}

func (a *DocumentStoreAdapter) MergeProfile(ctx context.Context, uid string, patch account.ProfilePatch) (account.Profile, error) {
	var out account.Profile
	err := a.store.WithTx(ctx, func(tx Tx) error {
		now := a.now()
		var current account.Profile
		row, err := tx.Profiles().GetProfile(ctx, uid)
		switch {
		case err == nil:
			current = domainToProfile(row)
		case errors.Is(err, ErrNotFound):
			current.CreatedAt = now
		default:
			return err
		}

		out = patch.Apply(current)
		out.UpdatedAt = now
		return tx.Profiles().UpsertProfile(ctx, profileToDomain(uid, out))
	})
	return out, err
}

func (a *DocumentStoreAdapter) DeleteProfile(ctx context.Context, uid string) error {
	return documentErr(a.store.Profiles().DeleteProfile(ctx, uid))
}

func (a *DocumentStoreAdapter) GetSettings(ctx context.Context, uid string) (account.Settings, error) {
	row, err := a.store.Settings().GetSettings(ctx, uid)
	if err != nil {
		return account.Settings{}, documentErr(err)
	}
	return domainToSettings(row), nil
}

func (a *DocumentStoreAdapter) PutSettings(ctx context.Context, uid string, s account.Settings) error {
	s.UpdatedAt = a.now()
	return a.store.Settings().UpsertSettings(ctx, settingsToDomain(uid, s))
}

func (a *DocumentStoreAdapter) MergeSettings(ctx context.Context, uid string, patch account.SettingsPatch) (account.Settings, error) {
	var out account.Settings
	err := a.store.WithTx(ctx, func(tx Tx) error {
		current := account.DefaultSettings()
		row, err := tx.Settings().GetSettings(ctx, uid)
		switch {
		case err == nil:
			current = domainToSettings(row)
		case !errors.Is(err, ErrNotFound):
			return err
		}

		out = patch.Apply(current)
		out.UpdatedAt = a.now()
		return tx.Settings().UpsertSettings(ctx, settingsToDomain(uid, out))
	})
	return out, err
}

func (a *DocumentStoreAdapter) DeleteSettings(ctx context.Context, uid string) error {
	return documentErr(a.store.Settings().DeleteSettings(ctx, uid))
}

func documentErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return account.ErrNotFound
	}
	return err
}

func profileToDomain(uid string, p account.Profile) domain.Profile {
	return domain.Profile{
		UserID:      uid,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Email:       p.Email,
		SteamID:     p.SteamID,
		ProfileURL:  p.ProfileURL,
		CountryCode: p.CountryCode,
		StateCode:   p.StateCode,
		CityID:      p.CityID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func domainToProfile(p domain.Profile) account.Profile {
	return account.Profile{
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Email:       p.Email,
		SteamID:     p.SteamID,
		ProfileURL:  p.ProfileURL,
		CountryCode: p.CountryCode,
		StateCode:   p.StateCode,
		CityID:      p.CityID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func settingsToDomain(uid string, s account.Settings) domain.Settings {
	out := domain.Settings{
		UserID:           uid,
		Language:         s.Language,
		TwoFactorEnabled: s.TwoFactorEnabled,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.TwoFactorSecret != "" {
		secret := s.TwoFactorSecret
		out.TwoFactorSecret = &secret
	}
	return out
}

func domainToSettings(s domain.Settings) account.Settings {
	out := account.Settings{
		Language:         s.Language,
		TwoFactorEnabled: s.TwoFactorEnabled,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.HasSecret() {
		out.TwoFactorSecret = *s.TwoFactorSecret
	}
	return out
}
