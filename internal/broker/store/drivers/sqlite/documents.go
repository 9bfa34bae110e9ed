package sqlite

import (
	"context"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite/gen"
)

type profilesRepo struct {
	q *gen.Queries
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row, err := r.q.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return mapProfile(row), nil
}

func (r *profilesRepo) UpsertProfile(ctx context.Context, p domain.Profile) error {
	return r.q.UpsertProfile(ctx, gen.UpsertProfileParams{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Email:       p.Email,
		SteamID:     p.SteamID,
		ProfileUrl:  p.ProfileURL,
		CountryCode: p.CountryCode,
		StateCode:   p.StateCode,
		CityID:      mapOptionalInt(p.CityID),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	})
}

func (r *profilesRepo) DeleteProfile(ctx context.Context, userID string) error {
	return r.q.DeleteProfile(ctx, userID)
}

type settingsRepo struct {
	q *gen.Queries
}

func (r *settingsRepo) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	row, err := r.q.GetSettings(ctx, userID)
	if err != nil {
		return domain.Settings{}, mapNotFound(err)
	}
	return mapSettings(row), nil
}

func (r *settingsRepo) UpsertSettings(ctx context.Context, s domain.Settings) error {
	return r.q.UpsertSettings(ctx, gen.UpsertSettingsParams{
		UserID:           s.UserID,
		Language:         s.Language,
		TwoFactorEnabled: s.TwoFactorEnabled,
		TwoFactorSecret:  mapOptionalString(s.TwoFactorSecret),
		UpdatedAt:        s.UpdatedAt.UTC(),
	})
}

func (r *settingsRepo) DeleteSettings(ctx context.Context, userID string) error {
	return r.q.DeleteSettings(ctx, userID)
}
