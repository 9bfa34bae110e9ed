package postgres

import (
	"context"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
)

type profilesRepo struct {
	q querier
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var (
		p    domain.Profile
		city *int32
	)
	err := r.q.QueryRow(ctx,
		`SELECT user_id, display_name, avatar, email, steam_id, profile_url,
		        country_code, state_code, city_id, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Avatar,
		&p.Email,
		&p.SteamID,
		&p.ProfileURL,
		&p.CountryCode,
		&p.StateCode,
		&city,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	if city != nil {
		id := int(*city)
		p.CityID = &id
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *profilesRepo) UpsertProfile(ctx context.Context, p domain.Profile) error {
	var city *int32
	if p.CityID != nil {
		id := int32(*p.CityID)
		city = &id
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO profiles (user_id, display_name, avatar, email, steam_id, profile_url,
		                       country_code, state_code, city_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id) DO UPDATE SET
		     display_name = EXCLUDED.display_name,
		     avatar = EXCLUDED.avatar,
		     email = EXCLUDED.email,
		     steam_id = EXCLUDED.steam_id,
		     profile_url = EXCLUDED.profile_url,
		     country_code = EXCLUDED.country_code,
		     state_code = EXCLUDED.state_code,
		     city_id = EXCLUDED.city_id,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, p.Avatar, p.Email, p.SteamID, p.ProfileURL,
		p.CountryCode, p.StateCode, city, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

func (r *profilesRepo) DeleteProfile(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	return err
}

type settingsRepo struct {
	q querier
}

func (r *settingsRepo) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	var s domain.Settings
	err := r.q.QueryRow(ctx,
		`SELECT user_id, language, two_factor_enabled, two_factor_secret, updated_at
		 FROM settings WHERE user_id = $1`, userID).Scan(
		&s.UserID,
		&s.Language,
		&s.TwoFactorEnabled,
		&s.TwoFactorSecret,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.Settings{}, mapNotFound(err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *settingsRepo) UpsertSettings(ctx context.Context, s domain.Settings) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO settings (user_id, language, two_factor_enabled, two_factor_secret, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     language = EXCLUDED.language,
		     two_factor_enabled = EXCLUDED.two_factor_enabled,
		     two_factor_secret = EXCLUDED.two_factor_secret,
		     updated_at = EXCLUDED.updated_at`,
		s.UserID, s.Language, s.TwoFactorEnabled, s.TwoFactorSecret, s.UpdatedAt.UTC())
	return err
}

func (r *settingsRepo) DeleteSettings(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM settings WHERE user_id = $1`, userID)
	return err
}
