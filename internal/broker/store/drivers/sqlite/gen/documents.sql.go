package gen

import (
	"context"
	"database/sql"
	"time"
)

const getProfile = `-- name: GetProfile :one
SELECT user_id, display_name, avatar, email, steam_id, profile_url, country_code, state_code, city_id, created_at, updated_at
FROM profiles WHERE user_id = ?
`

func (q *Queries) GetProfile(ctx context.Context, userID string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, userID)
	var i Profile
	err := row.Scan(
		&i.UserID,
		&i.DisplayName,
		&i.Avatar,
		&i.Email,
		&i.SteamID,
		&i.ProfileUrl,
		&i.CountryCode,
		&i.StateCode,
		&i.CityID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO profiles (
    user_id, display_name, avatar, email, steam_id, profile_url, country_code, state_code, city_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    display_name = excluded.display_name,
    avatar       = excluded.avatar,
    email        = excluded.email,
    steam_id     = excluded.steam_id,
    profile_url  = excluded.profile_url,
    country_code = excluded.country_code,
    state_code   = excluded.state_code,
    city_id      = excluded.city_id,
    updated_at   = excluded.updated_at
`

type UpsertProfileParams struct {
	UserID      string
	DisplayName string
	Avatar      string
	Email       string
	SteamID     string
	ProfileUrl  string
	CountryCode string
	StateCode   string
	CityID      sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		arg.UserID,
		arg.DisplayName,
		arg.Avatar,
		arg.Email,
		arg.SteamID,
		arg.ProfileUrl,
		arg.CountryCode,
		arg.StateCode,
		arg.CityID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const deleteProfile = `-- name: DeleteProfile :exec
DELETE FROM profiles WHERE user_id = ?
`

func (q *Queries) DeleteProfile(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteProfile, userID)
	return err
}

const getSettings = `-- name: GetSettings :one
SELECT user_id, language, two_factor_enabled, two_factor_secret, updated_at
FROM settings WHERE user_id = ?
`

func (q *Queries) GetSettings(ctx context.Context, userID string) (Setting, error) {
	row := q.db.QueryRowContext(ctx, getSettings, userID)
	var i Setting
	err := row.Scan(
		&i.UserID,
		&i.Language,
		&i.TwoFactorEnabled,
		&i.TwoFactorSecret,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :exec
INSERT INTO settings (user_id, language, two_factor_enabled, two_factor_secret, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    language           = excluded.language,
    two_factor_enabled = excluded.two_factor_enabled,
    two_factor_secret  = excluded.two_factor_secret,
    updated_at         = excluded.updated_at
`

type UpsertSettingsParams struct {
	UserID           string
	Language         string
	TwoFactorEnabled bool
	TwoFactorSecret  sql.NullString
	UpdatedAt        time.Time
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		arg.UserID,
		arg.Language,
		arg.TwoFactorEnabled,
		arg.TwoFactorSecret,
		arg.UpdatedAt,
	)
	return err
}

const deleteSettings = `-- name: DeleteSettings :exec
DELETE FROM settings WHERE user_id = ?
`

func (q *Queries) DeleteSettings(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteSettings, userID)
	return err
}
