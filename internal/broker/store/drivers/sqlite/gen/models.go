package gen

import (
	"database/sql"
	"time"
)

type ActionToken struct {
	ID        string
	UserID    string
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

type Identity struct {
	ID              string
	Email           sql.NullString
	EmailVerified   bool
	DisplayName     string
	PhotoUrl        string
	Provider        string
	ProviderSubject string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Profile struct {
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

type Setting struct {
	UserID           string
	Language         string
	TwoFactorEnabled bool
	TwoFactorSecret  sql.NullString
	UpdatedAt        time.Time
}
