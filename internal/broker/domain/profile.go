package domain

import "time"

// Profile is the public document kept per identity. Steam sign-ins fill
// SteamID and ProfileURL.
type Profile struct {
	UserID      string
	DisplayName string
	Avatar      string
	Email       string
	SteamID     string
	ProfileURL  string
	CountryCode string
	StateCode   string
	CityID      *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Settings is the private per identity document. TwoFactorSecret is nil
// until a second factor is issued.
type Settings struct {
	UserID           string
	Language         string
	TwoFactorEnabled bool
	TwoFactorSecret  *string
	UpdatedAt        time.Time
}

// HasSecret reports whether a usable second-factor secret is stored.
func (s Settings) HasSecret() bool {
	return s.TwoFactorSecret != nil && *s.TwoFactorSecret != ""
}
