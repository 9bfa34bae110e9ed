package domain

import "time"

// Identity is the stored form of an identity.User.
type Identity struct {
	ID              string
	Email           string
	EmailVerified   bool
	DisplayName     string
	PhotoURL        string
	Provider        string // password, google, facebook or steam
	ProviderSubject string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActionToken backs an emailed verification or reset link.
type ActionToken struct {
	ID        string
	UserID    string
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
