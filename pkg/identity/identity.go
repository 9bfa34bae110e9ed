// Package identity defines the credential provider the auth state machine
// signs users in through, plus Local, a provider backed by an identity
// store.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Kind names the provider that proved an identity.
type Kind string

const (
	KindPassword Kind = "password"
	KindGoogle   Kind = "google"
	KindFacebook Kind = "facebook"
	KindSteam    Kind = "steam"
)

// OAuthProvider is a provider reachable through a popup.
type OAuthProvider = Kind

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailInUse         = errors.New("identity: email already in use")
	ErrWeakPassword       = errors.New("identity: weak password")
	ErrInvalidEmail       = errors.New("identity: invalid email")
	ErrNoCurrentUser      = errors.New("identity: no current user")
	ErrInvalidToken       = errors.New("identity: invalid or expired token")
	ErrProvider           = errors.New("identity: provider error")

	ErrNotFound      = errors.New("identity: not found")
	ErrAlreadyExists = errors.New("identity: already exists")
)

// MinPasswordLength is the shortest password CreateUser accepts.
const MinPasswordLength = 6

type User struct {
	ID              string
	Email           string
	EmailVerified   bool
	DisplayName     string
	PhotoURL        string
	Provider        Kind
	ProviderSubject string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Purpose of an action token.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// ActionToken backs an emailed link. Only the SHA-256 fingerprint of the
// token is stored.
type ActionToken struct {
	ID        string
	UserID    string
	Purpose   Purpose
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t ActionToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// ProfileUpdate changes the display fields kept on the identity itself.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// Provider signs users in and manages the current identity. Implementations
// hold at most one current user.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (User, error)
	SignInWithOAuth(ctx context.Context, p OAuthProvider, credential string) (User, error)
	SignInWithCustomToken(ctx context.Context, token string) (User, error)
	CurrentUser(ctx context.Context) (User, error)

	CreateUser(ctx context.Context, email, password string) (User, error)
	UpdateProfile(ctx context.Context, upd ProfileUpdate) (User, error)

	SendEmailVerification(ctx context.Context) error
	ConfirmEmailVerification(ctx context.Context, token string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	Reauthenticate(ctx context.Context, password string) error
	UpdateEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password string) error
	DeleteUser(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
