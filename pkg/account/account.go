// Package account holds the per-identity documents the storefront keeps
// next to an identity: the public Profile and the private Settings.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultDisplayName = "Користувач"
	DefaultAvatar      = "/default-avatar.png"
	DefaultLanguage    = "uk"
)

var (
	ErrNotFound        = errors.New("account: not found")
	ErrInvalidLanguage = errors.New("account: invalid language tag")
)

type Profile struct {
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar"`
	Email       string    `json:"email,omitempty"`
	SteamID     string    `json:"steamId,omitempty"`
	ProfileURL  string    `json:"profileUrl,omitempty"`
	CountryCode string    `json:"countryCode,omitempty"`
	StateCode   string    `json:"stateCode,omitempty"`
	CityID      *int      `json:"cityId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Settings are private to the owner. TwoFactorSecret is empty when no
// second factor has been issued.
type Settings struct {
	Language         string    `json:"language"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	TwoFactorSecret  string    `json:"twoFactorSecret,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasSecret reports whether a second-factor secret is stored.
func (s Settings) HasSecret() bool { return s.TwoFactorSecret != "" }

// DefaultSettings returns the settings created on first sign in.
func DefaultSettings() Settings {
	return Settings{Language: DefaultLanguage}
}

// NewProfile builds the profile created on first sign in. The display
// name falls back to the email local part, then to DefaultDisplayName.
func NewProfile(displayName, email, avatar string) Profile {
	name := strings.TrimSpace(displayName)
	if name == "" {
		local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
		name = local
	}
	if name == "" {
		name = DefaultDisplayName
	}
	if avatar == "" {
		avatar = DefaultAvatar
	}
	return Profile{
		DisplayName: name,
		Avatar:      avatar,
		Email:       strings.TrimSpace(email),
	}
}

// ProfilePatch is a partial update. Nil fields are left untouched; a
// pointer to "" clears an optional field.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Email       *string `json:"email,omitempty"`
	SteamID     *string `json:"steamId,omitempty"`
	ProfileURL  *string `json:"profileUrl,omitempty"`
	CountryCode *string `json:"countryCode,omitempty"`
	StateCode   *string `json:"stateCode,omitempty"`
	CityID      *int    `json:"cityId,omitempty"`
	ClearCityID bool    `json:"-"`
}

func (p ProfilePatch) Apply(dst Profile) Profile {
	set := func(field *string, v *string) {
		if v != nil {
			*field = strings.TrimSpace(*v)
		}
	}
	set(&dst.DisplayName, p.DisplayName)
	set(&dst.Avatar, p.Avatar)
	set(&dst.Email, p.Email)
	set(&dst.SteamID, p.SteamID)
	set(&dst.ProfileURL, p.ProfileURL)
	set(&dst.CountryCode, p.CountryCode)
	set(&dst.StateCode, p.StateCode)

	switch {
	case p.ClearCityID:
		dst.CityID = nil
	case p.CityID != nil:
		id := *p.CityID
		dst.CityID = &id
	}
	return dst
}

// Validate rejects patches that would leave a profile without a name.
func (p ProfilePatch) Validate() error {
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return errors.New("account: display name must not be empty")
	}
	return nil
}

// SettingsPatch is a partial update of Settings. A non-nil
// TwoFactorSecret pointing at "" removes the stored secret.
type SettingsPatch struct {
	Language         *string `json:"language,omitempty"`
	TwoFactorEnabled *bool   `json:"twoFactorEnabled,omitempty"`
	TwoFactorSecret  *string `json:"twoFactorSecret,omitempty"`
}

func (p SettingsPatch) Apply(dst Settings) Settings {
	if p.Language != nil {
		dst.Language = *p.Language
	}
	if p.TwoFactorEnabled != nil {
		dst.TwoFactorEnabled = *p.TwoFactorEnabled
	}
	if p.TwoFactorSecret != nil {
		dst.TwoFactorSecret = *p.TwoFactorSecret
	}
	return dst
}

// EnableSecondFactor stores secret and turns the factor on.
func EnableSecondFactor(secret string) SettingsPatch {
	on := true
	return SettingsPatch{TwoFactorEnabled: &on, TwoFactorSecret: &secret}
}

// DisableSecondFactor turns the factor off and forgets the secret.
func DisableSecondFactor() SettingsPatch {
	off, none := false, ""
	return SettingsPatch{TwoFactorEnabled: &off, TwoFactorSecret: &none}
}

// NormalizeLanguage parses a BCP 47 tag and returns its canonical form.
func NormalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", ErrInvalidLanguage
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, tag)
	}
	return t.String(), nil
}

// DocumentStore persists profiles and settings keyed by identity id.
// Getters return ErrNotFound for absent documents.
type DocumentStore interface {
	GetProfile(ctx context.Context, uid string) (Profile, error)
	PutProfile(ctx context.Context, uid string, p Profile) error
	MergeProfile(ctx context.Context, uid string, patch ProfilePatch) (Profile, error)
	DeleteProfile(ctx context.Context, uid string) error

	GetSettings(ctx context.Context, uid string) (Settings, error)
	PutSettings(ctx context.Context, uid string, s Settings) error
	MergeSettings(ctx context.Context, uid string, patch SettingsPatch) (Settings, error)
	DeleteSettings(ctx context.Context, uid string) error
}
