package authflow

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
)

// Input codes reported by ValidateRegistration and the update operations.
const (
	InputNameRequired      = "name_required"
	InputInvalidEmail      = "invalid_email"
	InputPasswordTooShort  = "password_too_short"
	InputPasswordsMismatch = "passwords_mismatch"
	InputInvalidLanguage   = "invalid_language"
	InputInvalidProfile    = "invalid_profile"
)

// ValidateRegistration runs the form checks in the order the fields appear.
func ValidateRegistration(name, email, password, confirm string) error {
	if strings.TrimSpace(name) == "" {
		return invalidInput(InputNameRequired, "name is required")
	}
	if _, err := identity.ValidateEmail(email); err != nil {
		return invalidInput(InputInvalidEmail, "email is not valid")
	}
	if err := identity.ValidatePassword(password); err != nil {
		return invalidInput(InputPasswordTooShort, "password is too short")
	}
	if password != confirm {
		return invalidInput(InputPasswordsMismatch, "passwords do not match")
	}
	return nil
}

// Register creates a password account, sends the verification email and
// seeds its documents. The user is signed out afterwards and must verify
// before signing in. Registering while a session exists or a sign-in is
// running is refused.
func (m *Machine) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInput(InputNameRequired, "name is required")
	}
	if err := m.beginRegistration(); err != nil {
		return err
	}
	defer m.reset()

	u, err := m.deps.Provider.CreateUser(ctx, email, password)
	if err != nil {
		return newError(KindRegistrationError, err)
	}

	// The provider holds the new user as current until signed out.
	defer func() {
		if err := m.deps.Provider.SignOut(ctx); err != nil {
			m.log.WarnContext(ctx, "sign out after registration failed", "uid", u.ID, "err", err)
		}
	}()

	if _, err := m.deps.Provider.UpdateProfile(ctx, identity.ProfileUpdate{DisplayName: &name}); err != nil {
		return newError(KindRegistrationError, err)
	}
	if err := m.deps.Provider.SendEmailVerification(ctx); err != nil {
		return newError(KindRegistrationError, err)
	}

	now := m.deps.Clock.Now().UTC()
	profile := account.Profile{
		DisplayName: name,
		Avatar:      m.cfg.DefaultAvatar,
		Email:       u.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.deps.Documents.PutProfile(ctx, u.ID, profile); err != nil {
		return newError(KindRegistrationError, err)
	}
	if err := m.deps.Documents.PutSettings(ctx, u.ID, m.defaultSettings()); err != nil {
		return newError(KindRegistrationError, err)
	}

	m.log.InfoContext(ctx, "account registered", "uid", u.ID)
	return nil
}

// ResetPassword sends a reset link. Unknown addresses succeed silently.
func (m *Machine) ResetPassword(ctx context.Context, email string) error {
	if _, err := identity.ValidateEmail(email); err != nil {
		return invalidInput(InputInvalidEmail, "email is not valid")
	}
	if err := m.deps.Provider.SendPasswordReset(ctx, email); err != nil {
		return providerErr(err)
	}
	return nil
}

// SignOut ends the broker session and the provider session. Local state
// is cleared even when either call fails.
func (m *Machine) SignOut(ctx context.Context) error {
	var errs []error

	if m.deps.Broker != nil {
		if err := m.deps.Broker.Logout(ctx); err != nil {
			m.log.WarnContext(ctx, "broker logout failed", "err", err)
			errs = append(errs, &Error{Kind: KindServerSessionError, Code: CodeLogoutFailed, Err: err})
		}
	}
	if err := m.deps.Provider.SignOut(ctx); err != nil {
		errs = append(errs, newError(KindProviderError, err))
	}

	m.reset()
	return errors.Join(errs...)
}

func (m *Machine) reauthenticate(ctx context.Context, password string) error {
	if err := m.deps.Provider.Reauthenticate(ctx, password); err != nil {
		return reauthErr(err)
	}
	return nil
}

// UpdateName changes the display name on the identity and the profile.
func (m *Machine) UpdateName(ctx context.Context, password, name string) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInput(InputNameRequired, "name is required")
	}
	if err := m.reauthenticate(ctx, password); err != nil {
		return err
	}

	u, err := m.deps.Provider.UpdateProfile(ctx, identity.ProfileUpdate{DisplayName: &name})
	if err != nil {
		return providerErr(err)
	}
	profile, err := m.deps.Documents.MergeProfile(ctx, s.UserID(), account.ProfilePatch{DisplayName: &name})
	if err != nil {
		return documentErr("merge profile", err)
	}

	m.mutate(s.UserID(), func(s *Session) {
		s.User = &u
		s.Profile = &profile
	})
	return nil
}

// UpdateEmail changes the sign-in address. The new address starts out
// unverified.
func (m *Machine) UpdateEmail(ctx context.Context, password, email string) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}
	addr, err := identity.ValidateEmail(email)
	if err != nil {
		return invalidInput(InputInvalidEmail, "email is not valid")
	}
	if err := m.reauthenticate(ctx, password); err != nil {
		return err
	}

	if err := m.deps.Provider.UpdateEmail(ctx, addr); err != nil {
		return providerErr(err)
	}
	profile, err := m.deps.Documents.MergeProfile(ctx, s.UserID(), account.ProfilePatch{Email: &addr})
	if err != nil {
		return documentErr("merge profile", err)
	}

	m.mutate(s.UserID(), func(s *Session) {
		s.User.Email = addr
		s.User.EmailVerified = false
		s.Profile = &profile
	})
	return nil
}

func (m *Machine) UpdatePassword(ctx context.Context, current, next string) error {
	if _, err := m.requireUser(true); err != nil {
		return err
	}
	if err := identity.ValidatePassword(next); err != nil {
		return invalidInput(InputPasswordTooShort, "password is too short")
	}
	if err := m.reauthenticate(ctx, current); err != nil {
		return err
	}
	if err := m.deps.Provider.UpdatePassword(ctx, next); err != nil {
		return providerErr(err)
	}
	return nil
}

// SetLanguage stores the user's preferred language as a canonical BCP 47
// tag.
func (m *Machine) SetLanguage(ctx context.Context, tag string) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}
	lang, err := account.NormalizeLanguage(tag)
	if err != nil {
		return &Error{Kind: KindInvalidInput, Code: InputInvalidLanguage, Err: err}
	}

	settings, err := m.deps.Documents.MergeSettings(ctx, s.UserID(), account.SettingsPatch{Language: &lang})
	if err != nil {
		return documentErr("merge settings", err)
	}
	m.mutate(s.UserID(), func(s *Session) {
		s.Settings = &settings
	})
	return nil
}

// UpdateProfile applies a partial profile update. Display name and avatar
// are mirrored onto the identity.
func (m *Machine) UpdateProfile(ctx context.Context, patch account.ProfilePatch) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return &Error{Kind: KindInvalidInput, Code: InputInvalidProfile, Message: err.Error(), Err: err}
	}
	// Email changes need re-authentication and go through UpdateEmail.
	patch.Email = nil

	profile, err := m.deps.Documents.MergeProfile(ctx, s.UserID(), patch)
	if err != nil {
		return documentErr("merge profile", err)
	}

	user := s.User
	if patch.DisplayName != nil || patch.Avatar != nil {
		upd := identity.ProfileUpdate{DisplayName: patch.DisplayName, PhotoURL: patch.Avatar}
		u, err := m.deps.Provider.UpdateProfile(ctx, upd)
		if err != nil {
			m.log.WarnContext(ctx, "mirroring profile to identity failed", "uid", s.UserID(), "err", err)
		} else {
			user = &u
		}
	}

	m.mutate(s.UserID(), func(s *Session) {
		s.User = user
		s.Profile = &profile
	})
	return nil
}

// DeleteAccount removes the profile, the settings and finally the
// identity. A wrong password leaves everything in place.
func (m *Machine) DeleteAccount(ctx context.Context, password string) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}
	if err := m.reauthenticate(ctx, password); err != nil {
		return err
	}

	uid := s.UserID()
	if err := m.deps.Documents.DeleteProfile(ctx, uid); err != nil && !errors.Is(err, account.ErrNotFound) {
		return documentErr("delete profile", err)
	}
	if err := m.deps.Documents.DeleteSettings(ctx, uid); err != nil && !errors.Is(err, account.ErrNotFound) {
		return documentErr("delete settings", err)
	}
	if err := m.deps.Provider.DeleteUser(ctx); err != nil {
		return providerErr(err)
	}

	m.log.InfoContext(ctx, "account deleted", "uid", uid)
	m.reset()
	return nil
}
