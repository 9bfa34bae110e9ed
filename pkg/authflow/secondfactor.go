package authflow

import (
	"context"
	"strings"
	"unicode"

	"github.com/aussiebroadwan/gamevault/pkg/account"
)

// Enrollment is shown to the user when a second factor is turned on.
type Enrollment struct {
	Secret     string
	OTPAuthURL string
	QRCodeURL  string
}

// EnableSecondFactor issues a fresh secret and stores it in the user's
// settings. The current sign-in is not marked verified, so the session
// waits for a code before gated operations run again.
func (m *Machine) EnableSecondFactor(ctx context.Context) (Enrollment, error) {
	s, err := m.requireUser(true)
	if err != nil {
		return Enrollment{}, err
	}
	if m.deps.SecondFactor == nil {
		return Enrollment{}, &Error{Kind: KindProviderError, Message: "second factor not configured"}
	}

	enr, err := m.deps.SecondFactor.IssueSecondFactor(ctx, s.UserID())
	if err != nil {
		return Enrollment{}, brokerErr(err)
	}

	settings, err := m.deps.Documents.MergeSettings(ctx, s.UserID(), account.EnableSecondFactor(enr.Secret))
	if err != nil {
		return Enrollment{}, documentErr("merge settings", err)
	}
	m.mutate(s.UserID(), func(s *Session) {
		s.Settings = &settings
		s.SettingsLoaded = true
		s.SecondFactorVerified = false
		s.State = AwaitingSecondFactor
	})

	m.log.InfoContext(ctx, "second factor enabled", "uid", s.UserID())
	return Enrollment{Secret: enr.Secret, OTPAuthURL: enr.OTPAuthURL, QRCodeURL: enr.QRCodeURL}, nil
}

// VerifySecondFactor checks a code against the stored secret. Whitespace
// is ignored; anything else that is not exactly the configured number of
// digits is rejected without a network call.
func (m *Machine) VerifySecondFactor(ctx context.Context, code string) error {
	s, err := m.requireUser(false)
	if err != nil {
		return err
	}
	code = stripSpace(code)
	if !m.code.MatchString(code) {
		return &Error{Kind: KindInvalidCode}
	}
	if m.deps.SecondFactor == nil {
		return &Error{Kind: KindProviderError, Message: "second factor not configured"}
	}

	if err := m.deps.SecondFactor.VerifySecondFactor(ctx, s.UserID(), code); err != nil {
		return brokerErr(err)
	}

	m.mutate(s.UserID(), func(s *Session) {
		s.SecondFactorVerified = true
		if s.State == AwaitingSecondFactor {
			s.State = Authenticated
		}
	})
	return nil
}

// DisableSecondFactor turns the factor off and forgets the secret.
func (m *Machine) DisableSecondFactor(ctx context.Context) error {
	s, err := m.requireUser(true)
	if err != nil {
		return err
	}

	settings, err := m.deps.Documents.MergeSettings(ctx, s.UserID(), account.DisableSecondFactor())
	if err != nil {
		return documentErr("merge settings", err)
	}
	m.mutate(s.UserID(), func(s *Session) {
		s.Settings = &settings
		s.SecondFactorVerified = false
	})

	m.log.InfoContext(ctx, "second factor disabled", "uid", s.UserID())
	return nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
