package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/totpx"
)

// SettingsReader loads the settings document of a user. It returns
// account.ErrNotFound when the user has none.
type SettingsReader interface {
	GetSettings(ctx context.Context, uid string) (account.Settings, error)
}

// TwoFactorService issues TOTP secrets and checks codes against the secret
// stored in a user's settings.
type TwoFactorService struct {
	Settings SettingsReader
	TOTP     *totpx.Service
	Logger   *slog.Logger
}

// Generate returns a fresh secret for uid. Nothing is stored; the client
// saves the secret into its settings once the user confirms.
func (s *TwoFactorService) Generate(ctx context.Context, uid string) (totpx.Enrollment, error) {
	enrollment, err := s.TOTP.Issue(uid)
	if err != nil {
		return totpx.Enrollment{}, fmt.Errorf("issue secret: %w", err)
	}
	return enrollment, nil
}

// Verify checks code for uid. The code is validated even when there is no
// secret, so both outcomes take the same time.
func (s *TwoFactorService) Verify(ctx context.Context, uid, code string) error {
	settings, err := s.Settings.GetSettings(ctx, uid)
	switch {
	case errors.Is(err, account.ErrNotFound):
		s.TOTP.Validate("", code)
		SecondFactorVerifications.WithLabelValues("not_enabled").Inc()
		return ErrSecondFactorNotEnabled
	case err != nil:
		SecondFactorVerifications.WithLabelValues("error").Inc()
		return fmt.Errorf("load settings: %w", err)
	}

	if !settings.HasSecret() {
		s.TOTP.Validate("", code)
		SecondFactorVerifications.WithLabelValues("not_enabled").Inc()
		return ErrSecondFactorNotEnabled
	}

	if !s.TOTP.Validate(settings.TwoFactorSecret, code) {
		SecondFactorVerifications.WithLabelValues("invalid").Inc()
		return ErrInvalidSecondFactor
	}

	SecondFactorVerifications.WithLabelValues("ok").Inc()
	return nil
}
