package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
)

// SessionService tears down server-side sessions.
type SessionService struct {
	Sessions sessions.Store
	Logger   *slog.Logger
}

// Logout unbinds the user from session id and then destroys the session.
// An unknown or empty id is already logged out.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	sess, err := s.Sessions.Get(ctx, id)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogoutFailed, err)
	}

	sess.UserID = ""
	if err := s.Sessions.Save(ctx, sess); err != nil && !errors.Is(err, sessions.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrLogoutFailed, err)
	}

	if err := s.Sessions.Destroy(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionDestroyFailed, err)
	}
	return nil
}
