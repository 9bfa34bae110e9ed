package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aussiebroadwan/gamevault/pkg/cryptox"
	"github.com/aussiebroadwan/gamevault/pkg/idx"
)

func (l *Local) SendEmailVerification(ctx context.Context) error {
	u, err := l.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if u.Email == "" {
		return fmt.Errorf("%w: identity has no email", ErrInvalidEmail)
	}
	return l.sendActionLink(ctx, u, PurposeVerifyEmail)
}

// SendPasswordReset mails a reset link. Unknown addresses succeed without
// sending anything.
func (l *Local) SendPasswordReset(ctx context.Context, email string) error {
	u, err := l.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: lookup user: %w", ErrProvider, err)
	}
	return l.sendActionLink(ctx, u, PurposeResetPassword)
}

func (l *Local) ConfirmEmailVerification(ctx context.Context, token string) error {
	t, err := l.consume(ctx, token, PurposeVerifyEmail)
	if err != nil {
		return err
	}

	u, err := l.store.GetUser(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	u.EmailVerified = true
	return l.save(ctx, u)
}

func (l *Local) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	t, err := l.consume(ctx, token, PurposeResetPassword)
	if err != nil {
		return err
	}

	u, err := l.store.GetUser(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	hash, err := l.cfg.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %w", ErrProvider, err)
	}
	u.PasswordHash = hash
	// Receiving the link proves control of the address.
	u.EmailVerified = true
	return l.save(ctx, u)
}

func (l *Local) sendActionLink(ctx context.Context, u User, purpose Purpose) error {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProvider, err)
	}

	ttl, base, subject := VerifyEmailTTL, l.cfg.VerifyEmailURL, "Confirm your GameVault email"
	if purpose == PurposeResetPassword {
		ttl, base, subject = ResetPasswordTTL, l.cfg.ResetPasswordURL, "Reset your GameVault password"
	}

	now := l.cfg.Now()
	t := ActionToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		Purpose:   purpose,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := l.store.CreateActionToken(ctx, t); err != nil {
		return fmt.Errorf("%w: store action token: %w", ErrProvider, err)
	}

	msg := Message{
		To:      u.Email,
		Subject: subject,
		Body:    "Open this link to continue:\n\n" + actionLink(base, raw) + "\n\nThe link expires in " + ttl.String() + ".\n",
	}
	if err := l.cfg.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send email: %w", ErrProvider, err)
	}

	l.log.Info("action link sent", "purpose", purpose, "user_id", u.ID)
	return nil
}

func actionLink(base, token string) string {
	if base == "" {
		return token
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// consume validates and marks a single-use action token.
func (l *Local) consume(ctx context.Context, raw string, purpose Purpose) (ActionToken, error) {
	if raw == "" {
		return ActionToken{}, ErrInvalidToken
	}

	t, err := l.store.GetActionTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if errors.Is(err, ErrNotFound) {
		return ActionToken{}, ErrInvalidToken
	}
	if err != nil {
		return ActionToken{}, fmt.Errorf("%w: load action token: %w", ErrProvider, err)
	}

	now := l.cfg.Now()
	if t.Purpose != purpose || !t.Usable(now) {
		return ActionToken{}, ErrInvalidToken
	}
	if err := l.store.MarkActionTokenUsed(ctx, t.ID, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ActionToken{}, ErrInvalidToken
		}
		return ActionToken{}, fmt.Errorf("%w: mark action token: %w", ErrProvider, err)
	}
	return t, nil
}
