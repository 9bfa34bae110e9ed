package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
)

// IdentityStoreAdapter adapts Store to identity.Store so identity.Local can
// run against the broker database. Store errors are translated to the
// identity package's sentinels.
type IdentityStoreAdapter struct {
	store Store
}

var _ identity.Store = (*IdentityStoreAdapter)(nil)

func NewIdentityStoreAdapter(store Store) *IdentityStoreAdapter {
	return &IdentityStoreAdapter{store: store}
}

func (a *IdentityStoreAdapter) CreateUser(ctx context.Context, u identity.User) error {
	return identityErr(a.store.Identities().CreateIdentity(ctx, userToDomain(u)))
}

func (a *IdentityStoreAdapter) GetUser(ctx context.Context, id string) (identity.User, error) {
	row, err := a.store.Identities().GetIdentityByID(ctx, id)
	if err != nil {
		return identity.User{}, identityErr(err)
	}
	return domainToUser(row), nil
}

func (a *IdentityStoreAdapter) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	row, err := a.store.Identities().GetIdentityByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return identity.User{}, identityErr(err)
	}
	return domainToUser(row), nil
}

func (a *IdentityStoreAdapter) GetUserByProvider(ctx context.Context, kind identity.Kind, subject string) (identity.User, error) {
	row, err := a.store.Identities().GetIdentityByProvider(ctx, string(kind), subject)
	if err != nil {
		return identity.User{}, identityErr(err)
	}
	return domainToUser(row), nil
}

func (a *IdentityStoreAdapter) UpdateUser(ctx context.Context, u identity.User) error {
	return identityErr(a.store.Identities().UpdateIdentity(ctx, userToDomain(u)))
}

func (a *IdentityStoreAdapter) DeleteUser(ctx context.Context, id string) error {
	return identityErr(a.store.Identities().DeleteIdentity(ctx, id))
}

func (a *IdentityStoreAdapter) CreateActionToken(ctx context.Context, t identity.ActionToken) error {
	return identityErr(a.store.ActionTokens().CreateActionToken(ctx, domain.ActionToken{
		ID:        t.ID,
		UserID:    t.UserID,
		Purpose:   string(t.Purpose),
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		CreatedAt: t.CreatedAt,
	}))
}

func (a *IdentityStoreAdapter) GetActionTokenByHash(ctx context.Context, hash string) (identity.ActionToken, error) {
	row, err := a.store.ActionTokens().GetActionTokenByHash(ctx, hash)
	if err != nil {
		return identity.ActionToken{}, identityErr(err)
	}
	return identity.ActionToken{
		ID:        row.ID,
		UserID:    row.UserID,
		Purpose:   identity.Purpose(row.Purpose),
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (a *IdentityStoreAdapter) MarkActionTokenUsed(ctx context.Context, id string, at time.Time) error {
	return identityErr(a.store.ActionTokens().MarkActionTokenUsed(ctx, id, at))
}

func (a *IdentityStoreAdapter) DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error) {
	return a.store.ActionTokens().DeleteExpiredActionTokens(ctx, before)
}

func identityErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return identity.ErrNotFound
	case errors.Is(err, ErrAlreadyExists):
		return identity.ErrAlreadyExists
	default:
		return err
	}
}

func userToDomain(u identity.User) domain.Identity {
	return domain.Identity{
		ID:              u.ID,
		Email:           identity.NormalizeEmail(u.Email),
		EmailVerified:   u.EmailVerified,
		DisplayName:     u.DisplayName,
		PhotoURL:        u.PhotoURL,
		Provider:        string(u.Provider),
		ProviderSubject: u.ProviderSubject,
		PasswordHash:    u.PasswordHash,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func domainToUser(i domain.Identity) identity.User {
	return identity.User{
		ID:              i.ID,
		Email:           i.Email,
		EmailVerified:   i.EmailVerified,
		DisplayName:     i.DisplayName,
		PhotoURL:        i.PhotoURL,
		Provider:        identity.Kind(i.Provider),
		ProviderSubject: i.ProviderSubject,
		PasswordHash:    i.PasswordHash,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}
