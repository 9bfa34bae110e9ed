package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite/gen"
)

type identitiesRepo struct {
	q *gen.Queries
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByID(ctx, id)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	if email == "" {
		return domain.Identity{}, store.ErrNotFound
	}
	row, err := r.q.GetIdentityByEmail(ctx, mapStringNull(email))
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetIdentityByProvider(ctx context.Context, provider, subject string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByProvider(ctx, gen.GetIdentityByProviderParams{
		Provider:        provider,
		ProviderSubject: subject,
	})
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}
	err := r.q.CreateIdentity(ctx, gen.CreateIdentityParams{
		ID:              i.ID,
		Email:           mapStringNull(i.Email),
		EmailVerified:   i.EmailVerified,
		DisplayName:     i.DisplayName,
		PhotoUrl:        i.PhotoURL,
		Provider:        i.Provider,
		ProviderSubject: i.ProviderSubject,
		PasswordHash:    i.PasswordHash,
		CreatedAt:       i.CreatedAt.UTC(),
		UpdatedAt:       i.UpdatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *identitiesRepo) UpdateIdentity(ctx context.Context, i domain.Identity) error {
	updated := i.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	n, err := r.q.UpdateIdentity(ctx, gen.UpdateIdentityParams{
		Email:         mapStringNull(i.Email),
		EmailVerified: i.EmailVerified,
		DisplayName:   i.DisplayName,
		PhotoUrl:      i.PhotoURL,
		PasswordHash:  i.PasswordHash,
		UpdatedAt:     updated.UTC(),
		ID:            i.ID,
	})
	if err != nil {
		return mapConflict(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id string) error {
	return r.q.DeleteIdentity(ctx, id)
}
