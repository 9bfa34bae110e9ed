package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/jackc/pgx/v5"
)

const identityColumns = `id, email, email_verified, display_name, photo_url, provider,
	provider_subject, password_hash, created_at, updated_at`

type identitiesRepo struct {
	q querier
}

func scanIdentity(row pgx.Row) (domain.Identity, error) {
	var (
		i     domain.Identity
		email *string
	)
	err := row.Scan(
		&i.ID,
		&email,
		&i.EmailVerified,
		&i.DisplayName,
		&i.PhotoURL,
		&i.Provider,
		&i.ProviderSubject,
		&i.PasswordHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.Email = derefString(email)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return i, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	return scanIdentity(r.q.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	if email == "" {
		return domain.Identity{}, store.ErrNotFound
	}
	return scanIdentity(r.q.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email))
}

func (r *identitiesRepo) GetIdentityByProvider(ctx context.Context, provider, subject string) (domain.Identity, error) {
	return scanIdentity(r.q.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_subject = $2`,
		provider, subject))
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO identities (`+identityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		i.ID, nullableString(i.Email), i.EmailVerified, i.DisplayName, i.PhotoURL,
		i.Provider, i.ProviderSubject, i.PasswordHash, i.CreatedAt.UTC(), i.UpdatedAt.UTC())
	return mapConflict(err)
}

func (r *identitiesRepo) UpdateIdentity(ctx context.Context, i domain.Identity) error {
	updated := i.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE identities
		 SET email = $1, email_verified = $2, display_name = $3, photo_url = $4,
		     password_hash = $5, updated_at = $6
		 WHERE id = $7`,
		nullableString(i.Email), i.EmailVerified, i.DisplayName, i.PhotoURL,
		i.PasswordHash, updated.UTC(), i.ID)
	if err != nil {
		return mapConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}
