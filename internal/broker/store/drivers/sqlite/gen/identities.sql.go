package gen

import (
	"context"
	"database/sql"
	"time"
)

const identityColumns = `id, email, email_verified, display_name, photo_url, provider, provider_subject, password_hash, created_at, updated_at`

func scanIdentity(row interface{ Scan(...interface{}) error }) (Identity, error) {
	var i Identity
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.EmailVerified,
		&i.DisplayName,
		&i.PhotoUrl,
		&i.Provider,
		&i.ProviderSubject,
		&i.PasswordHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getIdentityByID = `-- name: GetIdentityByID :one
SELECT ` + identityColumns + ` FROM identities WHERE id = ?
`

func (q *Queries) GetIdentityByID(ctx context.Context, id string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByID, id))
}

const getIdentityByEmail = `-- name: GetIdentityByEmail :one
SELECT ` + identityColumns + ` FROM identities WHERE email = ?
`

func (q *Queries) GetIdentityByEmail(ctx context.Context, email sql.NullString) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByEmail, email))
}

const getIdentityByProvider = `-- name: GetIdentityByProvider :one
SELECT ` + identityColumns + ` FROM identities WHERE provider = ? AND provider_subject = ?
`

type GetIdentityByProviderParams struct {
	Provider        string
	ProviderSubject string
}

func (q *Queries) GetIdentityByProvider(ctx context.Context, arg GetIdentityByProviderParams) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByProvider, arg.Provider, arg.ProviderSubject))
}

const createIdentity = `-- name: CreateIdentity :exec
INSERT INTO identities (
    id, email, email_verified, display_name, photo_url, provider, provider_subject, password_hash, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateIdentityParams struct {
	ID              string
	Email           sql.NullString
	EmailVerified   bool
	DisplayName     string
	PhotoUrl        string
	Provider        string
	ProviderSubject string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreateIdentity(ctx context.Context, arg CreateIdentityParams) error {
	_, err := q.db.ExecContext(ctx, createIdentity,
		arg.ID,
		arg.Email,
		arg.EmailVerified,
		arg.DisplayName,
		arg.PhotoUrl,
		arg.Provider,
		arg.ProviderSubject,
		arg.PasswordHash,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateIdentity = `-- name: UpdateIdentity :execrows
UPDATE identities
SET email = ?, email_verified = ?, display_name = ?, photo_url = ?, password_hash = ?, updated_at = ?
WHERE id = ?
`

type UpdateIdentityParams struct {
	Email         sql.NullString
	EmailVerified bool
	DisplayName   string
	PhotoUrl      string
	PasswordHash  string
	UpdatedAt     time.Time
	ID            string
}

func (q *Queries) UpdateIdentity(ctx context.Context, arg UpdateIdentityParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateIdentity,
		arg.Email,
		arg.EmailVerified,
		arg.DisplayName,
		arg.PhotoUrl,
		arg.PasswordHash,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteIdentity = `-- name: DeleteIdentity :exec
DELETE FROM identities WHERE id = ?
`

func (q *Queries) DeleteIdentity(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteIdentity, id)
	return err
}
