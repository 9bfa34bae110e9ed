package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Sub-repositories are reached through methods so a
// Tx-scoped store cannot start a nested transaction.
type Store interface {
	Identities() Identities
	Profiles() Profiles
	Settings() Settings
	ActionTokens() ActionTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// GetIdentityByEmail matches the normalized (lower-cased) address.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	GetIdentityByProvider(ctx context.Context, provider, subject string) (domain.Identity, error)

	// CreateIdentity returns ErrAlreadyExists on an id, email or
	// provider subject conflict.
	CreateIdentity(ctx context.Context, i domain.Identity) error

	// UpdateIdentity rewrites every mutable column and bumps updated_at.
	UpdateIdentity(ctx context.Context, i domain.Identity) error

	DeleteIdentity(ctx context.Context, id string) error
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)

	// UpsertProfile inserts or replaces the profile for p.UserID.
	UpsertProfile(ctx context.Context, p domain.Profile) error

	DeleteProfile(ctx context.Context, userID string) error
}

type Settings interface {
	GetSettings(ctx context.Context, userID string) (domain.Settings, error)
	UpsertSettings(ctx context.Context, s domain.Settings) error
	DeleteSettings(ctx context.Context, userID string) error
}

type ActionTokens interface {
	CreateActionToken(ctx context.Context, t domain.ActionToken) error

	// GetActionTokenByHash looks a token up by its SHA-256 fingerprint.
	GetActionTokenByHash(ctx context.Context, hash string) (domain.ActionToken, error)

	MarkActionTokenUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredActionTokens is housekeeping. It returns the number of
	// rows removed.
	DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error)
}
