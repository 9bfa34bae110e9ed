package postgres

import (
	"context"

	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/jackc/pgx/v5"
)

// txStore keeps the context the transaction was started with; Commit and
// Rollback run under it.
type txStore struct {
	tx  pgx.Tx
	ctx context.Context
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.ErrTxClosed
}

func (t *txStore) Identities() store.Identities     { return &identitiesRepo{q: t.tx} }
func (t *txStore) Profiles() store.Profiles         { return &profilesRepo{q: t.tx} }
func (t *txStore) Settings() store.Settings         { return &settingsRepo{q: t.tx} }
func (t *txStore) ActionTokens() store.ActionTokens { return &actionTokensRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil }
