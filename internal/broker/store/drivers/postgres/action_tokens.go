package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
)

type actionTokensRepo struct {
	q querier
}

func (r *actionTokensRepo) CreateActionToken(ctx context.Context, t domain.ActionToken) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO action_tokens (id, user_id, purpose, token_hash, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Purpose, t.TokenHash, t.ExpiresAt.UTC(), t.UsedAt, t.CreatedAt.UTC())
	return mapConflict(err)
}

func (r *actionTokensRepo) GetActionTokenByHash(ctx context.Context, hash string) (domain.ActionToken, error) {
	var t domain.ActionToken
	err := r.q.QueryRow(ctx,
		`SELECT id, user_id, purpose, token_hash, expires_at, used_at, created_at
		 FROM action_tokens WHERE token_hash = $1`, hash).Scan(
		&t.ID,
		&t.UserID,
		&t.Purpose,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.ActionToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	if t.UsedAt != nil {
		used := t.UsedAt.UTC()
		t.UsedAt = &used
	}
	return t, nil
}

func (r *actionTokensRepo) MarkActionTokenUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE action_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`, at.UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *actionTokensRepo) DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM action_tokens WHERE expires_at < $1 OR used_at IS NOT NULL`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
