package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite/gen"
)

type actionTokensRepo struct {
	q *gen.Queries
}

func (r *actionTokensRepo) CreateActionToken(ctx context.Context, t domain.ActionToken) error {
	var used sql.NullTime
	if t.UsedAt != nil {
		used = sql.NullTime{Time: t.UsedAt.UTC(), Valid: true}
	}
	err := r.q.CreateActionToken(ctx, gen.CreateActionTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		Purpose:   t.Purpose,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt.UTC(),
		UsedAt:    used,
		CreatedAt: t.CreatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *actionTokensRepo) GetActionTokenByHash(ctx context.Context, hash string) (domain.ActionToken, error) {
	row, err := r.q.GetActionTokenByHash(ctx, hash)
	if err != nil {
		return domain.ActionToken{}, mapNotFound(err)
	}
	return mapActionToken(row), nil
}

// MarkActionTokenUsed reports ErrNotFound when the token is unknown or was
// already used.
func (r *actionTokensRepo) MarkActionTokenUsed(ctx context.Context, id string, at time.Time) error {
	n, err := r.q.MarkActionTokenUsed(ctx, gen.MarkActionTokenUsedParams{
		UsedAt: sql.NullTime{Time: at.UTC(), Valid: true},
		ID:     id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *actionTokensRepo) DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error) {
	return r.q.DeleteExpiredActionTokens(ctx, before.UTC())
}
