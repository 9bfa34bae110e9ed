package gen

import (
	"context"
	"database/sql"
	"time"
)

const createActionToken = `-- name: CreateActionToken :exec
INSERT INTO action_tokens (id, user_id, purpose, token_hash, expires_at, used_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateActionTokenParams struct {
	ID        string
	UserID    string
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

func (q *Queries) CreateActionToken(ctx context.Context, arg CreateActionTokenParams) error {
	_, err := q.db.ExecContext(ctx, createActionToken,
		arg.ID,
		arg.UserID,
		arg.Purpose,
		arg.TokenHash,
		arg.ExpiresAt,
		arg.UsedAt,
		arg.CreatedAt,
	)
	return err
}

const getActionTokenByHash = `-- name: GetActionTokenByHash :one
SELECT id, user_id, purpose, token_hash, expires_at, used_at, created_at
FROM action_tokens WHERE token_hash = ?
`

func (q *Queries) GetActionTokenByHash(ctx context.Context, tokenHash string) (ActionToken, error) {
	row := q.db.QueryRowContext(ctx, getActionTokenByHash, tokenHash)
	var i ActionToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Purpose,
		&i.TokenHash,
		&i.ExpiresAt,
		&i.UsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const markActionTokenUsed = `-- name: MarkActionTokenUsed :execrows
UPDATE action_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL
`

type MarkActionTokenUsedParams struct {
	UsedAt sql.NullTime
	ID     string
}

func (q *Queries) MarkActionTokenUsed(ctx context.Context, arg MarkActionTokenUsedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markActionTokenUsed, arg.UsedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredActionTokens = `-- name: DeleteExpiredActionTokens :execrows
DELETE FROM action_tokens WHERE expires_at < ? OR used_at IS NOT NULL
`

func (q *Queries) DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredActionTokens, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
