package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite/gen"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Identities() store.Identities     { return &identitiesRepo{q: s.q} }
func (s *Store) Profiles() store.Profiles         { return &profilesRepo{q: s.q} }
func (s *Store) Settings() store.Settings         { return &settingsRepo{q: s.q} }
func (s *Store) ActionTokens() store.ActionTokens { return &actionTokensRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConflict turns constraint violations into store.ErrAlreadyExists.
func mapConflict(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapNullIntPtr(n sql.NullInt64) *int {
	if n.Valid {
		val := int(n.Int64)
		return &val
	}
	return nil
}

func mapOptionalInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func mapIdentity(row gen.Identity) domain.Identity {
	return domain.Identity{
		ID:              row.ID,
		Email:           mapNullString(row.Email),
		EmailVerified:   row.EmailVerified,
		DisplayName:     row.DisplayName,
		PhotoURL:        row.PhotoUrl,
		Provider:        row.Provider,
		ProviderSubject: row.ProviderSubject,
		PasswordHash:    row.PasswordHash,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func mapProfile(row gen.Profile) domain.Profile {
	return domain.Profile{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Avatar:      row.Avatar,
		Email:       row.Email,
		SteamID:     row.SteamID,
		ProfileURL:  row.ProfileUrl,
		CountryCode: row.CountryCode,
		StateCode:   row.StateCode,
		CityID:      mapNullIntPtr(row.CityID),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func mapSettings(row gen.Setting) domain.Settings {
	return domain.Settings{
		UserID:           row.UserID,
		Language:         row.Language,
		TwoFactorEnabled: row.TwoFactorEnabled,
		TwoFactorSecret:  mapNullStringPtr(row.TwoFactorSecret),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func mapActionToken(row gen.ActionToken) domain.ActionToken {
	t := domain.ActionToken{
		ID:        row.ID,
		UserID:    row.UserID,
		Purpose:   row.Purpose,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt.UTC(),
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.UsedAt.Valid {
		used := row.UsedAt.Time.UTC()
		t.UsedAt = &used
	}
	return t
}
