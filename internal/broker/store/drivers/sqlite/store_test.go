package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/domain"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite"
	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/idx"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedIdentity(t *testing.T, s store.Store, email string) domain.Identity {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	ident := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		DisplayName:  "Ada",
		Provider:     "password",
		PasswordHash: "argon2:dummy",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Identities().CreateIdentity(context.Background(), ident))
	return ident
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestIdentities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create and look up", func(t *testing.T) {
		s := newTestStore(t)
		ident := seedIdentity(t, s, "ada@example.com")

		byID, err := s.Identities().GetIdentityByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Equal(t, ident.Email, byID.Email)
		require.Equal(t, ident.PasswordHash, byID.PasswordHash)

		byEmail, err := s.Identities().GetIdentityByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.Equal(t, ident.ID, byEmail.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		s := newTestStore(t)
		seedIdentity(t, s, "ada@example.com")

		err := s.Identities().CreateIdentity(ctx, domain.Identity{
			ID:       idx.New().String(),
			Email:    "ada@example.com",
			Provider: "password",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("identities without email do not conflict", func(t *testing.T) {
		s := newTestStore(t)
		for _, subject := range []string{"76561197960287930", "76561197960287931"} {
			require.NoError(t, s.Identities().CreateIdentity(ctx, domain.Identity{
				ID:              subject,
				Provider:        "steam",
				ProviderSubject: subject,
			}))
		}

		got, err := s.Identities().GetIdentityByProvider(ctx, "steam", "76561197960287931")
		require.NoError(t, err)
		require.Equal(t, "76561197960287931", got.ID)
		require.Empty(t, got.Email)
	})

	t.Run("update missing identity", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Identities().UpdateIdentity(ctx, domain.Identity{ID: "missing"})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown lookups", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Identities().GetIdentityByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Identities().GetIdentityByEmail(ctx, "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestActionTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	ident := seedIdentity(t, s, "ada@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	live := domain.ActionToken{
		ID:        idx.New().String(),
		UserID:    ident.ID,
		Purpose:   "verify_email",
		TokenHash: "live-hash",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	expired := live
	expired.ID = idx.New().String()
	expired.TokenHash = "expired-hash"
	expired.ExpiresAt = now.Add(-time.Hour)

	require.NoError(t, s.ActionTokens().CreateActionToken(ctx, live))
	require.NoError(t, s.ActionTokens().CreateActionToken(ctx, expired))
	require.ErrorIs(t, s.ActionTokens().CreateActionToken(ctx, live), store.ErrAlreadyExists)

	got, err := s.ActionTokens().GetActionTokenByHash(ctx, "live-hash")
	require.NoError(t, err)
	require.Nil(t, got.UsedAt)

	require.NoError(t, s.ActionTokens().MarkActionTokenUsed(ctx, live.ID, now))
	require.ErrorIs(t, s.ActionTokens().MarkActionTokenUsed(ctx, live.ID, now), store.ErrNotFound)

	got, err = s.ActionTokens().GetActionTokenByHash(ctx, "live-hash")
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)

	n, err := s.ActionTokens().DeleteExpiredActionTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n) // the expired token and the used one

	_, err = s.ActionTokens().GetActionTokenByHash(ctx, "expired-hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteIdentityCascadesTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	ident := seedIdentity(t, s, "ada@example.com")

	now := time.Now().UTC()
	require.NoError(t, s.ActionTokens().CreateActionToken(ctx, domain.ActionToken{
		ID:        idx.New().String(),
		UserID:    ident.ID,
		Purpose:   "reset_password",
		TokenHash: "reset-hash",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}))

	require.NoError(t, s.Identities().DeleteIdentity(ctx, ident.ID))
	_, err := s.ActionTokens().GetActionTokenByHash(ctx, "reset-hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Profiles().UpsertProfile(ctx, domain.Profile{
			UserID:      "u1",
			DisplayName: "Ada",
			Avatar:      account.DefaultAvatar,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}))
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Profiles().GetProfile(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestNestedTxRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		return err
	})
	require.Error(t, err)
}

func TestDocumentStoreAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs := store.NewDocumentStoreAdapter(newTestStore(t))

	_, err := docs.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, account.ErrNotFound)
	_, err = docs.GetSettings(ctx, "u1")
	require.ErrorIs(t, err, account.ErrNotFound)

	require.NoError(t, docs.PutProfile(ctx, "u1", account.NewProfile("Ada", "ada@example.com", "")))
	require.NoError(t, docs.PutSettings(ctx, "u1", account.DefaultSettings()))

	city := 42
	country := "UA"
	profile, err := docs.MergeProfile(ctx, "u1", account.ProfilePatch{CountryCode: &country, CityID: &city})
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.DisplayName)
	require.Equal(t, "UA", profile.CountryCode)

	stored, err := docs.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, stored.CityID)
	require.Equal(t, 42, *stored.CityID)
	require.Equal(t, account.DefaultAvatar, stored.Avatar)

	t.Run("second factor round trip", func(t *testing.T) {
		settings, err := docs.MergeSettings(ctx, "u1", account.EnableSecondFactor("JBSWY3DPEHPK3PXP"))
		require.NoError(t, err)
		require.True(t, settings.TwoFactorEnabled)

		stored, err := docs.GetSettings(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, "JBSWY3DPEHPK3PXP", stored.TwoFactorSecret)
		require.Equal(t, account.DefaultLanguage, stored.Language)

		_, err = docs.MergeSettings(ctx, "u1", account.DisableSecondFactor())
		require.NoError(t, err)

		stored, err = docs.GetSettings(ctx, "u1")
		require.NoError(t, err)
		require.False(t, stored.TwoFactorEnabled)
		require.False(t, stored.HasSecret())
	})

	t.Run("merge creates missing settings from defaults", func(t *testing.T) {
		lang := "en"
		settings, err := docs.MergeSettings(ctx, "u2", account.SettingsPatch{Language: &lang})
		require.NoError(t, err)
		require.Equal(t, "en", settings.Language)
		require.False(t, settings.TwoFactorEnabled)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, docs.DeleteProfile(ctx, "u1"))
		require.NoError(t, docs.DeleteSettings(ctx, "u1"))
		_, err := docs.GetProfile(ctx, "u1")
		require.ErrorIs(t, err, account.ErrNotFound)
	})
}

func TestIdentityStoreAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ids := store.NewIdentityStoreAdapter(newTestStore(t))

	now := time.Now().UTC().Truncate(time.Second)
	user := identity.User{
		ID:        idx.New().String(),
		Email:     "Ada@Example.com",
		Provider:  identity.KindPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, ids.CreateUser(ctx, user))

	dup := user
	dup.ID = idx.New().String()
	require.ErrorIs(t, ids.CreateUser(ctx, dup), identity.ErrAlreadyExists)

	got, err := ids.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "ada@example.com", got.Email)

	_, err = ids.GetUser(ctx, "missing")
	require.ErrorIs(t, err, identity.ErrNotFound)

	token := identity.ActionToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Purpose:   identity.PurposeVerifyEmail,
		TokenHash: "hash",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, ids.CreateActionToken(ctx, token))

	stored, err := ids.GetActionTokenByHash(ctx, "hash")
	require.NoError(t, err)
	require.True(t, stored.Usable(now))

	require.NoError(t, ids.MarkActionTokenUsed(ctx, token.ID, now))
	require.ErrorIs(t, ids.MarkActionTokenUsed(ctx, token.ID, now), identity.ErrNotFound)
}
