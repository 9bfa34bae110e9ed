package authflow_test

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/authflow"
	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/cryptox"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/totpx"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	issuer   = "gamevault-broker"
	audience = "gamevault-identity"
	steamID  = "76561197960287930"
)

// fakeBroker verifies codes against the settings in the shared document
// store, the way the Session Broker does.
type fakeBroker struct {
	docs *account.MemoryStore
	totp *totpx.Service
	now  func() time.Time

	logoutErr   error
	logouts     atomic.Int32
	verifyCalls atomic.Int32
}

func (b *fakeBroker) IssueSecondFactor(_ context.Context, uid string) (brokersdk.Enrollment, error) {
	enr, err := b.totp.Issue(uid)
	if err != nil {
		return brokersdk.Enrollment{}, err
	}
	return brokersdk.Enrollment{Secret: enr.Secret, QRCodeURL: enr.QRCodeURL, OTPAuthURL: enr.URL}, nil
}

func (b *fakeBroker) VerifySecondFactor(ctx context.Context, uid, code string) error {
	b.verifyCalls.Add(1)
	s, err := b.docs.GetSettings(ctx, uid)
	if errors.Is(err, account.ErrNotFound) || (err == nil && !s.HasSecret()) {
		return brokersdk.ErrNotEnabled
	}
	if err != nil {
		return err
	}
	if !b.totp.ValidateAt(s.TwoFactorSecret, code, b.now()) {
		return brokersdk.ErrInvalidCode
	}
	return nil
}

func (b *fakeBroker) Logout(context.Context) error {
	b.logouts.Add(1)
	return b.logoutErr
}

func (b *fakeBroker) SteamEntryURL() string { return "http://localhost:3000/auth/steam" }

type captureMailer struct {
	mu   sync.Mutex
	sent []identity.Message
}

func (c *captureMailer) Send(_ context.Context, msg identity.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	for _, field := range strings.Fields(c.sent[len(c.sent)-1].Body) {
		if u, err := url.Parse(field); err == nil && u.Query().Get("token") != "" {
			return u.Query().Get("token")
		}
	}
	t.Fatal("no link in message")
	return ""
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type navigator struct{ visited []string }

func (n *navigator) Navigate(u string) error {
	n.visited = append(n.visited, u)
	return nil
}

type fixture struct {
	now    time.Time
	docs   *account.MemoryStore
	users  *identity.MemoryStore
	mailer *captureMailer
	keys   *jwtx.KeyManager
	local  *identity.Local
	broker *fakeBroker
	nav    *navigator
	m      *authflow.Machine
}

type option func(*authflow.Deps, *authflow.Config)

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()

	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:   issuer,
		Audience: []string{audience},
		NumKeys:  1,
	})
	require.NoError(t, err)

	f := &fixture{
		now:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		docs:   account.NewMemoryStore(),
		users:  identity.NewMemoryStore(),
		mailer: &captureMailer{},
		keys:   keys,
		nav:    &navigator{},
	}
	f.local = identity.NewLocal(f.users, identity.LocalConfig{
		Hasher:         cryptox.NewPasswordHasher("pepper"),
		Mailer:         f.mailer,
		Tokens:         keys.Verifier,
		VerifyEmailURL: "http://localhost:5173/verify-email",
		Now:            func() time.Time { return f.now },
	})
	f.broker = &fakeBroker{
		docs: f.docs,
		totp: totpx.New(totpx.DefaultConfig()),
		now:  func() time.Time { return f.now },
	}

	deps := authflow.Deps{
		Provider:     f.local,
		Documents:    f.docs,
		SecondFactor: f.broker,
		Broker:       f.broker,
		Navigator:    f.nav,
		Clock:        fixedClock{f.now},
	}
	cfg := authflow.DefaultConfig()
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	f.m, err = authflow.New(deps, cfg)
	require.NoError(t, err)
	return f
}

// registerVerified registers through the machine and confirms the email.
func (f *fixture) registerVerified(t *testing.T, name, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.m.Register(ctx, name, email, password))
	require.NoError(t, f.local.ConfirmEmailVerification(ctx, f.mailer.lastToken(t)))
}

func (f *fixture) code(t *testing.T, at time.Time) string {
	t.Helper()
	s, err := f.docs.GetSettings(context.Background(), f.m.Snapshot().UserID())
	require.NoError(t, err)
	code, err := f.broker.totp.CodeAt(s.TwoFactorSecret, at)
	require.NoError(t, err)
	return code
}

func (f *fixture) steamToken(t *testing.T) string {
	t.Helper()
	tok, err := f.keys.Sign(jwtx.NewCustomTokenClaims(jwtx.CustomTokenParams{
		Subject:  steamID,
		Provider: "steam",
		Name:     "Gabe",
		Issuer:   issuer,
		Audience: []string{audience},
	}))
	require.NoError(t, err)
	return tok
}

// unusedCode returns a six digit code that is none of valid.
func unusedCode(valid ...string) string {
	for d := '0'; d <= '9'; d++ {
		c := strings.Repeat(string(d), 6)
		if !slices.Contains(valid, c) {
			return c
		}
	}
	return "012345"
}

// recordStates collects every state the machine passes through.
func recordStates(m *authflow.Machine) (func() []authflow.State, func()) {
	var mu sync.Mutex
	var seen []authflow.State
	stop := m.Subscribe(func(s authflow.Session) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})
	return func() []authflow.State {
		mu.Lock()
		defer mu.Unlock()
		return append([]authflow.State(nil), seen...)
	}, stop
}

func TestRegisterLeavesUserSignedOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.m.Register(ctx, "Ada", "ada@example.com", "secret1"))
	require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

	_, err := f.local.CurrentUser(ctx)
	require.ErrorIs(t, err, identity.ErrNoCurrentUser)

	u, err := f.users.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "Ada", u.DisplayName)
	require.False(t, u.EmailVerified)

	profile, err := f.docs.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.DisplayName)
	require.Equal(t, account.DefaultAvatar, profile.Avatar)
	require.Equal(t, "ada@example.com", profile.Email)

	settings, err := f.docs.GetSettings(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "uk", settings.Language)
	require.False(t, settings.TwoFactorEnabled)

	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "ada@example.com", f.mailer.sent[0].To)

	err = f.m.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.ErrorIs(t, err, authflow.ErrEmailUnverified)
	require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)
	_, err = f.local.CurrentUser(ctx)
	require.ErrorIs(t, err, identity.ErrNoCurrentUser)

	err = f.m.Register(ctx, "Ada", "ada@example.com", "secret1")
	require.ErrorIs(t, err, authflow.ErrRegistrationError)
	require.ErrorIs(t, err, identity.ErrEmailInUse)
}

func TestValidateRegistration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                      string
		user, email, pass, repeat string
		code                      string
	}{
		{"valid", "Ada", "ada@example.com", "secret1", "secret1", ""},
		{"missing name", "  ", "ada@example.com", "secret1", "secret1", authflow.InputNameRequired},
		{"bad email", "Ada", "ada-at-example", "secret1", "secret1", authflow.InputInvalidEmail},
		{"short password", "Ada", "ada@example.com", "12345", "12345", authflow.InputPasswordTooShort},
		{"mismatch", "Ada", "ada@example.com", "secret1", "secret2", authflow.InputPasswordsMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := authflow.ValidateRegistration(tt.user, tt.email, tt.pass, tt.repeat)
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, &authflow.Error{Kind: authflow.KindInvalidInput, Code: tt.code})
		})
	}
}

func TestSignInWithoutSecondFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")

	states, stop := recordStates(f.m)
	defer stop()

	err := f.m.SignInWithPassword(ctx, "ada@example.com", "wrong-pass")
	require.ErrorIs(t, err, authflow.ErrInvalidCredentials)
	require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))

	s := f.m.Snapshot()
	require.Equal(t, authflow.Authenticated, s.State)
	require.True(t, s.Persisted)
	require.True(t, s.SettingsLoaded)
	require.Equal(t, "Ada", s.Profile.DisplayName)
	require.NotContains(t, states(), authflow.AwaitingSecondFactor)
	require.Equal(t, []authflow.State{
		authflow.Authenticating, authflow.Unauthenticated,
		authflow.Authenticating, authflow.Authenticated,
	}, states())
}

func TestSecondFactorGatesSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")

	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	enr, err := f.m.EnableSecondFactor(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.True(t, strings.HasPrefix(enr.QRCodeURL, "data:image/png;base64,"))
	require.NoError(t, f.m.SignOut(ctx))

	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	s := f.m.Snapshot()
	require.Equal(t, authflow.AwaitingSecondFactor, s.State)
	require.False(t, s.SecondFactorVerified)

	require.ErrorIs(t, f.m.UpdateName(ctx, "secret1", "Augusta"), authflow.ErrSecondFactorRequired)
	require.ErrorIs(t, f.m.DisableSecondFactor(ctx), authflow.ErrSecondFactorRequired)

	calls := f.broker.verifyCalls.Load()
	for _, bad := range []string{"", "12345", "1234567", "12a456", "１２３４５６"} {
		require.ErrorIs(t, f.m.VerifySecondFactor(ctx, bad), authflow.ErrInvalidCode, bad)
	}
	require.Equal(t, calls, f.broker.verifyCalls.Load(), "malformed codes never reach the broker")

	good := f.code(t, f.now)
	wrong := unusedCode(f.code(t, f.now.Add(-30*time.Second)), good, f.code(t, f.now.Add(30*time.Second)))
	require.ErrorIs(t, f.m.VerifySecondFactor(ctx, wrong), authflow.ErrInvalidCode)
	require.Equal(t, authflow.AwaitingSecondFactor, f.m.Snapshot().State)

	require.NoError(t, f.m.VerifySecondFactor(ctx, " "+good[:3]+" "+good[3:]+"\n"))
	s = f.m.Snapshot()
	require.Equal(t, authflow.Authenticated, s.State)
	require.True(t, s.SecondFactorVerified)
}

func TestSecondFactorWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		offset time.Duration
		ok     bool
	}{
		{"current step", 0, true},
		{"previous step", -30 * time.Second, true},
		{"next step", 30 * time.Second, true},
		{"two steps back", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			f.registerVerified(t, "Ada", "ada@example.com", "secret1")
			require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
			_, err := f.m.EnableSecondFactor(ctx)
			require.NoError(t, err)

			err = f.m.VerifySecondFactor(ctx, f.code(t, f.now.Add(tt.offset)))
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, authflow.ErrInvalidCode)
			}
		})
	}
}

func TestEnableVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))

	require.ErrorIs(t, f.m.VerifySecondFactor(ctx, "123456"), authflow.ErrNotEnabled)

	_, err := f.m.EnableSecondFactor(ctx)
	require.NoError(t, err)
	s := f.m.Snapshot()
	require.Equal(t, authflow.AwaitingSecondFactor, s.State)
	require.True(t, s.Settings.TwoFactorEnabled)
	require.False(t, s.SecondFactorVerified)

	require.NoError(t, f.m.VerifySecondFactor(ctx, f.code(t, f.now)))
	s = f.m.Snapshot()
	require.Equal(t, authflow.Authenticated, s.State)
	require.True(t, s.SecondFactorVerified)
}

func TestEnableSecondFactorLocksGatedOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	uid := f.m.Snapshot().UserID()

	_, err := f.m.EnableSecondFactor(ctx)
	require.NoError(t, err)

	t.Run("rejected until verified", func(t *testing.T) {
		require.ErrorIs(t, f.m.UpdateName(ctx, "secret1", "Augusta"), authflow.ErrSecondFactorRequired)
		require.ErrorIs(t, f.m.DeleteAccount(ctx, "secret1"), authflow.ErrSecondFactorRequired)
		require.ErrorIs(t, f.m.SetLanguage(ctx, "en"), authflow.ErrSecondFactorRequired)
		_, err := f.m.EnableSecondFactor(ctx)
		require.ErrorIs(t, err, authflow.ErrSecondFactorRequired)

		profile, err := f.docs.GetProfile(ctx, uid)
		require.NoError(t, err)
		require.Equal(t, "Ada", profile.DisplayName)
		_, err = f.users.GetUser(ctx, uid)
		require.NoError(t, err)
	})

	t.Run("allowed after verification", func(t *testing.T) {
		require.NoError(t, f.m.VerifySecondFactor(ctx, f.code(t, f.now)))
		require.NoError(t, f.m.UpdateName(ctx, "secret1", "Augusta"))
		require.Equal(t, "Augusta", f.m.Snapshot().User.DisplayName)
	})
}

func TestDisableThenSignInNeedsNoCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")

	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	_, err := f.m.EnableSecondFactor(ctx)
	require.NoError(t, err)
	require.NoError(t, f.m.VerifySecondFactor(ctx, f.code(t, f.now)))

	require.NoError(t, f.m.DisableSecondFactor(ctx))
	s := f.m.Snapshot()
	require.False(t, s.SecondFactorVerified)
	require.False(t, s.Settings.TwoFactorEnabled)
	require.False(t, s.Settings.HasSecret())

	require.NoError(t, f.m.SignOut(ctx))
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	require.Equal(t, authflow.Authenticated, f.m.Snapshot().State)
}

func TestSteamCallback(t *testing.T) {
	t.Parallel()

	t.Run("token exchange", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture(t)

		require.NoError(t, f.m.InitiateSteamSignIn(ctx))
		require.Equal(t, []string{"http://localhost:3000/auth/steam"}, f.nav.visited)
		require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

		cb := authflow.ParseSteamCallback(url.Values{"token": {f.steamToken(t)}})
		require.NoError(t, f.m.CompleteSteamCallback(ctx, cb))

		s := f.m.Snapshot()
		require.Equal(t, authflow.Authenticated, s.State)
		require.Equal(t, steamID, s.UserID())
		require.Equal(t, identity.KindSteam, s.User.Provider)
		require.Equal(t, "Gabe", s.Profile.DisplayName)
		require.Equal(t, steamID, s.Profile.SteamID)
	})

	t.Run("error code skips exchange", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		spy := &spyProvider{}
		f := newFixture(t, func(d *authflow.Deps, _ *authflow.Config) {
			spy.Provider = d.Provider
			d.Provider = spy
		})

		cb := authflow.ParseSteamCallback(url.Values{"error": {"steam_auth_failed"}})
		err := f.m.CompleteSteamCallback(ctx, cb)
		require.ErrorIs(t, err, authflow.ErrServerSessionError)
		require.ErrorIs(t, err, &authflow.Error{Kind: authflow.KindServerSessionError, Code: authflow.CodeSteamAuthFailed})
		require.Zero(t, spy.customTokens.Load())
		require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

		require.Equal(t, "Помилка входу через Steam.", authflow.Localize(err, "uk"))
		require.Equal(t, "Steam sign in failed.", authflow.Localize(err, "en"))
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.m.CompleteSteamCallback(context.Background(), authflow.ParseSteamCallback(url.Values{}))
		require.ErrorIs(t, err, &authflow.Error{Kind: authflow.KindServerSessionError, Code: authflow.CodeTokenGenerationFailed})
	})

	t.Run("bad token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.m.CompleteSteamCallback(context.Background(), authflow.SteamCallback{Token: "garbage"})
		require.ErrorIs(t, err, authflow.ErrProviderError)
		require.ErrorIs(t, err, identity.ErrInvalidToken)
		require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)
	})

	t.Run("exchange times out", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, func(d *authflow.Deps, c *authflow.Config) {
			d.Provider = &blockingProvider{Provider: d.Provider}
			c.SteamCallbackTimeout = 20 * time.Millisecond
		})
		err := f.m.CompleteSteamCallback(context.Background(), authflow.SteamCallback{Token: "tok"})
		require.ErrorIs(t, err, authflow.ErrNetworkFailure)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)
	})
}

func TestConcurrentSignInRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	f := newFixture(t, func(d *authflow.Deps, _ *authflow.Config) {
		d.Provider = &blockingProvider{Provider: d.Provider, entered: entered, release: release}
	})

	tok := f.steamToken(t)
	done := make(chan error, 1)
	go func() {
		done <- f.m.CompleteSteamCallback(ctx, authflow.SteamCallback{Token: tok})
	}()
	<-entered
	require.Equal(t, authflow.Authenticating, f.m.Snapshot().State)

	err := f.m.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.ErrorIs(t, err, authflow.ErrSignInInProgress)
	require.ErrorIs(t, f.m.Restore(ctx), authflow.ErrSignInInProgress)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, authflow.Authenticated, f.m.Snapshot().State)
}

func TestRegisterRequiresSignedOut(t *testing.T) {
	t.Parallel()

	t.Run("signed in", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture(t)
		f.registerVerified(t, "Ada", "ada@example.com", "secret1")
		require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
		before := f.m.Snapshot()

		err := f.m.Register(ctx, "Grace", "grace@example.com", "secret2")
		require.ErrorIs(t, err, authflow.ErrAlreadySignedIn)
		require.Equal(t, before, f.m.Snapshot())

		_, err = f.users.GetUserByEmail(ctx, "grace@example.com")
		require.ErrorIs(t, err, identity.ErrNotFound)

		cur, err := f.local.CurrentUser(ctx)
		require.NoError(t, err)
		require.Equal(t, before.UserID(), cur.ID)
		require.NoError(t, f.m.UpdateName(ctx, "secret1", "Augusta"))
	})

	t.Run("sign-in in progress", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		release := make(chan struct{})
		entered := make(chan struct{})
		f := newFixture(t, func(d *authflow.Deps, _ *authflow.Config) {
			d.Provider = &blockingProvider{Provider: d.Provider, entered: entered, release: release}
		})

		tok := f.steamToken(t)
		done := make(chan error, 1)
		go func() {
			done <- f.m.CompleteSteamCallback(ctx, authflow.SteamCallback{Token: tok})
		}()
		<-entered

		err := f.m.Register(ctx, "Grace", "grace@example.com", "secret2")
		require.ErrorIs(t, err, authflow.ErrSignInInProgress)
		_, err = f.users.GetUserByEmail(ctx, "grace@example.com")
		require.ErrorIs(t, err, identity.ErrNotFound)

		close(release)
		require.NoError(t, <-done)
		s := f.m.Snapshot()
		require.Equal(t, authflow.Authenticated, s.State)
		require.Equal(t, steamID, s.UserID())
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	calls := &callLog{}
	f := newFixture(t, func(d *authflow.Deps, _ *authflow.Config) {
		d.Provider = orderedProvider{Provider: d.Provider, calls: calls}
		d.Broker = orderedBroker{Broker: d.Broker, calls: calls}
	})
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	calls.clear()

	f.broker.logoutErr = brokersdk.ErrServer
	err := f.m.SignOut(ctx)
	require.ErrorIs(t, err, &authflow.Error{Kind: authflow.KindServerSessionError, Code: authflow.CodeLogoutFailed})
	require.Equal(t, int32(1), f.broker.logouts.Load())
	require.Equal(t, []string{"broker.logout", "provider.signout"}, calls.list())

	s := f.m.Snapshot()
	require.Equal(t, authflow.Unauthenticated, s.State)
	require.Nil(t, s.User)
	_, err = f.local.CurrentUser(ctx)
	require.ErrorIs(t, err, identity.ErrNoCurrentUser)
}

func TestRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.m.Restore(ctx))
	require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	_, err := f.m.EnableSecondFactor(ctx)
	require.NoError(t, err)
	require.NoError(t, f.m.VerifySecondFactor(ctx, f.code(t, f.now)))

	require.NoError(t, f.m.Restore(ctx))
	s := f.m.Snapshot()
	require.Equal(t, authflow.Authenticated, s.State)
	require.True(t, s.SecondFactorVerified)

	other := newFixture(t)
	other.registerVerified(t, "Ada", "ada@example.com", "secret1")
	_, err = other.local.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, other.m.Restore(ctx))
	require.Equal(t, authflow.Authenticated, other.m.Snapshot().State)
}

func TestAccountUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.m.UpdateName(ctx, "secret1", "Augusta"), authflow.ErrNoActiveUser)
	_, err := f.m.EnableSecondFactor(ctx)
	require.ErrorIs(t, err, authflow.ErrNoActiveUser)

	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	uid := f.m.Snapshot().UserID()

	require.ErrorIs(t, f.m.UpdateName(ctx, "wrong-pass", "Augusta"), authflow.ErrReauthenticationFailed)
	require.NoError(t, f.m.UpdateName(ctx, "secret1", "Augusta"))
	profile, err := f.docs.GetProfile(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, "Augusta", profile.DisplayName)
	require.Equal(t, "Augusta", f.m.Snapshot().User.DisplayName)

	require.NoError(t, f.m.UpdateEmail(ctx, "secret1", "augusta@example.com"))
	s := f.m.Snapshot()
	require.Equal(t, "augusta@example.com", s.Profile.Email)
	require.False(t, s.User.EmailVerified)

	require.ErrorIs(t, f.m.UpdatePassword(ctx, "secret1", "123"), authflow.ErrInvalidInput)
	require.NoError(t, f.m.UpdatePassword(ctx, "secret1", "secret2"))
	require.ErrorIs(t, f.m.UpdatePassword(ctx, "secret1", "secret3"), authflow.ErrReauthenticationFailed)

	require.ErrorIs(t, f.m.SetLanguage(ctx, "!!"), authflow.ErrInvalidInput)
	require.NoError(t, f.m.SetLanguage(ctx, "en-us"))
	require.Equal(t, "en-US", f.m.Snapshot().Settings.Language)

	city := 703448
	country := "UA"
	require.NoError(t, f.m.UpdateProfile(ctx, account.ProfilePatch{CountryCode: &country, CityID: &city}))
	s = f.m.Snapshot()
	require.Equal(t, "UA", s.Profile.CountryCode)
	require.Equal(t, city, *s.Profile.CityID)

	empty := " "
	require.ErrorIs(t, f.m.UpdateProfile(ctx, account.ProfilePatch{DisplayName: &empty}), authflow.ErrInvalidInput)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "Ada", "ada@example.com", "secret1")
	require.NoError(t, f.m.SignInWithPassword(ctx, "ada@example.com", "secret1"))
	uid := f.m.Snapshot().UserID()

	t.Run("wrong password changes nothing", func(t *testing.T) {
		before := f.m.Snapshot()
		err := f.m.DeleteAccount(ctx, "wrong-pass")
		require.ErrorIs(t, err, authflow.ErrReauthenticationFailed)

		require.Equal(t, before, f.m.Snapshot())
		_, err = f.docs.GetProfile(ctx, uid)
		require.NoError(t, err)
		_, err = f.docs.GetSettings(ctx, uid)
		require.NoError(t, err)
		_, err = f.users.GetUser(ctx, uid)
		require.NoError(t, err)
	})

	t.Run("correct password removes everything", func(t *testing.T) {
		require.NoError(t, f.m.DeleteAccount(ctx, "secret1"))
		require.Equal(t, authflow.Unauthenticated, f.m.Snapshot().State)

		_, err := f.docs.GetProfile(ctx, uid)
		require.ErrorIs(t, err, account.ErrNotFound)
		_, err = f.docs.GetSettings(ctx, uid)
		require.ErrorIs(t, err, account.ErrNotFound)
		_, err = f.users.GetUser(ctx, uid)
		require.ErrorIs(t, err, identity.ErrNotFound)

		err = f.m.SignInWithPassword(ctx, "ada@example.com", "secret1")
		require.ErrorIs(t, err, authflow.ErrInvalidCredentials)
	})
}

func TestDocumentStoreFailureUsesDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(d *authflow.Deps, _ *authflow.Config) {
		d.Documents = brokenDocuments{DocumentStore: d.Documents}
	})
	tok := f.steamToken(t)

	require.NoError(t, f.m.CompleteSteamCallback(ctx, authflow.SteamCallback{Token: tok}))
	s := f.m.Snapshot()
	require.Equal(t, authflow.Authenticated, s.State)
	require.False(t, s.Persisted)
	require.Equal(t, "Gabe", s.Profile.DisplayName)
	require.Equal(t, "uk", s.Settings.Language)
}

func TestLocalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		lang     string
		contains string
	}{
		{&authflow.Error{Kind: authflow.KindInvalidCredentials}, "en", "Invalid email or password."},
		{&authflow.Error{Kind: authflow.KindInvalidCredentials}, "uk-UA", "Невірний email або пароль."},
		{&authflow.Error{Kind: authflow.KindInvalidCode}, "fr", "Invalid verification code."},
		{&authflow.Error{Kind: authflow.KindServerSessionError, Code: authflow.CodeSessionDestroyFailed}, "uk", "Не вдалося очистити серверну сесію."},
		{&authflow.Error{Kind: authflow.KindServerSessionError, Code: "mystery"}, "en", "Server session error."},
		{&authflow.Error{Kind: authflow.KindInvalidInput, Code: authflow.InputPasswordsMismatch}, "uk", "Паролі не збігаються."},
		{errors.New("boom"), "", "Something went wrong."},
	}
	for _, tt := range tests {
		require.Equal(t, tt.contains, authflow.Localize(tt.err, tt.lang))
	}
	require.Empty(t, authflow.Localize(nil, "en"))
}

// callLog records the order of calls made through the ordered wrappers.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *callLog) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

type orderedProvider struct {
	identity.Provider
	calls *callLog
}

func (p orderedProvider) SignOut(ctx context.Context) error {
	p.calls.record("provider.signout")
	return p.Provider.SignOut(ctx)
}

type orderedBroker struct {
	authflow.Broker
	calls *callLog
}

func (b orderedBroker) Logout(ctx context.Context) error {
	b.calls.record("broker.logout")
	return b.Broker.Logout(ctx)
}

type spyProvider struct {
	identity.Provider
	customTokens atomic.Int32
}

func (s *spyProvider) SignInWithCustomToken(ctx context.Context, token string) (identity.User, error) {
	s.customTokens.Add(1)
	return s.Provider.SignInWithCustomToken(ctx, token)
}

// blockingProvider holds custom token exchanges until release is closed
// or the context ends.
type blockingProvider struct {
	identity.Provider
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProvider) SignInWithCustomToken(ctx context.Context, token string) (identity.User, error) {
	if b.entered != nil {
		close(b.entered)
	}
	select {
	case <-b.release:
		return b.Provider.SignInWithCustomToken(ctx, token)
	case <-ctx.Done():
		return identity.User{}, ctx.Err()
	}
}

type brokenDocuments struct {
	account.DocumentStore
}

var errStoreDown = errors.New("store down")

func (brokenDocuments) GetProfile(context.Context, string) (account.Profile, error) {
	return account.Profile{}, errStoreDown
}

func (brokenDocuments) GetSettings(context.Context, string) (account.Settings, error) {
	return account.Settings{}, errStoreDown
}
