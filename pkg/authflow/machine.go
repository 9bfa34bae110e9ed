// Package authflow drives the storefront sign-in lifecycle: primary
// sign-in through an identity provider, the optional second factor
// relayed through the Session Broker, and account management for the
// signed in user.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/account"
	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/identity"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
)

// SecondFactor issues and verifies one-time code secrets. *brokersdk.Client
// satisfies it.
type SecondFactor interface {
	IssueSecondFactor(ctx context.Context, uid string) (brokersdk.Enrollment, error)
	VerifySecondFactor(ctx context.Context, uid, code string) error
}

// Broker owns the server-side Steam session.
type Broker interface {
	Logout(ctx context.Context) error
	SteamEntryURL() string
}

// Popup runs an OAuth popup and returns the provider credential (an ID
// token for Google, an access token for Facebook).
type Popup interface {
	Open(ctx context.Context, p identity.OAuthProvider) (string, error)
}

// Navigator performs a full page redirect.
type Navigator interface {
	Navigate(url string) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Deps struct {
	Provider     identity.Provider
	Documents    account.DocumentStore
	SecondFactor SecondFactor
	Broker       Broker
	Popup        Popup
	Navigator    Navigator
	Logger       *slog.Logger
	Clock        Clock
}

type Config struct {
	SteamCallbackTimeout time.Duration
	CodeDigits           int
	DefaultLanguage      string
	DefaultAvatar        string
}

func DefaultConfig() Config {
	return Config{
		SteamCallbackTimeout: 5 * time.Second,
		CodeDigits:           6,
		DefaultLanguage:      account.DefaultLanguage,
		DefaultAvatar:        account.DefaultAvatar,
	}
}

// Machine is safe for concurrent use. One mutex guards the session;
// provider, store and broker calls run without it.
type Machine struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
	code *regexp.Regexp

	mu      sync.Mutex
	session Session

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Session)
}

func New(deps Deps, cfg Config) (*Machine, error) {
	if deps.Provider == nil {
		return nil, errors.New("authflow: provider is required")
	}
	if deps.Documents == nil {
		return nil, errors.New("authflow: document store is required")
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}

	def := DefaultConfig()
	if cfg.SteamCallbackTimeout <= 0 {
		cfg.SteamCallbackTimeout = def.SteamCallbackTimeout
	}
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = def.CodeDigits
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}
	if cfg.DefaultAvatar == "" {
		cfg.DefaultAvatar = def.DefaultAvatar
	}

	return &Machine{
		deps: deps,
		cfg:  cfg,
		log:  slogx.OrDiscard(deps.Logger).With("component", "authflow"),
		code: regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, cfg.CodeDigits)),
		subs: make(map[int]func(Session)),
	}, nil
}

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Subscribe registers fn to receive the session after every change. fn
// runs on the goroutine that made the change, outside the state lock.
func (m *Machine) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Machine) notify(s Session) {
	m.subMu.Lock()
	fns := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}

// update applies fn under the lock and notifies subscribers if fn reports
// a change.
func (m *Machine) update(fn func(s *Session) bool) {
	m.mu.Lock()
	changed := fn(&m.session)
	snap := m.session.clone()
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

// beginSignIn moves to Authenticating and returns the previous session.
func (m *Machine) beginSignIn() (Session, error) {
	m.mu.Lock()
	if m.session.State == Authenticating {
		m.mu.Unlock()
		return Session{}, ErrSignInInProgress
	}
	prev := m.session.clone()
	m.session = Session{State: Authenticating}
	snap := m.session.clone()
	m.mu.Unlock()

	m.notify(snap)
	return prev, nil
}

// beginRegistration moves a signed out machine to Authenticating so no
// sign-in can interleave with the provider's temporary current user.
func (m *Machine) beginRegistration() error {
	m.mu.Lock()
	switch m.session.State {
	case Authenticating:
		m.mu.Unlock()
		return ErrSignInInProgress
	case Unauthenticated:
	default:
		m.mu.Unlock()
		return ErrAlreadySignedIn
	}
	m.session = Session{State: Authenticating}
	snap := m.session.clone()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

func (m *Machine) failSignIn() {
	m.reset()
}

func (m *Machine) reset() {
	m.update(func(s *Session) bool {
		*s = Session{State: Unauthenticated}
		return true
	})
}

// establish loads or creates the user's documents and moves to
// AwaitingSecondFactor or Authenticated. keepVerified carries an earlier
// verification over when the same user is restored.
func (m *Machine) establish(ctx context.Context, u identity.User, prev Session, keepVerified bool) Session {
	profile, settings, persisted := m.loadDocuments(ctx, u)

	verified := keepVerified &&
		prev.UserID() == u.ID &&
		prev.SecondFactorVerified &&
		settings.TwoFactorEnabled

	state := Authenticated
	if settings.TwoFactorEnabled && !verified {
		state = AwaitingSecondFactor
	}

	next := Session{
		State:                state,
		User:                 &u,
		Profile:              &profile,
		Settings:             &settings,
		SettingsLoaded:       true,
		SecondFactorVerified: verified,
		Persisted:            persisted,
		SignedInAt:           m.deps.Clock.Now(),
	}
	if keepVerified && prev.UserID() == u.ID && !prev.SignedInAt.IsZero() {
		next.SignedInAt = prev.SignedInAt
	}

	m.update(func(s *Session) bool {
		*s = next.clone()
		return true
	})

	m.log.InfoContext(ctx, "session established",
		"uid", u.ID,
		"provider", string(u.Provider),
		"state", state.String(),
		"persisted", persisted,
	)
	return next
}

func (m *Machine) loadDocuments(ctx context.Context, u identity.User) (account.Profile, account.Settings, bool) {
	persisted := true

	profile, err := m.deps.Documents.GetProfile(ctx, u.ID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		profile = m.newProfile(u)
		if err := m.deps.Documents.PutProfile(ctx, u.ID, profile); err != nil {
			m.log.WarnContext(ctx, "profile create failed, using defaults", "uid", u.ID, "err", err)
			persisted = false
		}
	case err != nil:
		m.log.WarnContext(ctx, "profile read failed, using defaults", "uid", u.ID, "err", err)
		profile = m.newProfile(u)
		persisted = false
	}

	settings, err := m.deps.Documents.GetSettings(ctx, u.ID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		settings = m.defaultSettings()
		if err := m.deps.Documents.PutSettings(ctx, u.ID, settings); err != nil {
			m.log.WarnContext(ctx, "settings create failed, using defaults", "uid", u.ID, "err", err)
			persisted = false
		}
	case err != nil:
		m.log.WarnContext(ctx, "settings read failed, using defaults", "uid", u.ID, "err", err)
		settings = m.defaultSettings()
		persisted = false
	}

	return profile, settings, persisted
}

func (m *Machine) newProfile(u identity.User) account.Profile {
	avatar := u.PhotoURL
	if avatar == "" {
		avatar = m.cfg.DefaultAvatar
	}
	p := account.NewProfile(u.DisplayName, u.Email, avatar)
	if u.Provider == identity.KindSteam {
		p.SteamID = u.ProviderSubject
	}
	now := m.deps.Clock.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return p
}

func (m *Machine) defaultSettings() account.Settings {
	s := account.DefaultSettings()
	s.Language = m.cfg.DefaultLanguage
	s.UpdatedAt = m.deps.Clock.Now().UTC()
	return s
}

// requireUser returns the current session if a user is signed in. Gated
// operations additionally require the second factor to be satisfied
// whenever the loaded settings have it enabled.
func (m *Machine) requireUser(gated bool) (Session, error) {
	s := m.Snapshot()
	switch s.State {
	case Authenticated, AwaitingSecondFactor:
	default:
		return Session{}, ErrNoActiveUser
	}
	if gated && !s.secondFactorSatisfied() {
		return Session{}, ErrSecondFactorRequired
	}
	return s, nil
}

func (s Session) secondFactorSatisfied() bool {
	if s.State == AwaitingSecondFactor {
		return false
	}
	return s.Settings == nil || !s.Settings.TwoFactorEnabled || s.SecondFactorVerified
}

// mutate applies fn to the session if uid is still the signed in user.
func (m *Machine) mutate(uid string, fn func(s *Session)) {
	m.update(func(s *Session) bool {
		if s.UserID() != uid {
			return false
		}
		fn(s)
		return true
	})
}

// within runs fn under a deadline of d. It returns when fn does or when
// the deadline passes, whichever is first.
func within[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("authflow: %w", ctx.Err())
	}
}
