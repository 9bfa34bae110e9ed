package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/cryptox"
	"github.com/aussiebroadwan/gamevault/pkg/idx"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
)

const (
	VerifyEmailTTL   = 24 * time.Hour
	ResetPasswordTTL = time.Hour
)

type LocalConfig struct {
	Hasher *cryptox.PasswordHasher
	Mailer Mailer

	// Tokens verifies broker minted custom tokens. RefreshKeys, when set,
	// is called once if a token names a key the verifier does not know.
	Tokens      jwtx.Verifier
	RefreshKeys func(ctx context.Context) error

	OAuth map[OAuthProvider]OAuthVerifier

	// Link bases; the token is appended as ?token=...
	VerifyEmailURL   string
	ResetPasswordURL string

	Logger *slog.Logger
	Now    func() time.Time
}

// Local is a Provider over a Store. Each instance tracks the signed in
// user of one client.
type Local struct {
	store Store
	cfg   LocalConfig
	log   *slog.Logger

	dummyOnce sync.Once
	dummyHash string

	mu      sync.RWMutex
	current string // user id
}

var _ Provider = (*Local)(nil)

func NewLocal(store Store, cfg LocalConfig) *Local {
	if cfg.Hasher == nil {
		cfg.Hasher = cryptox.NewPasswordHasher("")
	}
	if cfg.Mailer == nil {
		cfg.Mailer = LogMailer{Logger: cfg.Logger}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Local{store: store, cfg: cfg, log: slogx.OrDiscard(cfg.Logger)}
}

func (l *Local) setCurrent(id string) {
	l.mu.Lock()
	l.current = id
	l.mu.Unlock()
}

func (l *Local) currentID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

func (l *Local) CurrentUser(ctx context.Context) (User, error) {
	id := l.currentID()
	if id == "" {
		return User{}, ErrNoCurrentUser
	}

	u, err := l.store.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		l.setCurrent("")
		return User{}, ErrNoCurrentUser
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: load user: %w", ErrProvider, err)
	}
	return u, nil
}

func (l *Local) SignOut(context.Context) error {
	l.setCurrent("")
	return nil
}

// SignInWithPassword does not check EmailVerified; callers decide what an
// unverified address means.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (User, error) {
	u, err := l.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		l.burnHash(password)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: lookup user: %w", ErrProvider, err)
	}

	if err := l.checkPassword(u, password); err != nil {
		return User{}, err
	}

	l.setCurrent(u.ID)
	return u, nil
}

func (l *Local) checkPassword(u User, password string) error {
	if u.PasswordHash == "" {
		l.burnHash(password)
		return ErrInvalidCredentials
	}
	if err := l.cfg.Hasher.Verify(password, u.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// burnHash spends the same time as a real verification so unknown emails
// cannot be told apart by latency.
func (l *Local) burnHash(password string) {
	l.dummyOnce.Do(func() {
		l.dummyHash, _ = l.cfg.Hasher.Hash("gamevault-dummy-password")
	})
	if l.dummyHash != "" {
		_ = l.cfg.Hasher.Verify(password, l.dummyHash)
	}
}

func (l *Local) SignInWithOAuth(ctx context.Context, p OAuthProvider, credential string) (User, error) {
	v, ok := l.cfg.OAuth[p]
	if !ok {
		return User{}, fmt.Errorf("%w: %s sign in is not configured", ErrProvider, p)
	}

	ident, err := v.Verify(ctx, credential)
	if err != nil {
		return User{}, err
	}

	u, err := l.store.GetUserByProvider(ctx, p, ident.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		u, err = l.createOAuthUser(ctx, p, ident)
		if err != nil {
			return User{}, err
		}
	default:
		return User{}, fmt.Errorf("%w: lookup %s identity: %w", ErrProvider, p, err)
	}

	l.setCurrent(u.ID)
	return u, nil
}

func (l *Local) createOAuthUser(ctx context.Context, p OAuthProvider, ident OAuthIdentity) (User, error) {
	now := l.cfg.Now()
	u := User{
		ID:              idx.New().String(),
		Email:           NormalizeEmail(ident.Email),
		EmailVerified:   ident.EmailVerified,
		DisplayName:     ident.Name,
		PhotoURL:        ident.Picture,
		Provider:        p,
		ProviderSubject: ident.Subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := l.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Another identity already owns this address.
			return User{}, ErrEmailInUse
		}
		return User{}, fmt.Errorf("%w: create %s identity: %w", ErrProvider, p, err)
	}
	l.log.Info("identity created", "provider", p, "user_id", u.ID)
	return u, nil
}

// SignInWithCustomToken exchanges a broker minted token. The token subject
// is the identity id; the identity is created on first exchange.
func (l *Local) SignInWithCustomToken(ctx context.Context, token string) (User, error) {
	if l.cfg.Tokens == nil {
		return User{}, fmt.Errorf("%w: custom tokens are not configured", ErrProvider)
	}

	claims, err := l.cfg.Tokens.Verify(token)
	if errors.Is(err, jwtx.ErrNoKey) && l.cfg.RefreshKeys != nil {
		if rerr := l.cfg.RefreshKeys(ctx); rerr != nil {
			return User{}, fmt.Errorf("%w: refresh keys: %w", ErrProvider, rerr)
		}
		claims, err = l.cfg.Tokens.Verify(token)
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	u, err := l.store.GetUser(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		now := l.cfg.Now()
		kind := Kind(claims.Provider)
		if kind == "" {
			kind = KindSteam
		}
		u = User{
			ID:              claims.Subject,
			DisplayName:     claims.Name,
			PhotoURL:        claims.Picture,
			Provider:        kind,
			ProviderSubject: claims.Subject,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := l.store.CreateUser(ctx, u); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return User{}, fmt.Errorf("%w: create identity: %w", ErrProvider, err)
		}
	default:
		return User{}, fmt.Errorf("%w: load identity: %w", ErrProvider, err)
	}

	l.setCurrent(u.ID)
	return u, nil
}

// CreateUser registers a password identity and signs it in.
func (l *Local) CreateUser(ctx context.Context, email, password string) (User, error) {
	addr, err := ValidateEmail(email)
	if err != nil {
		return User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}

	hash, err := l.cfg.Hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("%w: hash password: %w", ErrProvider, err)
	}

	now := l.cfg.Now()
	u := User{
		ID:           idx.New().String(),
		Email:        addr,
		Provider:     KindPassword,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.ProviderSubject = u.ID

	if err := l.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, ErrEmailInUse
		}
		return User{}, fmt.Errorf("%w: create user: %w", ErrProvider, err)
	}

	l.setCurrent(u.ID)
	return u, nil
}

func (l *Local) UpdateProfile(ctx context.Context, upd ProfileUpdate) (User, error) {
	u, err := l.CurrentUser(ctx)
	if err != nil {
		return User{}, err
	}

	if upd.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = strings.TrimSpace(*upd.PhotoURL)
	}
	if err := l.save(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (l *Local) Reauthenticate(ctx context.Context, password string) error {
	u, err := l.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return l.checkPassword(u, password)
}

// UpdateEmail changes the address, marks it unverified and sends a new
// verification link.
func (l *Local) UpdateEmail(ctx context.Context, email string) error {
	addr, err := ValidateEmail(email)
	if err != nil {
		return err
	}

	u, err := l.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if addr == u.Email {
		return nil
	}

	u.Email = addr
	u.EmailVerified = false
	if err := l.save(ctx, u); err != nil {
		return err
	}
	return l.sendActionLink(ctx, u, PurposeVerifyEmail)
}

func (l *Local) UpdatePassword(ctx context.Context, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}

	u, err := l.CurrentUser(ctx)
	if err != nil {
		return err
	}

	hash, err := l.cfg.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: hash password: %w", ErrProvider, err)
	}
	u.PasswordHash = hash
	return l.save(ctx, u)
}

func (l *Local) DeleteUser(ctx context.Context) error {
	u, err := l.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := l.store.DeleteUser(ctx, u.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: delete user: %w", ErrProvider, err)
	}
	l.setCurrent("")
	return nil
}

func (l *Local) save(ctx context.Context, u User) error {
	u.UpdatedAt = l.cfg.Now()
	if err := l.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrEmailInUse
		}
		return fmt.Errorf("%w: update user: %w", ErrProvider, err)
	}
	return nil
}

// ValidateEmail returns the normalized address or ErrInvalidEmail.
func ValidateEmail(email string) (string, error) {
	addr := NormalizeEmail(email)
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || !strings.Contains(addr[strings.LastIndex(addr, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return addr, nil
}

func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
