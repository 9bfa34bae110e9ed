// Package steamid implements the relying-party half of Steam's OpenID 2.0
// sign in and the Steam Web API player summary lookup.
package steamid

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is Steam's OpenID provider endpoint.
	DefaultEndpoint = "https://steamcommunity.com/openid/login"

	openIDNS         = "http://specs.openid.net/auth/2.0"
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"

	// DefaultNonceMaxAge bounds how old a response_nonce may be.
	DefaultNonceMaxAge = 5 * time.Minute
)

var (
	ErrInvalidAssertion = errors.New("steamid: invalid openid assertion")
	ErrCancelled        = errors.New("steamid: sign in cancelled")
	ErrReplayedNonce    = errors.New("steamid: nonce already used")
	ErrRejected         = errors.New("steamid: assertion rejected by provider")
	ErrUpstream         = errors.New("steamid: provider unavailable")
)

var claimedIDPattern = regexp.MustCompile(`^https?://steamcommunity\.com/openid/id/(7656119\d{10})/?$`)

// requiredSigned must all be covered by the provider signature.
var requiredSigned = []string{"op_endpoint", "claimed_id", "identity", "return_to", "response_nonce", "assoc_handle"}

// NonceStore remembers response nonces so an assertion is accepted once.
// Claim returns false if nonce was claimed before.
type NonceStore interface {
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

type Config struct {
	// Realm is the trust root shown by Steam, e.g. "http://localhost:3000/".
	Realm string
	// ReturnTo is where Steam sends the browser back to.
	ReturnTo string

	Endpoint    string
	NonceMaxAge time.Duration

	// APIKey enables player summary lookups.
	APIKey  string
	APIBase string

	HTTPClient *http.Client
	Now        func() time.Time
}

type Client struct {
	cfg    Config
	nonces NonceStore
}

// New returns a Client. nonces may be nil, in which case replay protection
// is left to the provider's check_authentication.
func New(cfg Config, nonces NonceStore) (*Client, error) {
	if cfg.Realm == "" || cfg.ReturnTo == "" {
		return nil, errors.New("steamid: realm and return_to are required")
	}
	if _, err := url.Parse(cfg.ReturnTo); err != nil {
		return nil, fmt.Errorf("steamid: parse return_to: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.NonceMaxAge <= 0 {
		cfg.NonceMaxAge = DefaultNonceMaxAge
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{cfg: cfg, nonces: nonces}, nil
}

// AuthURL is the provider URL the browser is redirected to.
func (c *Client) AuthURL() string {
	q := url.Values{}
	q.Set("openid.ns", openIDNS)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.return_to", c.cfg.ReturnTo)
	q.Set("openid.realm", c.cfg.Realm)
	q.Set("openid.identity", identifierSelect)
	q.Set("openid.claimed_id", identifierSelect)
	return c.cfg.Endpoint + "?" + q.Encode()
}

// Verify checks a positive assertion received on the return URL and
// returns the SteamID64 it vouches for.
func (c *Client) Verify(ctx context.Context, q url.Values) (string, error) {
	steamID, nonce, err := c.checkAssertion(q)
	if err != nil {
		return "", err
	}

	if c.nonces != nil {
		fresh, err := c.nonces.Claim(ctx, nonce, c.cfg.NonceMaxAge)
		if err != nil {
			return "", fmt.Errorf("claim nonce: %w", err)
		}
		if !fresh {
			return "", ErrReplayedNonce
		}
	}

	if err := c.checkAuthentication(ctx, q); err != nil {
		return "", err
	}
	return steamID, nil
}

func (c *Client) checkAssertion(q url.Values) (steamID, nonce string, err error) {
	switch q.Get("openid.mode") {
	case "id_res":
	case "cancel":
		return "", "", ErrCancelled
	default:
		return "", "", fmt.Errorf("%w: mode %q", ErrInvalidAssertion, q.Get("openid.mode"))
	}

	if q.Get("openid.ns") != openIDNS {
		return "", "", fmt.Errorf("%w: namespace", ErrInvalidAssertion)
	}
	if q.Get("openid.op_endpoint") != c.cfg.Endpoint {
		return "", "", fmt.Errorf("%w: op_endpoint", ErrInvalidAssertion)
	}
	if !sameEndpoint(q.Get("openid.return_to"), c.cfg.ReturnTo) {
		return "", "", fmt.Errorf("%w: return_to", ErrInvalidAssertion)
	}

	claimed := q.Get("openid.claimed_id")
	if claimed != q.Get("openid.identity") {
		return "", "", fmt.Errorf("%w: identity mismatch", ErrInvalidAssertion)
	}
	m := claimedIDPattern.FindStringSubmatch(claimed)
	if m == nil {
		return "", "", fmt.Errorf("%w: claimed_id", ErrInvalidAssertion)
	}

	signed := strings.Split(q.Get("openid.signed"), ",")
	for _, f := range requiredSigned {
		if !slices.Contains(signed, f) {
			return "", "", fmt.Errorf("%w: %s not signed", ErrInvalidAssertion, f)
		}
	}

	nonce = q.Get("openid.response_nonce")
	if err := c.checkNonceTime(nonce); err != nil {
		return "", "", err
	}

	return m[1], nonce, nil
}

// checkNonceTime validates the RFC 3339 timestamp prefix of a nonce.
func (c *Client) checkNonceTime(nonce string) error {
	if len(nonce) < len("2006-01-02T15:04:05Z") {
		return fmt.Errorf("%w: response_nonce", ErrInvalidAssertion)
	}
	issued, err := time.Parse(time.RFC3339, nonce[:20])
	if err != nil {
		return fmt.Errorf("%w: response_nonce time", ErrInvalidAssertion)
	}

	now := c.cfg.Now()
	if now.Sub(issued) > c.cfg.NonceMaxAge || issued.Sub(now) > time.Minute {
		return fmt.Errorf("%w: response_nonce expired", ErrInvalidAssertion)
	}
	return nil
}

// sameEndpoint compares scheme, host and path, ignoring the query string
// the provider is allowed to carry back.
func sameEndpoint(got, want string) bool {
	g, err := url.Parse(got)
	if err != nil {
		return false
	}
	w, err := url.Parse(want)
	if err != nil {
		return false
	}
	return g.Scheme == w.Scheme && g.Host == w.Host && g.Path == w.Path
}

// checkAuthentication asks the provider to confirm its own signature.
func (c *Client) checkAuthentication(ctx context.Context, q url.Values) error {
	form := url.Values{}
	for k, v := range q {
		if strings.HasPrefix(k, "openid.") {
			form[k] = v
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build check_authentication: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: check_authentication status %d", ErrUpstream, resp.StatusCode)
	}

	kv, err := parseKeyValue(io.LimitReader(resp.Body, 16<<10))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if kv["ns"] != "" && kv["ns"] != openIDNS {
		return fmt.Errorf("%w: namespace", ErrRejected)
	}
	if kv["is_valid"] != "true" {
		return ErrRejected
	}
	return nil
}

// parseKeyValue reads OpenID key-value form: one "key:value" per line.
func parseKeyValue(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read key-value response: %w", err)
	}
	return out, nil
}
