package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCustomTokenTTL bounds how long a broker issued custom token can be
// exchanged. The client exchanges it immediately after the redirect.
const DefaultCustomTokenTTL = 5 * time.Minute

// Claims carried by a custom token. The subject is the identity id the
// identity provider should sign in as.
type Claims struct {
	jwt.RegisteredClaims

	// Provider that proved the identity, e.g. "steam".
	Provider string `json:"provider,omitempty"`

	// Display name and avatar as known to the provider at mint time. The
	// exchanging side uses them to seed a new identity.
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`

	// Authentication methods reference, ["openid"] for Steam.
	AMR []string `json:"amr,omitempty"`
}

// CustomTokenParams describes a custom token to mint.
type CustomTokenParams struct {
	Subject  string
	Provider string
	Name     string
	Picture  string
	AMR      []string

	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time
}

// NewCustomTokenClaims builds claims with iat/nbf at p.Now and a fresh jti.
func NewCustomTokenClaims(p CustomTokenParams) Claims {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultCustomTokenTTL
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Provider: p.Provider,
		Name:     p.Name,
		Picture:  p.Picture,
		AMR:      p.AMR,
	}
}

// NewJTI returns a random URL-safe token id.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks iss. An empty expectation accepts anything.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience requires at least one of expected in aud.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTime checks exp and nbf at now, allowing leeway either side.
func (c *Claims) ValidateTime(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
