// Package sessions keeps the broker's server-side sessions and the OpenID
// nonces it has already accepted. Both have an in-memory and a redis
// implementation.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/idx"
)

var ErrNotFound = errors.New("sessions: not found")

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 24 * time.Hour

// Session is bound to a user for the duration of a Steam handshake. UserID
// is empty after logout.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns ErrNotFound for unknown or expired
// ids; Destroy of an unknown id is not an error.
type Store interface {
	Create(ctx context.Context, userID string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Destroy(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

func newSession(userID string, now time.Time, ttl time.Duration) Session {
	return Session{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
