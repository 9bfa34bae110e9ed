package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionNamespace = "gamevault:sess"
	nonceNamespace   = "gamevault:nonce"
)

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func sessionKey(id string) string { return sessionNamespace + ":" + id }

func (r *RedisStore) Create(ctx context.Context, userID string) (Session, error) {
	s := newSession(userID, r.now(), r.ttl)
	if err := r.put(ctx, s, false); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, err
	}
	if s.Expired(r.now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Save rewrites an existing session, keeping its remaining lifetime.
func (r *RedisStore) Save(ctx context.Context, s Session) error {
	return r.put(ctx, s, true)
}

func (r *RedisStore) put(ctx context.Context, s Session, mustExist bool) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return ErrNotFound
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	args := redis.SetArgs{TTL: ttl}
	if mustExist {
		args.Mode = "XX"
	}
	res, err := r.client.SetArgs(ctx, sessionKey(s.ID), raw, args).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if res != "OK" {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisNonces claims nonces with SET NX EX, so replay protection holds
// across broker instances.
type RedisNonces struct {
	client redis.UniversalClient
}

func NewRedisNonces(client redis.UniversalClient) *RedisNonces {
	return &RedisNonces{client: client}
}

func (r *RedisNonces) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, nonceNamespace+":"+nonce, 1, ttl).Result()
}
