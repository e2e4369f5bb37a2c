package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// SessionStore implements auth.SessionStore on Redis:
// - Session id is opaque (random).
// - Redis stores: sess:<sid> -> <uid> with TTL
// - user_sess:<uid> is a set of that user's sids, so revocation does not
//   have to scan the keyspace. Members may outlive their session.
// - Expiry is left to Redis; an expired session simply no longer resolves.
type SessionStore struct {
	rdb *goredis.Client

	prefix     string
	userPrefix string

	// entropy bytes for opaque session id
	idBytes int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:        rdb,
		prefix:     "sess:",
		userPrefix: "user_sess:",
		idBytes:    32, // 256-bit
	}
}

var errNotConfigured = errors.New("redis session store not configured")

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return "", errNotConfigured
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	sid, err := s.newOpaqueID()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	// NX so a (practically impossible) id collision never hijacks a session
	ok, err := s.rdb.SetNX(ctx, s.prefix+sid, userID, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("session id collision")
	}

	idx := s.userPrefix + userID
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, idx, sid)
		p.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		_ = s.rdb.Del(ctx, s.prefix+sid).Err()
		return "", err
	}
	return sid, nil
}

// Resolve returns "" with a nil error for unknown or expired sessions.
func (s *SessionStore) Resolve(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", nil
	}
	if s.rdb == nil {
		return "", errNotConfigured
	}

	uid, err := s.rdb.Get(ctx, s.prefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(uid), nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		// idempotent
		return nil
	}
	if s.rdb == nil {
		return errNotConfigured
	}
	uid, err := s.rdb.GetDel(ctx, s.prefix+sessionID).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.rdb.SRem(ctx, s.userPrefix+strings.TrimSpace(uid), sessionID).Err()
}

func (s *SessionStore) newOpaqueID() (string, error) {
	b := make([]byte, s.idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// URL-safe, no padding; fits a cookie value as-is
	return base64.RawURLEncoding.EncodeToString(b), nil
}
