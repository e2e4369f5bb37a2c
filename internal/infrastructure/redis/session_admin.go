package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SessionInfo describes one live session as seen by operators.
type SessionInfo struct {
	ID     string
	UserID string
	TTL    time.Duration
}

const scanCount = 200

// Each walks every live session with SCAN, issuing a GET and a TTL per key,
// so it costs O(keyspace). Meant for operator tooling, not request paths.
// Sessions that expire mid-walk are skipped.
func (s *SessionStore) Each(ctx context.Context, fn func(SessionInfo) error) error {
	if s.rdb == nil {
		return errNotConfigured
	}

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return err
		}
		for _, k := range keys {
			uid, err := s.rdb.Get(ctx, k).Result()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			ttl, err := s.rdb.TTL(ctx, k).Result()
			if err != nil {
				return err
			}
			info := SessionInfo{ID: strings.TrimPrefix(k, s.prefix), UserID: uid, TTL: ttl}
			if err := fn(info); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// RevokeUser deletes every session of userID through the user_sess index
// and reports how many live sessions went away.
func (s *SessionStore) RevokeUser(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, nil
	}
	if s.rdb == nil {
		return 0, errNotConfigured
	}

	idx := s.userPrefix + userID
	sids, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(sids))
	for _, sid := range sids {
		keys = append(keys, s.prefix+sid)
	}
	var deleted *goredis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = p.Del(ctx, keys...)
		}
		p.Del(ctx, idx)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}
