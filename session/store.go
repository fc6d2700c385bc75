package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when no session exists under the id.
var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned when a stored session blob fails to decode.
var ErrCorrupt = errors.New("session record corrupt")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// saveSessionScript writes the session blob with an absolute expiry and
// registers the session id in the owning user's index set, keeping the two
// keys consistent under concurrent saves.
const saveSessionScript = `
redis.call("SET", KEYS[1], ARGV[1], "PXAT", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
local ttl = redis.call("PTTL", KEYS[2])
if ttl < tonumber(ARGV[4]) then
  redis.call("PEXPIREAT", KEYS[2], ARGV[2])
end
return 1
`

var saveSessionLua = redis.NewScript(saveSessionScript)

// deleteSessionScript removes the session blob and its index entry in one
// step. Returns whether the blob existed.
const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is the Redis-backed session store. A session's Redis TTL is always
// bound to its ExpiresAt, so expired records vanish on their own; the index
// set is cleaned lazily by ActiveCount.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a Store using the given key prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save creates or overwrites the record for sess. The storage lifetime is
// derived from sess.ExpiresAt, so extending a session is a Save with a
// later expiration.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}

	expireAtMs := sess.ExpiresAt * 1000
	remainingMs := time.Until(time.Unix(sess.ExpiresAt, 0)).Milliseconds()

	err = saveSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.sessionKey(sess.SessionID), s.userKey(sess.UserID)},
		encoded, expireAtMs, sess.SessionID, remainingMs,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get fetches and decodes the session stored under sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.SessionID = sessionID
	return sess, nil
}

// Delete removes the session and its index entry. Deleting an absent
// session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	// The index entry cannot be cleaned without the owner, so resolve it
	// first; a session already gone leaves nothing to clean eagerly.
	sess, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.sessionKey(sessionID), s.userKey(sess.UserID)},
		sessionID,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveCount returns the number of live sessions for userID, pruning
// index entries whose session blobs have already expired.
func (s *Store) ActiveCount(ctx context.Context, userID string) (int, error) {
	members, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count := 0
	var stale []interface{}
	for _, sid := range members {
		exists, err := s.redis.Exists(ctx, s.sessionKey(sid)).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if exists == 1 {
			count++
		} else {
			stale = append(stale, sid)
		}
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, s.userKey(userID), stale...).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
