package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Store keeps live session records in Redis as JSON. Records carry no TTL:
// this subsystem never deletes a session.
type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Save writes the full session record. A single SET commits the whole record,
// so a failed write leaves the previous state intact.
func (s *Store) Save(ctx context.Context, g *Session) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(g.ID), raw, 0).Err()
}

// Get returns the session or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Session
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Insert commits a new record and both participants' indexes in a single
// MULTI/EXEC round trip. A failure leaves neither the record nor a dangling
// index entry behind.
func (s *Store) Insert(ctx context.Context, g *Session) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(g.ID), raw, 0)
		pipe.SAdd(ctx, userIndexKey(g.WhiteID), g.ID)
		pipe.SAdd(ctx, userIndexKey(g.BlackID), g.ID)
		return nil
	})
	return err
}

// SessionsByUser loads every session the user participates in, most recently
// updated first.
func (s *Store) SessionsByUser(ctx context.Context, userID string) ([]*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Session
	for _, id := range ids {
		g, gerr := s.Get(ctx, id)
		if gerr != nil || g == nil {
			continue
		}
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func sessionKey(id string) string    { return "arena:session:" + strings.TrimSpace(id) }
func userIndexKey(uid string) string { return "arena:index:user:" + strings.TrimSpace(uid) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
