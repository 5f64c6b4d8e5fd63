package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/freelingo/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "freelingo:session:"

// Sub-namespaces under the prefix. Records, the index and locks never share
// a key, whatever the user id.
const (
	recordSpace = "record:"
	indexName   = "index"
	lockSpace   = "lock:"
)

// SessionStore implements ports.SessionRepository on top of Redis.
// Records are stored as JSON under prefix+"record:"+userID; prefix+"index"
// is a sorted set of user ids scored by their expiry time.
type SessionStore struct {
	client *backend.Client
	ttl    time.Duration
	prefix string
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithTTL expires records that were not written for ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) {
		s.ttl = ttl
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) {
		s.prefix = prefix
	}
}

// New connects to addr and returns a store.
func New(addr, password string, db int, opts ...Option) (*SessionStore, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *SessionStore {
	s := &SessionStore{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *SessionStore) Client() *backend.Client {
	return s.client
}

func (s *SessionStore) key(userID string) string {
	return s.prefix + recordSpace + userID
}

func (s *SessionStore) indexKey() string {
	return s.prefix + indexName
}

// Put writes the record and refreshes its index entry.
func (s *SessionStore) Put(ctx context.Context, record *domain.SessionRecord) error {
	if record == nil || strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("redis store: record without user id")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", record.UserID, err)
	}

	score := float64(0)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).UnixNano())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(record.UserID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: record.UserID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session %s: %w", record.UserID, err)
	}
	return nil
}

// Get loads the record of a user.
func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", userID, err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", userID, err)
	}
	return &record, nil
}

// Delete removes the record and its index entry.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(userID))
	pipe.ZRem(ctx, s.indexKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", userID, err)
	}
	return nil
}

// List returns the users with a live record.
// Expired index entries are pruned lazily here.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		// Score 0 marks records without expiry.
		now := strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "(0", now).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}

	users, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return users, nil
}
