package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	repo ports.SessionRepository

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Session Manager with the given repository.
func NewManager(repo ports.SessionRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// Load retrieves an existing record.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	var record *domain.SessionRecord
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		record, err = m.repo.Get(ctx, userID)
		return err
	})
	return record, err
}

// LoadOrStart loads a record, creating and persisting an empty one if none exists.
func (m *Manager) LoadOrStart(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	var record *domain.SessionRecord
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		record, err = m.loadOrNew(ctx, userID)
		if err != nil || !record.UpdatedAt.IsZero() {
			return err
		}
		record.UpdatedAt = m.now()
		if err := m.repo.Put(ctx, record); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return record, err
}

// Save persists a record, stamping UpdatedAt.
func (m *Manager) Save(ctx context.Context, record *domain.SessionRecord) error {
	if record == nil || record.UserID == "" {
		return errors.New("session record requires a user id")
	}
	return m.WithLock(ctx, record.UserID, func(ctx context.Context) error {
		next := record.Clone()
		next.UpdatedAt = m.now()
		return m.repo.Put(ctx, next)
	})
}

// Update runs fn on the user's record and persists the result.
// A missing record is started empty. Nothing is written if fn fails.
func (m *Manager) Update(ctx context.Context, userID string, fn func(*domain.SessionRecord) error) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		record, err := m.loadOrNew(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
		record.UserID = userID
		record.UpdatedAt = m.now()
		return m.repo.Put(ctx, record)
	})
}

// AppendMessages adds dialogue messages to the user's history.
func (m *Manager) AppendMessages(ctx context.Context, userID string, msgs ...domain.Message) error {
	return m.Update(ctx, userID, func(r *domain.SessionRecord) error {
		r.DialogueHistory = append(r.DialogueHistory, msgs...)
		return nil
	})
}

// AddKnownWords adds words the user does not know yet. Matching is on Word.
func (m *Manager) AddKnownWords(ctx context.Context, userID string, words ...domain.Word) error {
	return m.Update(ctx, userID, func(r *domain.SessionRecord) error {
		seen := make(map[string]bool, len(r.KnownWords))
		for _, w := range r.KnownWords {
			seen[w.Word] = true
		}
		for _, w := range words {
			if w.Word == "" || seen[w.Word] {
				continue
			}
			seen[w.Word] = true
			r.KnownWords = append(r.KnownWords, w)
		}
		return nil
	})
}

// Snapshot captures an immutable copy of the user's session.
// It returns domain.ErrSessionNotFound when the user has no record.
func (m *Manager) Snapshot(ctx context.Context, userID string) (domain.SessionSnapshot, error) {
	record, err := m.Load(ctx, userID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return record.Snapshot(m.now()), nil
}

// Delete removes the user's record.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.repo.Delete(ctx, userID)
	})
}

// List delegates to the repository.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.repo.List(ctx)
}

// Repository returns the underlying repository.
func (m *Manager) Repository() ports.SessionRepository {
	return m.repo
}

func (m *Manager) loadOrNew(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	record, err := m.repo.Get(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return domain.NewSessionRecord(userID), nil
}

// WithLock executes a function while holding the lock for the user.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
