package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed layout lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to stored layouts. Operations on the same layout id
// run one at a time; unused locks are garbage collected through reference counting.
type Manager struct {
	store ports.LayoutStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
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
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over the given layout store.
func NewManager(store ports.LayoutStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when unused.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves a stored layout.
func (m *Manager) Load(ctx context.Context, id string) (domain.Layout, error) {
	var layout domain.Layout
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		layout, err = m.load(ctx, id)
		return err
	})
	return layout, err
}

// LoadOrCreate loads a layout, creating and persisting an empty one for the
// given track system when it does not exist yet.
func (m *Manager) LoadOrCreate(ctx context.Context, id, trackSystem string) (domain.Layout, error) {
	var layout domain.Layout
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		layout, err = m.load(ctx, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrLayoutNotFound) {
			return fmt.Errorf("failed to check layout existence: %w", err)
		}

		layout = domain.NewLayout(id, trackSystem)
		if err := m.store.Save(ctx, id, &layout); err != nil {
			return fmt.Errorf("failed to initialize layout: %w", err)
		}
		m.logger.Debug("Layout created", "layout", id, "track_system", trackSystem)
		return nil
	})
	return layout, err
}

// Save persists a layout under id.
func (m *Manager) Save(ctx context.Context, id string, layout domain.Layout) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, &layout)
	})
}

// Update runs a load-modify-save cycle under the layout lock. Nothing is saved
// when fn fails; the layout returned is the stored one in that case.
func (m *Manager) Update(ctx context.Context, id string, fn func(domain.Layout) (domain.Layout, error)) (domain.Layout, error) {
	var result domain.Layout
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.load(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			result = current
			return err
		}
		next.ID = id
		if err := m.store.Save(ctx, id, &next); err != nil {
			result = current
			return fmt.Errorf("failed to save layout: %w", err)
		}
		result = next
		return nil
	})
	return result, err
}

// Delete removes the layout from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying layout store.
func (m *Manager) Store() ports.LayoutStore {
	return m.store
}

// WithLock executes fn while holding the lock for the layout.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "layout:"+id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"layout", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) load(ctx context.Context, id string) (domain.Layout, error) {
	l, err := m.store.Load(ctx, id)
	if err != nil {
		return domain.Layout{}, err
	}
	if l == nil {
		return domain.Layout{}, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, id)
	}
	return *l, nil
}
