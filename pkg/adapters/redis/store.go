package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/railyard/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// noExpiry is the index score of layouts stored without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.LayoutStore using Redis. Layouts are stored as
// msgpack blobs; a sorted set indexes them by expiry time.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for layouts.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now for index scores.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "railyard:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(layoutID string) string {
	return s.prefix + "layout:" + layoutID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the layout and refreshes its index entry in one pipeline.
func (s *Store) Save(ctx context.Context, layoutID string, layout *domain.Layout) error {
	data, err := encode(layout)
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	score := float64(s.now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(layoutID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: layoutID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a layout.
func (s *Store) Load(ctx context.Context, layoutID string) (*domain.Layout, error) {
	val, err := s.client.Get(ctx, s.key(layoutID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, layoutID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	layout, err := decode(val)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
	}
	return layout, nil
}

// Delete removes the layout and its index entry.
func (s *Store) Delete(ctx context.Context, layoutID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(layoutID))
	pipe.ZRem(ctx, s.indexKey(), layoutID)
	_, err := pipe.Exec(ctx)
	return err
}

// List prunes expired index entries and returns the remaining layout IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(s.now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired layouts: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// encode uses the json field names so stored blobs read like the JSON API.
func encode(layout *domain.Layout) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(layout); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*domain.Layout, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var layout domain.Layout
	if err := dec.Decode(&layout); err != nil {
		return nil, err
	}
	return &layout, nil
}
