package sessions

import (
	"context"
	"errors"
	"time"

	"studybuddy/studybuddy/types"

	"github.com/redis/go-redis/v9"
)

// SessionData is everything a logged-in interaction needs between requests.
type SessionData struct {
	ID                 string          `json:"id"`
	Username           string          `json:"username"`
	ActiveConversation string          `json:"active_conversation,omitempty"`
	Messages           []types.Message `json:"messages"`
	// Persisted counts the leading Messages already written to the transcript.
	Persisted int             `json:"persisted"`
	Companion []types.Message `json:"companion"`
	Theme     string          `json:"theme,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Version   int64           `json:"version"`
}

func (d *SessionData) clone() *SessionData {
	c := *d
	c.Messages = append([]types.Message(nil), d.Messages...)
	c.Companion = append([]types.Message(nil), d.Companion...)
	return &c
}

// Store defines the interface for session storage operations.
type Store interface {
	// Create stores a new session with Version 1.
	Create(ctx context.Context, data *SessionData) error

	// Get returns nil, nil when the session is unknown or expired. A hit
	// extends the session's expiry.
	Get(ctx context.Context, id string) (*SessionData, error)

	// Update persists data if its Version matches the stored one, then
	// increments Version. Returns types.ErrVersionConflict or types.ErrNotFound.
	Update(ctx context.Context, data *SessionData) error

	Delete(ctx context.Context, id string) error

	Close() error
}

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"

	defaultTTL = 24 * time.Hour
)

var ErrInvalidStoreType = errors.New("invalid session store type")

type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
}

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithClock only affects the memory store; Redis expires keys itself.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) { c.now = now }
}

func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = defaultTTL
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(cfg.ttl, cfg.now), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, types.ErrConfiguration
		}
		return NewRedisStore(cfg.redisClient, cfg.ttl), nil
	default:
		return nil, ErrInvalidStoreType
	}
}
