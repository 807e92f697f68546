package drivers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/viant/mlvec/engine"
	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/version"
)

// Kind names a record store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

var (
	// ErrInvalidKind is returned by New for an unknown backend name.
	ErrInvalidKind = errors.New("drivers: invalid store kind")
	// ErrInvalidConfig is returned by New when required options are missing.
	ErrInvalidConfig = errors.New("drivers: invalid store configuration")

	errClosed = errors.New("drivers: store is closed")
)

// Option is a functional option for configuring a record store.
type Option func(*config)

type config struct {
	dsn         string
	db          *sql.DB
	redisClient *redis.Client
	redisAddr   string
	version     version.Version
}

// WithDSN sets the SQLite data source name; the default is ":memory:".
func WithDSN(dsn string) Option {
	return func(c *config) { c.dsn = dsn }
}

// WithDB makes the SQLite store use an existing database handle, which the
// store will not close.
func WithDB(db *sql.DB) Option {
	return func(c *config) { c.db = db }
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) { c.redisClient = client }
}

// WithRedisAddr makes the Redis store dial addr when no client is given.
func WithRedisAddr(addr string) Option {
	return func(c *config) { c.redisAddr = addr }
}

// WithServerVersion sets the version reported by the memory store.
func WithServerVersion(v version.Version) Option {
	return func(c *config) { c.version = v }
}

// New creates a record store of the given kind. An empty kind selects SQLite.
// For Redis, requires WithRedisClient or WithRedisAddr.
func New(kind Kind, opts ...Option) (vector.Store, error) {
	cfg := &config{dsn: ":memory:"}
	for _, opt := range opts {
		opt(cfg)
	}

	switch kind {
	case KindMemory:
		return NewMemoryStore(cfg.version), nil

	case KindSQLite, "":
		if cfg.db != nil {
			return vector.NewSQLiteStore(cfg.db)
		}
		db, err := engine.Open(cfg.dsn)
		if err != nil {
			return nil, fmt.Errorf("drivers: open sqlite %q: %w", cfg.dsn, err)
		}
		store, err := vector.NewSQLiteStore(db, vector.WithCloseDB())
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil

	case KindRedis:
		client := cfg.redisClient
		if client == nil {
			if cfg.redisAddr == "" {
				return nil, ErrInvalidConfig
			}
			client = redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		}
		return NewRedisStore(client), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}
