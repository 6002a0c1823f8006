package appconfig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillx/sessiongate"
	"github.com/skillx/sessiongate/userstore"
	"github.com/skillx/sessiongate/userstore/postgres"
	"github.com/skillx/sessiongate/userstore/sqlite"
)

// NewRedisClient parses url and returns a client. Nothing is dialed until
// the first command.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// UserStore is a user store together with the function that releases it.
type UserStore struct {
	userstore.Store
	Close func()
}

// OpenUserStore opens the backend named by db.Driver and applies its
// schema.
func OpenUserStore(ctx context.Context, db sessiongate.DatabaseConfig, log *slog.Logger) (UserStore, error) {
	switch db.Driver {
	case sessiongate.DriverMemory, "":
		log.Info("userstore.memory")
		return UserStore{Store: userstore.NewMemoryStore(), Close: func() {}}, nil

	case sessiongate.DriverSQLite:
		st, err := sqlite.Open(db.SQLitePath)
		if err != nil {
			return UserStore{}, err
		}
		log.Info("userstore.sqlite", "path", db.SQLitePath)
		return UserStore{Store: st, Close: func() { _ = st.Close() }}, nil

	case sessiongate.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:             db.URL,
			MaxConns:        db.MaxConnections,
			MaxConnIdleTime: db.MaxConnIdleTime,
			ConnectTimeout:  db.ConnectTimeout,
		})
		if err != nil {
			return UserStore{}, err
		}
		st, err := postgres.NewStore(pool)
		if err != nil {
			pool.Close()
			return UserStore{}, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, nonZero(db.ConnectTimeout, 5*time.Second)*3)
		defer cancel()
		if err := st.Migrate(migrateCtx); err != nil {
			pool.Close()
			return UserStore{}, err
		}
		log.Info("userstore.postgres")
		return UserStore{Store: st, Close: pool.Close}, nil

	default:
		return UserStore{}, fmt.Errorf("unknown user store driver %q", db.Driver)
	}
}

func nonZero(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
