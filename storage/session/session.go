// Package sessionstore opens the session store selected by the configuration.
package sessionstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/session"
	"github.com/trezcool/tutorhub/storage/session/bolt"
	"github.com/trezcool/tutorhub/storage/session/inmem"
	"github.com/trezcool/tutorhub/storage/session/postgres"
	"github.com/trezcool/tutorhub/storage/session/redis"
)

// Drivers
const (
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Open returns the store named by conf.Sessions.Driver; bolt by default.
func Open(ctx context.Context, conf *core.Config) (session.Store, error) {
	switch conf.Sessions.Driver {
	case DriverMemory:
		return inmemstore.New(), nil
	case DriverRedis:
		store, err := redisstore.Open(ctx, conf.Sessions.RedisAddr, conf.Sessions.RedisPassword, conf.Sessions.TTL)
		return store, errors.Wrap(err, "opening redis session store")
	case DriverPostgres:
		if err := pgstore.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating session database")
		}
		db, err := pgstore.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening session database")
		}
		if err = pgstore.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating session database")
		}
		return pgstore.New(db, conf.Sessions.TTL), nil
	case DriverBolt, "":
		if dir := filepath.Dir(conf.Sessions.BoltPath); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrap(err, "creating session store directory")
			}
		}
		store, err := boltstore.Open(conf.Sessions.BoltPath)
		return store, errors.Wrap(err, "opening bolt session store")
	default:
		return nil, errors.Errorf("unknown sessions driver %q", conf.Sessions.Driver)
	}
}
