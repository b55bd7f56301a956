package kv

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/storage/database"
	"github.com/trezcool/ktx/storage/kv/inmem"
	"github.com/trezcool/ktx/storage/kv/pgstore"
	"github.com/trezcool/ktx/storage/kv/redisdb"
)

// backends
const (
	Memory   = "memory"
	Redis    = "redis"
	Postgres = "postgres"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Open opens the configured backend. The postgres backend creates and migrates its database first.
func Open(ctx context.Context, conf *core.Config) (core.KVStore, error) {
	switch conf.Store.Backend {
	case Memory, "":
		return inmem.NewStore(), nil
	case Redis:
		store := redisdb.Open(conf)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, "connecting to redis")
		}
		return store, nil
	case Postgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return pgstore.NewStore(db), nil
	default:
		return nil, errors.Wrap(ErrUnknownBackend, conf.Store.Backend)
	}
}
