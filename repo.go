package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewBookStorage builds the storage selected by the configured driver.
// The redis client is only required by the redis driver. The returned
// closer releases the resources owned by the storage.
func NewBookStorage(logger *zap.Logger, config *Config, redisClient *redis.Client) (BookStorage, func() error, error) {
	nop := func() error { return nil }
	switch config.Storage.Driver {
	case MemoryDriver:
		storage, err := NewMemoryBookStorage(logger)
		return storage, nop, err
	case BoltDriver:
		client, err := GetBoltDBClient(&config.BoltDB)
		if err != nil {
			return nil, nop, err
		}
		return NewBoltBookStorage(logger, &config.BoltDB, client), client.Close, nil
	case SQLiteDriver:
		db, err := GetSQLiteClient(config)
		if err != nil {
			return nil, nop, err
		}
		return NewSQLiteBookStorage(logger, db), db.Close, nil
	case RedisDriver:
		if redisClient == nil {
			return nil, nop, fmt.Errorf("redis storage requires a redis client")
		}
		return NewRedisBookStorage(logger, redisClient), nop, nil
	}
	return nil, nop, fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
}
