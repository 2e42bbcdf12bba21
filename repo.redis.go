package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HBooks     string = "books"
	LBookOrder string = "books:order"
	// maxTxRetries bounds the optimistic transaction attempts on conflict.
	maxTxRetries = 10
)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// watch runs fn as an optimistic transaction over the books hash and
// retries it when another client modified the hash meanwhile.
func (rs *redisBookStorage) watch(ctx context.Context, fn func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := rs.client.Watch(ctx, fn, HBooks)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		rs.logger.Debug("redis: transaction conflict, retrying", zap.Int("attempt", i+1))
	}
	return fmt.Errorf("redis: transaction failed after %d attempts", maxTxRetries)
}

// Add inserts a book record. New ids are appended to the order list.
func (rs *redisBookStorage) Add(ctx context.Context, id string, book Book) error {
	book.ID = id
	book.normalize()
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return rs.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, HBooks, id).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HBooks, id, bookBytes)
			if !exists {
				pipe.RPush(ctx, LBookOrder, id)
			}
			return nil
		})
		return err
	})
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, id).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	book.normalize()
	return book, err
}

// AddReview appends a review to the book with a WATCH/MULTI transaction.
func (rs *redisBookStorage) AddReview(ctx context.Context, id string, review Review) (Book, error) {
	var book Book
	err := rs.watch(ctx, func(tx *redis.Tx) error {
		bookJSONString, err := tx.HGet(ctx, HBooks, id).Result()
		if err == redis.Nil {
			return ErrBookNotFound
		}
		if err != nil {
			return err
		}
		book = Book{}
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return err
		}
		book.normalize()
		book.Reviews = append(book.Reviews, review)
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HBooks, id, bookBytes)
			return nil
		})
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the redis database in creation order.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	books := []Book{}
	ids, err := rs.client.LRange(ctx, LBookOrder, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return books, nil
	}
	values, err := rs.client.HMGet(ctx, HBooks, ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		bookJSONString, ok := v.(string)
		if !ok {
			rs.logger.Warn("redis: ordered id without record", zap.String("book.id", ids[i]))
			continue
		}
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		book.normalize()
		books = append(books, book)
	}
	return books, nil
}
