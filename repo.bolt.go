package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// orderBucketName returns the bucket holding the creation order of books.
func orderBucketName(bucket string) []byte {
	return []byte(bucket + ".order")
}

// GetBoltDBClient setup the database and the buckets then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database folder, %v", err)
	}
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BucketName, errB)
		}
		if _, errB := tx.CreateBucketIfNotExists(orderBucketName(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s order bucket: %v", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// Add inserts a book record into boltdb store. An existing record with
// the same id is replaced and keeps its position in the listing.
func (bs *boltBookStorage) Add(_ context.Context, id string, book Book) error {
	book.ID = id
	book.normalize()
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if b.Get([]byte(id)) == nil {
			o := tx.Bucket(orderBucketName(bs.config.BucketName))
			seq, err := o.NextSequence()
			if err != nil {
				return err
			}
			if err = o.Put(itob(seq), []byte(id)); err != nil {
				return err
			}
		}
		return b.Put([]byte(id), bookBytes)
	})
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bs.config.BucketName)).Get([]byte(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	book.normalize()
	return book, err
}

// AddReview appends a review to a stored book within a single write transaction.
func (bs *boltBookStorage) AddReview(_ context.Context, id string, review Review) (Book, error) {
	var book Book
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		result := b.Get([]byte(id))
		if result == nil {
			return ErrBookNotFound
		}
		if err := json.Unmarshal(result, &book); err != nil {
			return err
		}
		book.normalize()
		book.Reviews = append(book.Reviews, review)
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the bolt database
// following their creation order.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b := tx.Bucket([]byte(bs.config.BucketName))
	// Create a cursor on the order bucket.
	c := tx.Bucket(orderBucketName(bs.config.BucketName)).Cursor()

	books := []Book{}
	for k, id := c.First(); k != nil; k, id = c.Next() {
		v := b.Get(id)
		if v == nil {
			bs.logger.Warn("bolt: ordered id without record", zap.String("book.id", string(id)))
			continue
		}
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		book.normalize()
		books = append(books, book)
	}
	return books, nil
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
