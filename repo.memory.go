package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"go.uber.org/zap"
)

const memBooksTable = "books"

// memBookRecord is the memdb row of a book. Seq keeps the creation order
// as a zero-padded decimal so the radix index iterates it numerically.
type memBookRecord struct {
	ID   string
	Seq  string
	Book Book
}

type memoryBookStorage struct {
	logger *zap.Logger
	db     *memdb.MemDB
	seq    uint64
}

func memBooksSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memBooksTable: {
				Name: memBooksTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"seq": {
						Name:    "seq",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Seq"},
					},
				},
			},
		},
	}
}

// NewMemoryBookStorage provides an instance of in-memory book storage.
func NewMemoryBookStorage(logger *zap.Logger) (BookStorage, error) {
	db, err := memdb.NewMemDB(memBooksSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &memoryBookStorage{logger: logger, db: db}, nil
}

// Add inserts a new book record. Records are never mutated in place,
// memdb requires a fresh object on each insert.
func (ms *memoryBookStorage) Add(_ context.Context, id string, book Book) error {
	txn := ms.db.Txn(true)
	defer txn.Abort()

	book.ID = id
	book.normalize()
	record := memBookRecord{
		ID:   id,
		Seq:  fmt.Sprintf("%020d", atomic.AddUint64(&ms.seq, 1)),
		Book: book,
	}

	raw, err := txn.First(memBooksTable, "id", id)
	if err != nil {
		return fmt.Errorf("storing book: %w", err)
	}
	if raw != nil {
		record.Seq = raw.(memBookRecord).Seq
	}

	if err = txn.Insert(memBooksTable, record); err != nil {
		return fmt.Errorf("storing book: %w", err)
	}
	txn.Commit()
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ms *memoryBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	txn := ms.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memBooksTable, "id", id)
	if err != nil {
		return Book{}, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return Book{}, ErrBookNotFound
	}
	return copyBook(raw.(memBookRecord).Book), nil
}

// GetAll retrieves all books in their creation order.
func (ms *memoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	txn := ms.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memBooksTable, "seq")
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	books := []Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		books = append(books, copyBook(obj.(memBookRecord).Book))
	}
	return books, nil
}

// AddReview appends a review to the book inside a single write transaction.
func (ms *memoryBookStorage) AddReview(_ context.Context, id string, review Review) (Book, error) {
	txn := ms.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memBooksTable, "id", id)
	if err != nil {
		return Book{}, fmt.Errorf("adding review: %w", err)
	}
	if raw == nil {
		return Book{}, ErrBookNotFound
	}

	record := raw.(memBookRecord)
	record.Book = copyBook(record.Book)
	record.Book.Reviews = append(record.Book.Reviews, review)
	if err = txn.Insert(memBooksTable, record); err != nil {
		return Book{}, fmt.Errorf("adding review: %w", err)
	}
	txn.Commit()
	return copyBook(record.Book), nil
}

// copyBook detaches the reviews slice from the stored record.
func copyBook(b Book) Book {
	reviews := make([]Review, len(b.Reviews))
	copy(reviews, b.Reviews)
	b.Reviews = reviews
	return b
}
