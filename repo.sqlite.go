package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteBooksSchema = `
CREATE TABLE IF NOT EXISTS books (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	id     TEXT NOT NULL UNIQUE,
	title  TEXT NOT NULL,
	author TEXT NOT NULL,
	genre  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reviews (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL REFERENCES books(id),
	rating  INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_book_id ON reviews(book_id);
`

type sqliteBookStorage struct {
	logger *zap.Logger
	db     *sql.DB
}

// GetSQLiteClient opens the database file and creates the tables if needed.
func GetSQLiteClient(config *Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.SQLite.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database folder: %w", err)
	}
	db, err := sql.Open("sqlite", config.SQLite.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(sqliteBooksSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// NewSQLiteBookStorage provides an instance of sqlite-based book storage.
func NewSQLiteBookStorage(logger *zap.Logger, db *sql.DB) BookStorage {
	return &sqliteBookStorage{logger: logger, db: db}
}

// Close closes the database connection.
func (ss *sqliteBookStorage) Close() error {
	return ss.db.Close()
}

// Add inserts a book with its reviews. An existing record with the same
// id is replaced and keeps its position in the listing.
func (ss *sqliteBookStorage) Add(ctx context.Context, id string, book Book) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO books (id, title, author, genre) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, author = excluded.author, genre = excluded.genre`,
		id, book.Title, book.Author, book.Genre,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = ?`, id); err != nil {
		return fmt.Errorf("failed to reset reviews: %w", err)
	}
	for _, r := range book.Reviews {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO reviews (book_id, rating, comment) VALUES (?, ?, ?)`,
			id, r.Rating, r.Comment,
		); err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ss *sqliteBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return ss.getOne(ctx, ss.db, id)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (ss *sqliteBookStorage) getOne(ctx context.Context, q queryer, id string) (Book, error) {
	book := Book{Reviews: []Review{}}
	err := q.QueryRowContext(ctx,
		`SELECT id, title, author, genre FROM books WHERE id = ?`, id,
	).Scan(&book.ID, &book.Title, &book.Author, &book.Genre)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to query book: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT rating, comment FROM reviews WHERE book_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return Book{}, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Review
		if err = rows.Scan(&r.Rating, &r.Comment); err != nil {
			return Book{}, fmt.Errorf("failed to scan review: %w", err)
		}
		book.Reviews = append(book.Reviews, r)
	}
	return book, rows.Err()
}

// GetAll retrieves all books with their reviews in creation order.
func (ss *sqliteBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT id, title, author, genre FROM books ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	books := []Book{}
	index := map[string]int{}
	for rows.Next() {
		book := Book{Reviews: []Review{}}
		if err = rows.Scan(&book.ID, &book.Title, &book.Author, &book.Genre); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		index[book.ID] = len(books)
		books = append(books, book)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ss.db.QueryContext(ctx, `SELECT book_id, rating, comment FROM reviews ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var r Review
		if err = rows.Scan(&id, &r.Rating, &r.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if i, ok := index[id]; ok {
			books[i].Reviews = append(books[i].Reviews, r)
		}
	}
	return books, rows.Err()
}

// AddReview appends a review and returns the updated book within one transaction.
func (ss *sqliteBookStorage) AddReview(ctx context.Context, id string, review Review) (Book, error) {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return Book{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM books WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return Book{}, fmt.Errorf("failed to query book: %w", err)
	}
	if exists == 0 {
		return Book{}, ErrBookNotFound
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (book_id, rating, comment) VALUES (?, ?, ?)`,
		id, review.Rating, review.Comment,
	); err != nil {
		return Book{}, fmt.Errorf("failed to insert review: %w", err)
	}
	book, err := ss.getOne(ctx, tx, id)
	if err != nil {
		return Book{}, err
	}
	if err = tx.Commit(); err != nil {
		return Book{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return book, nil
}
