package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAPIClient ensures each call hits the expected endpoint and decodes the book.
//
//nolint:funlen
func TestAPIClient(t *testing.T) {
	var lastContentType string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastContentType = r.Header.Get("Content-Type")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/books":
			w.Write([]byte(`[{"id":"b:1","title":"Dune","author":"Frank Herbert","genre":"Fiction","reviews":null}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/books":
			var draft BookDraft
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(NewBook("b:2", draft))
		case r.Method == http.MethodGet && r.URL.Path == "/api/books/b:1":
			w.Write([]byte(`{"id":"b:1","title":"Dune","author":"Frank Herbert","genre":"Fiction","reviews":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/books/b:1/reviews":
			var draft ReviewDraft
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			json.NewEncoder(w).Encode(Book{ID: "b:1", Title: "Dune", Reviews: []Review{{draft.Rating, draft.Comment}}})
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"book does not exist"}`))
		}
	}))
	defer backend.Close()

	client := NewAPIClient(backend.URL+"/api/", nil)
	ctx := context.Background()

	t.Run("get books", func(t *testing.T) {
		books, err := client.GetBooks(ctx)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Dune", books[0].Title)
		assert.NotNil(t, books[0].Reviews)
	})

	t.Run("add book", func(t *testing.T) {
		book, err := client.AddBook(ctx, BookDraft{Title: "Emma", Author: "Jane Austen", Genre: "Romance"})
		require.NoError(t, err)
		assert.Equal(t, "b:2", book.ID)
		assert.Equal(t, "Emma", book.Title)
		assert.Empty(t, book.Reviews)
		assert.Equal(t, "application/json", lastContentType)
	})

	t.Run("get book", func(t *testing.T) {
		book, err := client.GetBook(ctx, "b:1")
		require.NoError(t, err)
		assert.Equal(t, "Frank Herbert", book.Author)
	})

	t.Run("add review", func(t *testing.T) {
		book, err := client.AddReview(ctx, "b:1", ReviewDraft{Rating: 4, Comment: "Great"})
		require.NoError(t, err)
		assert.Equal(t, []Review{{4, "Great"}}, book.Reviews)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := client.GetBook(ctx, "b:404")
		assert.ErrorIs(t, err, ErrFetchBook)
		assert.Contains(t, err.Error(), "status 404")

		_, err = client.AddReview(ctx, "b:404", ReviewDraft{Rating: 4})
		assert.ErrorIs(t, err, ErrAddReview)
	})
}

// TestAPIClient_Unreachable ensures transport failures are wrapped per operation.
func TestAPIClient_Unreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := backend.URL
	backend.Close()

	client := NewAPIClient(baseURL, nil)
	_, err := client.GetBooks(context.Background())
	assert.ErrorIs(t, err, ErrFetchBooks)
	_, err = client.AddBook(context.Background(), BookDraft{Title: "Dune"})
	assert.ErrorIs(t, err, ErrAddBook)
}
