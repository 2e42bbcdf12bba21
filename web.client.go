package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrFetchBooks = errors.New("failed to fetch books")
	ErrAddBook    = errors.New("failed to add book")
	ErrFetchBook  = errors.New("failed to fetch book")
	ErrAddReview  = errors.New("failed to add review")
)

// APIClient calls the book endpoints through the proxy base URL.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient provides an APIClient. A nil httpClient uses http.DefaultClient.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GetBooks lists every book.
func (c *APIClient) GetBooks(ctx context.Context) ([]Book, error) {
	books := []Book{}
	if err := c.do(ctx, http.MethodGet, "/books", nil, &books); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchBooks, err)
	}
	for i := range books {
		books[i].normalize()
	}
	return books, nil
}

// AddBook creates a book and returns it with its assigned id.
func (c *APIClient) AddBook(ctx context.Context, draft BookDraft) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/books", draft, &book); err != nil {
		return Book{}, fmt.Errorf("%w: %v", ErrAddBook, err)
	}
	book.normalize()
	return book, nil
}

// GetBook fetches a single book.
func (c *APIClient) GetBook(ctx context.Context, id string) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, &book); err != nil {
		return Book{}, fmt.Errorf("%w: %v", ErrFetchBook, err)
	}
	book.normalize()
	return book, nil
}

// AddReview appends a review and returns the updated book.
func (c *APIClient) AddReview(ctx context.Context, bookID string, draft ReviewDraft) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/books/"+url.PathEscape(bookID)+"/reviews", draft, &book); err != nil {
		return Book{}, fmt.Errorf("%w: %v", ErrAddReview, err)
	}
	book.normalize()
	return book, nil
}

// do sends a json request and decodes a 2xx json response into out.
// Error bodies are drained but never parsed.
func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
