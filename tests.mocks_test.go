package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc       func(ctx context.Context, id string, book Book) error
	GetOneFunc    func(ctx context.Context, id string) (Book, error)
	GetAllFunc    func(ctx context.Context) ([]Book, error)
	AddReviewFunc func(ctx context.Context, id string, review Review) (Book, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, id string, book Book) error {
	return m.AddFunc(ctx, id, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// AddReview mocks the behavior of appending a review by the repository.
func (m *MockBookStorage) AddReview(ctx context.Context, id string, review Review) (Book, error) {
	return m.AddReviewFunc(ctx, id, review)
}

// MockQueuer implements a fake Queuer.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Book, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, book Book) error {
	return mq.PushFunc(ctx, qid, book)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	return mq.PopFunc(ctx, qids...)
}

// MockBookAPI implements a fake BookAPI used by the page state.
type MockBookAPI struct {
	GetBooksFunc  func(ctx context.Context) ([]Book, error)
	AddBookFunc   func(ctx context.Context, draft BookDraft) (Book, error)
	GetBookFunc   func(ctx context.Context, id string) (Book, error)
	AddReviewFunc func(ctx context.Context, bookID string, draft ReviewDraft) (Book, error)
	calls         int
}

func (m *MockBookAPI) GetBooks(ctx context.Context) ([]Book, error) {
	m.calls++
	return m.GetBooksFunc(ctx)
}

func (m *MockBookAPI) AddBook(ctx context.Context, draft BookDraft) (Book, error) {
	m.calls++
	return m.AddBookFunc(ctx, draft)
}

func (m *MockBookAPI) GetBook(ctx context.Context, id string) (Book, error) {
	m.calls++
	return m.GetBookFunc(ctx, id)
}

func (m *MockBookAPI) AddReview(ctx context.Context, bookID string, draft ReviewDraft) (Book, error) {
	m.calls++
	return m.AddReviewFunc(ctx, bookID, draft)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// newTestAPIHandler builds an api handler over the given storage without queue.
func newTestAPIHandler(storage BookStorage, uid UIDHandler) *APIHandler {
	config := &Config{}
	bs := NewBookService(nopLogger, storage, nil)
	return NewAPIHandler(nopLogger, config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), uid, bs)
}
