package main

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Banner messages shown by the page.
const (
	BannerFetchBooks = "Failed to fetch books"
	BannerAddBook    = "Failed to add book"
	BannerAddReview  = "Failed to add review"
)

// Genres offered by the creation form.
var Genres = []string{
	"Fiction", "Non-Fiction", "Mystery", "Romance", "Science Fiction",
	"Fantasy", "Biography", "History", "Self-Help", "Other",
}

// BookAPI is the set of calls the page makes. It is satisfied by *APIClient.
type BookAPI interface {
	GetBooks(ctx context.Context) ([]Book, error)
	AddBook(ctx context.Context, draft BookDraft) (Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	AddReview(ctx context.Context, bookID string, draft ReviewDraft) (Book, error)
}

// ReviewForm is the pending review of a single book.
type ReviewForm struct {
	Rating  int
	Comment string
	Show    bool
}

// UIState is the page state of one browser session. Callers must hold
// the lock returned by Lock while running an operation and rendering.
type UIState struct {
	mu     sync.Mutex
	api    BookAPI
	logger *zap.Logger

	Books           []Book
	Loading         bool
	Loaded          bool
	Error           string
	NewBook         BookDraft
	ShowNewBookForm bool
	Reviews         map[string]*ReviewForm
}

// NewUIState provides an empty page state bound to api.
func NewUIState(logger *zap.Logger, api BookAPI) *UIState {
	return &UIState{
		api:     api,
		logger:  logger,
		Books:   []Book{},
		Reviews: make(map[string]*ReviewForm),
	}
}

func (s *UIState) Lock()   { s.mu.Lock() }
func (s *UIState) Unlock() { s.mu.Unlock() }

// BeginLoad marks the list as pending. The page shows the loading
// indicator until the next view runs Load.
func (s *UIState) BeginLoad() {
	s.Loading = true
}

// Load fetches the book list. On failure the list is left empty.
func (s *UIState) Load(ctx context.Context) {
	s.Loading = true
	defer func() {
		s.Loading = false
		s.Loaded = true
	}()

	books, err := s.api.GetBooks(ctx)
	if err != nil {
		s.logger.Error("ui: failed to fetch books", zap.Error(err))
		s.Books = []Book{}
		s.Error = BannerFetchBooks
		return
	}
	s.Books = books
	s.Error = ""
}

// ToggleNewBookForm shows or hides the creation form.
func (s *UIState) ToggleNewBookForm() {
	s.ShowNewBookForm = !s.ShowNewBookForm
}

// OpenNewBookForm shows the creation form. It backs the empty state action.
func (s *UIState) OpenNewBookForm() {
	s.ShowNewBookForm = true
}

// SetNewBook replaces the creation form values.
func (s *UIState) SetNewBook(draft BookDraft) {
	s.NewBook = draft
}

// CanSubmitNewBook reports whether every required field is filled.
func (s *UIState) CanSubmitNewBook() bool {
	return strings.TrimSpace(s.NewBook.Title) != "" &&
		strings.TrimSpace(s.NewBook.Author) != "" &&
		strings.TrimSpace(s.NewBook.Genre) != ""
}

// SubmitNewBook creates the drafted book. It returns false when nothing
// was sent or the call failed, in which case the form keeps its values.
func (s *UIState) SubmitNewBook(ctx context.Context) bool {
	if !s.CanSubmitNewBook() {
		return false
	}
	book, err := s.api.AddBook(ctx, s.NewBook)
	if err != nil {
		s.logger.Error("ui: failed to add book", zap.Error(err))
		s.Error = BannerAddBook
		return false
	}
	s.Books = append(s.Books, book)
	s.NewBook = BookDraft{}
	s.ShowNewBookForm = false
	s.Error = ""
	return true
}

// hasBook reports whether the book is part of the loaded list.
func (s *UIState) hasBook(bookID string) bool {
	for _, b := range s.Books {
		if b.ID == bookID {
			return true
		}
	}
	return false
}

// ToggleReviewForm flips the visibility of a book review form and
// resets its values. Other books forms are untouched. Unknown books are ignored.
func (s *UIState) ToggleReviewForm(bookID string) {
	if !s.hasBook(bookID) {
		return
	}
	show := false
	if f, ok := s.Reviews[bookID]; ok {
		show = f.Show
	}
	s.Reviews[bookID] = &ReviewForm{Show: !show}
}

// UpdateReviewForm sets the rating and the comment of a book review form.
// Unknown books are ignored.
func (s *UIState) UpdateReviewForm(bookID string, rating int, comment string) {
	if !s.hasBook(bookID) {
		return
	}
	f, ok := s.Reviews[bookID]
	if !ok {
		f = &ReviewForm{}
		s.Reviews[bookID] = f
	}
	f.Rating = rating
	f.Comment = comment
}

// ReviewFormOf returns a copy of the review form of a book or an empty one.
func (s *UIState) ReviewFormOf(bookID string) ReviewForm {
	if f, ok := s.Reviews[bookID]; ok {
		return *f
	}
	return ReviewForm{}
}

// CanSubmitReview reports whether the book form has a valid rating and a comment.
func (s *UIState) CanSubmitReview(bookID string) bool {
	f, ok := s.Reviews[bookID]
	if !ok {
		return false
	}
	return f.Rating >= MinRating && f.Rating <= MaxRating && f.Comment != ""
}

// SubmitReview sends the book review form. The book is replaced by the
// returned version and its form is reset and hidden on success.
func (s *UIState) SubmitReview(ctx context.Context, bookID string) bool {
	if !s.CanSubmitReview(bookID) {
		return false
	}
	f := s.Reviews[bookID]
	book, err := s.api.AddReview(ctx, bookID, ReviewDraft{Rating: f.Rating, Comment: f.Comment})
	if err != nil {
		s.logger.Error("ui: failed to add review", zap.String("book.id", bookID), zap.Error(err))
		s.Error = BannerAddReview
		return false
	}
	for i := range s.Books {
		if s.Books[i].ID == bookID {
			s.Books[i] = book
		}
	}
	s.Reviews[bookID] = &ReviewForm{}
	s.Error = ""
	return true
}

// AverageStars returns the rounded mean rating of a book and false
// when the book has no reviews.
func (s *UIState) AverageStars(book Book) (int, bool) {
	return AverageRating(book)
}
