package main

import (
	"context"
	"math"
)

// Book represents a cataloged book with its reviews. Reviews are append-only
// and kept in submission order.
type Book struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Author  string   `json:"author"`
	Genre   string   `json:"genre"`
	Reviews []Review `json:"reviews"`
}

// Review is an anonymous rating with its comment.
type Review struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// BookDraft is the creation payload of a book before an id is assigned.
type BookDraft struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}

// ReviewDraft is the creation payload of a review.
type ReviewDraft struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	AddReview(ctx context.Context, id string, review Review) (Book, error)
}

// NewBook builds a book from a draft with an empty reviews list.
func NewBook(id string, draft BookDraft) Book {
	return Book{
		ID:      id,
		Title:   draft.Title,
		Author:  draft.Author,
		Genre:   draft.Genre,
		Reviews: []Review{},
	}
}

// AverageRating returns the mean rating rounded to the nearest integer.
// It reports false when the book has no reviews.
func AverageRating(book Book) (int, bool) {
	n := len(book.Reviews)
	if n == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range book.Reviews {
		sum += r.Rating
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// normalize makes sure a decoded book never carries a nil reviews list.
func (b *Book) normalize() {
	if b.Reviews == nil {
		b.Reviews = []Review{}
	}
}
