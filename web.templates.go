package main

import (
	"embed"
	"html/template"
)

//go:embed templates/index.html
var templatesFS embed.FS

// reviewView is a rendered review.
type reviewView struct {
	Rating  int
	Comment string
	Stars   []bool
}

// bookView is a rendered book card.
type bookView struct {
	ID           string
	Title        string
	Author       string
	Genre        string
	Count        int
	HasAverage   bool
	Average      int
	AverageStars []bool
	Reviews      []reviewView
	Form         ReviewForm
	CanSubmit    bool
}

// pageView is the data of the index template.
type pageView struct {
	Error           string
	Loading         bool
	ShowNewBookForm bool
	NewBook         BookDraft
	Genres          []string
	Ratings         []int
	Books           []bookView
}

// ParseTemplates loads the embedded page template.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/index.html")
}

// stars returns the five star slots filled up to rating.
func stars(rating int) []bool {
	s := make([]bool, MaxRating)
	for i := range s {
		s[i] = i < rating
	}
	return s
}

// NewPageView builds the template data from the session state.
func NewPageView(s *UIState) pageView {
	view := pageView{
		Error:           s.Error,
		Loading:         s.Loading,
		ShowNewBookForm: s.ShowNewBookForm,
		NewBook:         s.NewBook,
		Genres:          Genres,
		Ratings:         []int{1, 2, 3, 4, 5},
		Books:           make([]bookView, 0, len(s.Books)),
	}
	for _, b := range s.Books {
		bv := bookView{
			ID:        b.ID,
			Title:     b.Title,
			Author:    b.Author,
			Genre:     b.Genre,
			Count:     len(b.Reviews),
			Form:      s.ReviewFormOf(b.ID),
			CanSubmit: s.CanSubmitReview(b.ID),
		}
		if avg, ok := s.AverageStars(b); ok {
			bv.HasAverage = true
			bv.Average = avg
			bv.AverageStars = stars(avg)
		}
		for _, r := range b.Reviews {
			bv.Reviews = append(bv.Reviews, reviewView{Rating: r.Rating, Comment: r.Comment, Stars: stars(r.Rating)})
		}
		view.Books = append(view.Books, bv)
	}
	return view
}
