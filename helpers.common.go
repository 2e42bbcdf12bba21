package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrInvalidRequestBody = errors.New("invalid request body")
)

type (
	ContextKey        string
	missingFieldError string
)

const (
	BookIDPrefix            string     = "b"
	RequestIDPrefix         string     = "r"
	SessionIDPrefix         string     = "s"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// Fields size limits enforced by the store.
const (
	MaxTitleLength   = 200
	MaxAuthorLength  = 100
	MaxGenreLength   = 50
	MaxCommentLength = 1000
	MinRating        = 1
	MaxRating        = 5
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

// invalidFieldError reports a provided field whose value is out of bounds.
type invalidFieldError struct {
	field  string
	reason string
}

func (e invalidFieldError) Error() string {
	return e.field + " " + e.reason
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val := ctx.Value(RequestNumberContextKey); val != nil {
		return val.(uint64)
	}
	return 0
}

// DecodeRequestBody is a helper function to read the json content of a creation request.
func DecodeRequestBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrInvalidRequestBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequestBody, err)
	}
	return nil
}

// ValidateBookDraft is a helper function to check if the content of a book creation request is valid.
// Blank fields count as missing. The values themselves are stored as received.
func ValidateBookDraft(draft *BookDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return missingFieldError("title")
	}
	if strings.TrimSpace(draft.Author) == "" {
		return missingFieldError("author")
	}
	if strings.TrimSpace(draft.Genre) == "" {
		return missingFieldError("genre")
	}

	if utf8.RuneCountInString(draft.Title) > MaxTitleLength {
		return invalidFieldError{"title", fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
	}
	if utf8.RuneCountInString(draft.Author) > MaxAuthorLength {
		return invalidFieldError{"author", fmt.Sprintf("exceeds %d characters", MaxAuthorLength)}
	}
	if utf8.RuneCountInString(draft.Genre) > MaxGenreLength {
		return invalidFieldError{"genre", fmt.Sprintf("exceeds %d characters", MaxGenreLength)}
	}
	return nil
}

// ValidateReviewDraft is a helper function to check if the content of a review creation request is valid.
func ValidateReviewDraft(draft *ReviewDraft) error {
	if draft.Rating == 0 {
		return missingFieldError("rating")
	}
	if draft.Rating < MinRating || draft.Rating > MaxRating {
		return invalidFieldError{"rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}
	}
	if utf8.RuneCountInString(draft.Comment) > MaxCommentLength {
		return invalidFieldError{"comment", fmt.Sprintf("exceeds %d characters", MaxCommentLength)}
	}
	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	for _, ip := range strings.Split(ips, ",") {
		ip = strings.TrimSpace(ip)
		if netIP = net.ParseIP(ip); netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if netIP = net.ParseIP(ip); netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
