package main

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// WebHandler serves the browser page and the proxy.
type WebHandler struct {
	*BaseHandler
	sessions *SessionStore
	proxy    *Proxy
	tmpl     *template.Template
}

// NewWebHandler provides a new instance of WebHandler.
func NewWebHandler(base *BaseHandler, sessions *SessionStore, proxy *Proxy, tmpl *template.Template) *WebHandler {
	base.welcome = "Hello. Bookshelf web is available. Enjoy :)"
	return &WebHandler{
		BaseHandler: base,
		sessions:    sessions,
		proxy:       proxy,
		tmpl:        tmpl,
	}
}

// Home renders the page. The first view of a session only renders the loading
// indicator, which refreshes the page. The book list is fetched by that refresh.
func (wh *WebHandler) Home(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := GetLoggerFromContext(r.Context(), wh.logger)
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	if !state.Loaded {
		if state.Loading {
			state.Load(r.Context())
		} else {
			state.BeginLoad()
		}
	}
	view := NewPageView(state)
	state.Unlock()

	var buf bytes.Buffer
	if err := wh.tmpl.Execute(&buf, view); err != nil {
		logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error("failed to send page", zap.Error(err))
	}
}

// ToggleNewBook shows or hides the creation form. The empty state
// action sends open=1 to always show it.
func (wh *WebHandler) ToggleNewBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	if r.PostFormValue("open") == "1" {
		state.OpenNewBookForm()
	} else {
		state.ToggleNewBookForm()
	}
	state.Unlock()
	redirectHome(w, r)
}

// CreateBook submits the creation form.
func (wh *WebHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	state.SetNewBook(BookDraft{
		Title:  strings.TrimSpace(r.PostFormValue("title")),
		Author: strings.TrimSpace(r.PostFormValue("author")),
		Genre:  strings.TrimSpace(r.PostFormValue("genre")),
	})
	state.SubmitNewBook(r.Context())
	state.Unlock()
	redirectHome(w, r)
}

// ToggleReview shows or hides the review form of a book.
func (wh *WebHandler) ToggleReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	state.ToggleReviewForm(ps.ByName("id"))
	state.Unlock()
	redirectHome(w, r)
}

// SubmitReview updates the review form of a book then sends it when complete.
func (wh *WebHandler) SubmitReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	rating, err := strconv.Atoi(r.PostFormValue("rating"))
	if err != nil {
		rating = 0
	}
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	state.UpdateReviewForm(id, rating, r.PostFormValue("comment"))
	state.SubmitReview(r.Context(), id)
	state.Unlock()
	redirectHome(w, r)
}

// Reload fetches the book list again.
func (wh *WebHandler) Reload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := wh.sessions.FromRequest(w, r)
	state.Lock()
	state.Load(r.Context())
	state.Unlock()
	redirectHome(w, r)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
