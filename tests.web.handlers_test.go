package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebHandler(t *testing.T, backendURL string, api BookAPI) *WebHandler {
	t.Helper()
	tmpl, err := ParseTemplates()
	require.NoError(t, err)
	base := newTestBaseHandler(&Config{})
	sessions, err := NewSessionStore(NewIDsHandler(), NewMockClocker(), 100, time.Hour, func() *UIState { return NewUIState(nopLogger, api) })
	require.NoError(t, err)
	return NewWebHandler(base, sessions, NewProxy(nopLogger, backendURL, 5*time.Second), tmpl)
}

// serve runs the request against the router with the session cookie if any.
func serve(router http.Handler, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// TestWebHandler_Home ensures the page shows the loading indicator first
// then loads the list once per session.
func TestWebHandler_Home(t *testing.T) {
	api := &MockBookAPI{GetBooksFunc: func(ctx context.Context) ([]Book, error) {
		return nil, ErrFetchBooks
	}}
	wh := newTestWebHandler(t, "http://127.0.0.1:0", api)
	router := wh.SetupRoutes(httprouter.New(), newTestMiddlewareMap())

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "Amazon Books")
	assert.Contains(t, body, "Loading books...")
	assert.Contains(t, body, `<meta http-equiv="refresh" content="0">`)
	assert.NotContains(t, body, "No books yet")
	assert.Equal(t, 0, api.calls)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	w = serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, `role="alert">Failed to fetch books`)
	assert.Contains(t, body, "No books yet")
	assert.NotContains(t, body, "Loading books...")
	assert.NotContains(t, body, "http-equiv")
	assert.Equal(t, 1, api.calls)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, api.calls)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/ui/reload", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, 2, api.calls)
}

// TestWebHandler_LoadingIndicator ensures the indicator is served without
// waiting for the list and stays until the fetch resolves.
func TestWebHandler_LoadingIndicator(t *testing.T) {
	release := make(chan struct{})
	api := &MockBookAPI{GetBooksFunc: func(ctx context.Context) ([]Book, error) {
		<-release
		return []Book{{ID: "b:1", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Reviews: []Review{}}}, nil
	}}
	wh := newTestWebHandler(t, "http://127.0.0.1:0", api)
	router := wh.SetupRoutes(httprouter.New(), newTestMiddlewareMap())

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Contains(t, w.Body.String(), "Loading books...")
	cookie := sessionCookie(t, w)

	done := make(chan string)
	go func() {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
		done <- w.Body.String()
	}()

	state, ok := wh.sessions.Get(cookie.Value)
	require.True(t, ok)
	select {
	case <-done:
		t.Fatal("page served before the list fetch resolved")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case body := <-done:
		assert.Contains(t, body, "Dune")
		assert.NotContains(t, body, "Loading books...")
	case <-time.After(5 * time.Second):
		t.Fatal("page not served after the list fetch resolved")
	}
	state.Lock()
	assert.True(t, state.Loaded)
	assert.False(t, state.Loading)
	state.Unlock()
}

// TestWebHandler_SessionsBound ensures cookieless traffic neither grows the
// sessions beyond their limit nor reaches the store.
func TestWebHandler_SessionsBound(t *testing.T) {
	api := &MockBookAPI{GetBooksFunc: func(ctx context.Context) ([]Book, error) { return []Book{}, nil }}
	wh := newTestWebHandler(t, "http://127.0.0.1:0", api)
	router := wh.SetupRoutes(httprouter.New(), newTestMiddlewareMap())

	for i := 0; i < 500; i++ {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	for i := 0; i < 200; i++ {
		w := serve(router, postForm("/ui/books/b:"+strconv.Itoa(i)+"/reviews/toggle", url.Values{}), nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}
	assert.Equal(t, 100, wh.sessions.Len())
	assert.Equal(t, 0, api.calls)
}

// TestWebHandler_Forms ensures form actions drive the session state.
//
//nolint:funlen
func TestWebHandler_Forms(t *testing.T) {
	api := &MockBookAPI{
		GetBooksFunc: func(ctx context.Context) ([]Book, error) { return []Book{}, nil },
		AddBookFunc: func(ctx context.Context, draft BookDraft) (Book, error) {
			return NewBook("b:1", draft), nil
		},
		AddReviewFunc: func(ctx context.Context, bookID string, draft ReviewDraft) (Book, error) {
			return Book{ID: bookID, Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Reviews: []Review{{draft.Rating, draft.Comment}}}, nil
		},
	}
	wh := newTestWebHandler(t, "http://127.0.0.1:0", api)
	router := wh.SetupRoutes(httprouter.New(), newTestMiddlewareMap())

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	cookie := sessionCookie(t, w)
	state, ok := wh.sessions.Get(cookie.Value)
	require.True(t, ok)
	serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	require.True(t, state.Loaded)

	w = serve(router, postForm("/ui/new-book/toggle", url.Values{"open": {"1"}}), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, state.ShowNewBookForm)
	w = serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Contains(t, w.Body.String(), "Enter book title")

	w = serve(router, postForm("/ui/books", url.Values{"title": {"Dune"}, "author": {"Frank Herbert"}, "genre": {"Science Fiction"}}), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.Len(t, state.Books, 1)
	assert.False(t, state.ShowNewBookForm)

	w = serve(router, postForm("/ui/books/b:1/reviews/toggle", url.Values{}), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, state.ReviewFormOf("b:1").Show)
	w = serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Contains(t, w.Body.String(), "Submit Review")
	assert.Contains(t, w.Body.String(), "disabled>Submit Review")

	w = serve(router, postForm("/ui/books/b:1/reviews", url.Values{"rating": {"5"}, "comment": {"Masterpiece"}}), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []Review{{5, "Masterpiece"}}, state.Books[0].Reviews)
	assert.False(t, state.ReviewFormOf("b:1").Show)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	body := w.Body.String()
	assert.Contains(t, body, "1 review<")
	assert.Contains(t, body, `data-average="5"`)
	assert.Contains(t, body, "(5/5)")
	assert.NotContains(t, body, "No books yet")
}

// TestWebEndToEnd drives the page through the proxy down to a live store.
//
//nolint:funlen
func TestWebEndToEnd(t *testing.T) {
	storage, err := NewMemoryBookStorage(nopLogger)
	require.NoError(t, err)
	config := &Config{}
	bs := NewBookService(nopLogger, storage, nil)
	api := NewAPIHandler(nopLogger, config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewIDsHandler(), bs)
	apiPub, apiOps := api.MiddlewaresStacks(CORSMiddleware)
	store := httptest.NewServer(api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: apiPub.Chain, ops: apiOps.Chain}))
	defer store.Close()

	var webURL string
	tmpl, err := ParseTemplates()
	require.NoError(t, err)
	base := NewBaseHandler(nopLogger, &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewIDsHandler())
	sessions, err := NewSessionStore(NewIDsHandler(), NewMockClocker(), 10, time.Hour, func() *UIState {
		return NewUIState(nopLogger, NewAPIClient(webURL+"/api", nil))
	})
	require.NoError(t, err)
	wh := NewWebHandler(base, sessions, NewProxy(nopLogger, store.URL, 5*time.Second), tmpl)
	webPub, webOps := wh.MiddlewaresStacks()
	web := httptest.NewServer(wh.SetupRoutes(httprouter.New(), &MiddlewareMap{public: webPub.Chain, ops: webOps.Chain}))
	defer web.Close()
	webURL = web.URL

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	page := func(res *http.Response, err error) string {
		t.Helper()
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
		data, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return string(data)
	}

	body := page(browser.Get(webURL + "/"))
	assert.Contains(t, body, "Loading books...")
	body = page(browser.Get(webURL + "/"))
	assert.Contains(t, body, "No books yet")

	body = page(browser.PostForm(webURL+"/ui/new-book/toggle", url.Values{"open": {"1"}}))
	assert.Contains(t, body, "Enter book title")

	body = page(browser.PostForm(webURL+"/ui/books", url.Values{"title": {"Dune"}, "author": {"Frank Herbert"}, "genre": {"Science Fiction"}}))
	assert.Contains(t, body, "Dune")
	assert.Contains(t, body, "0 reviews")
	assert.NotContains(t, body, "Failed to add book")

	books, err := NewAPIClient(webURL+"/api", nil).GetBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	id := books[0].ID
	assert.True(t, NewIDsHandler().IsValid(id, BookIDPrefix))

	page(browser.PostForm(webURL+"/ui/books/"+id+"/reviews/toggle", url.Values{}))
	body = page(browser.PostForm(webURL+"/ui/books/"+id+"/reviews", url.Values{"rating": {"5"}, "comment": {"Masterpiece"}}))
	assert.Contains(t, body, "Masterpiece")
	assert.Contains(t, body, "(5/5)")
	assert.Contains(t, body, `data-average="5"`)
	assert.NotContains(t, body, "Failed to add review")

	res, err := http.Get(store.URL + "/books/" + id)
	require.NoError(t, err)
	defer res.Body.Close()
	var stored Book
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stored))
	assert.Equal(t, []Review{{5, "Masterpiece"}}, stored.Reviews)
}
