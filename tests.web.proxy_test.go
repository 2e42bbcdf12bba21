package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProxyForward ensures method, sub-path, query, headers and body reach the backend.
func TestProxyForward(t *testing.T) {
	var (
		gotMethod, gotPath, gotQuery, gotBody string
		gotHeader                            http.Header
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotMethod, gotPath, gotQuery, gotBody = r.Method, r.URL.Path, r.URL.RawQuery, string(data)
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"b:1","title":"Dune","author":"Frank Herbert","genre":"Fiction","reviews":[]}`))
	}))
	defer backend.Close()

	p := NewProxy(nopLogger, backend.URL, 5*time.Second)
	payload := `{"title":"Dune","author":"Frank Herbert","genre":"Fiction"}`
	req := httptest.NewRequest(http.MethodPost, "/api/books?source=ui", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	p.Forward(w, req, httprouter.Params{{Key: "path", Value: "/books"}})

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/books", gotPath)
	assert.Equal(t, "source=ui", gotQuery)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Bearer token", gotHeader.Get("Authorization"))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.JSONEq(t, `{"id":"b:1","title":"Dune","author":"Frank Herbert","genre":"Fiction","reviews":[]}`, w.Body.String())
}

// TestProxyForward_Headers ensures inbound headers override the default
// content type and the forced CORS headers override the upstream ones.
func TestProxyForward_Headers(t *testing.T) {
	var gotContentType string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Access-Control-Allow-Origin", "https://store.example")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	p := NewProxy(nopLogger, backend.URL, 5*time.Second)
	req := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	p.Forward(w, req, httprouter.Params{{Key: "path", Value: "/books"}})

	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
}

// TestProxyForward_Status ensures upstream errors are relayed as is.
func TestProxyForward_Status(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		status int
		body   string
	}{
		{"not found", http.MethodGet, http.StatusNotFound, `{"requestid":"r:1","status":404,"message":"book does not exist","data":{}}`},
		{"bad request", http.MethodPost, http.StatusBadRequest, `{"requestid":"r:2","status":400,"message":"failed to add the review","data":"rating is required"}`},
		{"delete passthrough", http.MethodDelete, http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.method, r.Method)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer backend.Close()

			p := NewProxy(nopLogger, backend.URL, time.Second)
			req := httptest.NewRequest(tc.method, "/api/books/b:1", strings.NewReader(`{}`))
			w := httptest.NewRecorder()
			p.Forward(w, req, httprouter.Params{{Key: "path", Value: "/books/b:1"}})
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

// TestProxyForward_Unreachable ensures a transport failure becomes a generic 500.
func TestProxyForward_Unreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backendURL := backend.URL
	backend.Close()

	p := NewProxy(nopLogger, backendURL, time.Second)
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	w := httptest.NewRecorder()
	p.Forward(w, req, httprouter.Params{{Key: "path", Value: "/books"}})

	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(data))
}
