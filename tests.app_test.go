package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppConfig(t *testing.T, driver string) *Config {
	t.Helper()
	dir := t.TempDir()
	config := &Config{
		LogFolder: filepath.Join(dir, "logs"),
		Storage:   StorageConfig{Driver: driver},
		SQLite:    SQLiteConfig{FilePath: filepath.Join(dir, "data", "books.sqlite")},
		BoltDB:    BoltDBConfig{FilePath: filepath.Join(dir, "data", "books.bolt.db")},
	}
	require.NoError(t, InitConfig(config, "", "", ""))
	return config
}

func TestNewStoreApp(t *testing.T) {
	for _, driver := range []string{MemoryDriver, BoltDriver, SQLiteDriver} {
		t.Run(driver, func(t *testing.T) {
			config := newTestAppConfig(t, driver)
			provider, err := NewStoreApp(config)
			require.NoError(t, err)
			app := provider.(*App)
			defer app.Clean()
			assert.Equal(t, StoreMode, app.mode)
			assert.Equal(t, "0.0.0.0:8000", app.server.Addr)
			assert.Empty(t, app.queueConsumers)

			w := httptest.NewRecorder()
			app.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `[]`, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestNewWebApp(t *testing.T) {
	config := newTestAppConfig(t, MemoryDriver)
	provider, err := NewWebApp(config)
	require.NoError(t, err)
	app := provider.(*App)
	defer app.Clean()
	assert.Equal(t, WebMode, app.mode)
	assert.Equal(t, "0.0.0.0:3000", app.server.Addr)

	w := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bookshelf web is available")
}

func TestLoopbackURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:3000", loopbackURL("0.0.0.0", "3000"))
	assert.Equal(t, "http://127.0.0.1:3000", loopbackURL("", "3000"))
	assert.Equal(t, "http://localhost:3000", loopbackURL("localhost", "3000"))
	assert.Equal(t, "http://[::1]:3000", loopbackURL("::1", "3000"))
}
