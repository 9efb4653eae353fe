package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/internal/testutil"
)

func TestHTTPSource_URL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "root", base: "https://example.com", path: "", want: "https://example.com/data/spells.json"},
		{name: "sub path", base: "https://example.com/app", path: "data/spells.json", want: "https://example.com/app/data/spells.json"},
		{name: "sub path with slash", base: "https://example.com/app/", path: "/data/spells.json", want: "https://example.com/app/data/spells.json"},
		{name: "custom file", base: "http://localhost:8080/", path: "spells-v2.json", want: "http://localhost:8080/spells-v2.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &HTTPSource{BaseURL: tt.base, Path: tt.path}
			got, err := src.URL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	body := testutil.CatalogJSON(t, testutil.Spells())
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	src := &HTTPSource{BaseURL: srv.URL + "/deploy", Path: DefaultPath, Client: srv.Client()}
	s := New(src)
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, "/deploy/data/spells.json", <-paths)
	assert.Len(t, s.GetAll(), len(testutil.Spells()))
	assert.Equal(t, "test-1", s.Metadata().Version)
}

func TestHTTPSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := New(&HTTPSource{BaseURL: srv.URL, Client: srv.Client()})
	err := s.Load(context.Background())

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, http.StatusNotFound, loadErr.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPSource_TooLarge(t *testing.T) {
	data := testutil.CatalogJSON(t, testutil.Spells())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	s := New(&HTTPSource{BaseURL: srv.URL, Client: srv.Client(), MaxSize: int64(len(data)) - 1})
	err := s.Load(context.Background())

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr))
	assert.Contains(t, err.Error(), "exceeds")

	exact := New(&HTTPSource{BaseURL: srv.URL, Client: srv.Client(), MaxSize: int64(len(data))})
	require.NoError(t, exact.Load(context.Background()))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spells.json")
	require.NoError(t, os.WriteFile(path, testutil.CatalogJSON(t, testutil.Spells()), 0o644))

	s := New(FileSource{Path: path})
	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.GetAll(), len(testutil.Spells()))
}

func TestFileSource_Missing(t *testing.T) {
	s := New(FileSource{Path: filepath.Join(t.TempDir(), "missing.json")})
	err := s.Load(context.Background())

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.CatalogConfig{Source: config.CatalogEmbedded})
	require.NoError(t, err)
	assert.Equal(t, "embedded", describe(src))

	src, err = NewSource(config.CatalogConfig{Source: config.CatalogFile, Path: "/tmp/spells.json"})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "/tmp/spells.json"}, src)

	src, err = NewSource(config.CatalogConfig{Source: config.CatalogHTTP, BaseURL: "https://example.com/app", Timeout: 5 * time.Second})
	require.NoError(t, err)
	httpSrc, ok := src.(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, httpSrc.Client.Timeout)

	_, err = NewSource(config.CatalogConfig{Source: config.CatalogFile})
	assert.Error(t, err)

	_, err = NewSource(config.CatalogConfig{Source: "ftp"})
	assert.Error(t, err)
}
