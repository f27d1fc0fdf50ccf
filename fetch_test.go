package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// uexServer serves testdata/uex by id_category. Categories in failing answer
// with that status.
type uexServer struct {
	t       *testing.T
	failing map[string]int

	mu       sync.Mutex
	requests []string
	tokens   []string
}

var fixtureByID = map[string]string{
	"28": CategoryGadgets,
	"29": CategoryLaserheads,
	"30": CategoryModules,
}

func (s *uexServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id_category")
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path+"?"+id)
	s.tokens = append(s.tokens, r.Header.Get("Authorization"))
	s.mu.Unlock()

	if code, ok := s.failing[id]; ok {
		http.Error(w, "upstream unavailable", code)
		return
	}
	name, ok := fixtureByID[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	file := name + ".json"
	if r.URL.Path == "/items_attributes" {
		file = name + "_attributes.json"
	}
	data, err := os.ReadFile(filepath.Join("testdata", "uex", file))
	if err != nil {
		s.t.Errorf("read fixture: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *uexServer) seen() (requests, tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...), append([]string(nil), s.tokens...)
}

func newTestFetcher(t *testing.T, srv *httptest.Server) *Fetcher {
	t.Helper()
	f, err := NewFetcher(UEXConfig{BaseURL: srv.URL + "/", Token: "secret", Timeout: "5s", Concurrency: 2}, zap.NewNop())
	require.NoError(t, err)
	return f
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(UEXConfig{BaseURL: "https://api.example.test/2.0/", Concurrency: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test/2.0", f.BaseURL)
	assert.NotNil(t, f.Logger)
	assert.Equal(t, 30.0, f.Client.Timeout.Seconds())

	_, err = NewFetcher(UEXConfig{Timeout: "soon"}, nil)
	assert.Error(t, err)
}

func TestFetchAll(t *testing.T) {
	handler := &uexServer{t: t}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "data")
	saved, err := newTestFetcher(t, srv).FetchAll(context.Background(), DefaultConfig().Categories, dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Categories, saved)

	requests, tokens := handler.seen()
	assert.ElementsMatch(t, []string{
		"/items?28", "/items_attributes?28",
		"/items?29", "/items_attributes?29",
		"/items?30", "/items_attributes?30",
	}, requests)
	for _, tok := range tokens {
		assert.Equal(t, "Bearer secret", tok)
	}

	for _, c := range saved {
		body, err := os.ReadFile(rawItemsPath(dir, c.Name))
		require.NoError(t, err)
		assert.Contains(t, string(body), "\n  ")
		_, err = ParseAPIItems(body)
		require.NoError(t, err, c.Name)

		body, err = os.ReadFile(rawAttributesPath(dir, c.Name))
		require.NoError(t, err)
		_, err = ParseAPIAttributes(body)
		require.NoError(t, err, c.Name)
	}
}

func TestFetchAllContinuesPastFailure(t *testing.T) {
	handler := &uexServer{t: t, failing: map[string]int{"29": http.StatusBadGateway}}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	dir := t.TempDir()
	saved, err := newTestFetcher(t, srv).FetchAll(context.Background(), DefaultConfig().Categories, dir)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, CategoryLaserheads, statusErr.Category)
	assert.Equal(t, endpointItems, statusErr.Endpoint)

	assert.Equal(t, []Category{{ID: 28, Name: CategoryGadgets}, {ID: 30, Name: CategoryModules}}, saved)
	assert.FileExists(t, rawItemsPath(dir, CategoryModules))
	assert.NoFileExists(t, rawItemsPath(dir, CategoryLaserheads))
}

func TestFetchCategoryStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).FetchCategory(context.Background(), Category{ID: 28, Name: CategoryGadgets})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Len(t, statusErr.Body, maxErrorBody)
	assert.Contains(t, err.Error(), "fetch items for gadgets: status 503")
}

func TestFetchCategoryMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"requests_limit_reached"}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).FetchCategory(context.Background(), Category{ID: 30, Name: CategoryModules})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFetchCategoryCanceled(t *testing.T) {
	srv := httptest.NewServer(&uexServer{t: t})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher(t, srv).FetchCategory(ctx, Category{ID: 28, Name: CategoryGadgets})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchWithoutToken(t *testing.T) {
	handler := &uexServer{t: t}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	f := newTestFetcher(t, srv)
	f.Token = ""
	_, err := f.FetchCategory(context.Background(), Category{ID: 28, Name: CategoryGadgets})
	require.NoError(t, err)
	_, tokens := handler.seen()
	assert.Equal(t, []string{"", ""}, tokens)
}

func TestCategoryPayloadSaveExpandsArrays(t *testing.T) {
	dir := t.TempDir()
	p := &CategoryPayload{
		Category:   Category{ID: 30, Name: CategoryModules},
		Items:      []byte(`{"data":[{"id":1,"tags":["a","b"]}]}`),
		Attributes: []byte(`{"data":[]}`),
	}
	require.NoError(t, p.Save(dir))

	body, err := os.ReadFile(rawItemsPath(dir, CategoryModules))
	require.NoError(t, err)
	want := `{
  "data": [
    {
      "id": 1,
      "tags": [
        "a",
        "b"
      ]
    }
  ]
}
`
	assert.Equal(t, want, string(body))
}
