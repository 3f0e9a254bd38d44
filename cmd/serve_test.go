package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/store"
)

// stubStore overrides just the store methods a test exercises; calling
// anything else panics on the embedded nil interface.
type stubStore struct {
	store.Store
	entries []model.WatchlistEntry
	prev    *model.MAScore
	prevErr error
}

func (s *stubStore) ListWatchlist(context.Context) ([]model.WatchlistEntry, error) {
	return s.entries, nil
}

func (s *stubStore) PreviousScore(context.Context, string) (*model.MAScore, error) {
	return s.prev, s.prevErr
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	router := buildRouter(&env{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_Watchlist(t *testing.T) {
	router := buildRouter(&env{store: &stubStore{
		entries: []model.WatchlistEntry{{CompanyID: "acme", CompanyName: "Acme Biosciences", CurrentScore: 82}},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/watchlist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var entries []model.WatchlistEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "acme", entries[0].CompanyID)
}

func TestBuildRouter_GetScoreNotFound(t *testing.T) {
	router := buildRouter(&env{store: &stubStore{
		prevErr: eris.Wrap(store.ErrNotFound, "company ghost"),
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/scores/ghost", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildRouter_GetScoreNeverScored(t *testing.T) {
	router := buildRouter(&env{store: &stubStore{}})

	req := httptest.NewRequest(http.MethodGet, "/api/scores/acme", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not scored yet")
}

func TestBuildRouter_BatchRejectsBadBody(t *testing.T) {
	router := buildRouter(&env{})

	req := httptest.NewRequest(http.MethodPost, "/api/scores/batch", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestWriteError_MapsNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, eris.Wrap(store.ErrNotFound, "company ghost"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	writeError(rr, eris.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "boom")
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusAccepted, map[string]int{"n": 3})

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"n":3}`, rr.Body.String())
}
