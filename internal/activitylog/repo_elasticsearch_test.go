package activitylog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElasticsearchRepo_AppendIndexesDocument(t *testing.T) {
	var path, auth string
	var doc map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, auth = r.URL.Path, r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &doc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"abc","result":"created"}`))
	}))
	defer srv.Close()

	repo := NewElasticsearchRepo(srv.URL+"/", "logs", "key")
	err := repo.Append(context.Background(), Entry{
		ID: "abc", Timestamp: time.Now().UTC(), Tab: TabSource, Action: ActionSelection, Session: "session_1",
		Input: map[string]any{"query": "bondi"}, Output: map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, "/logs/_doc/abc", path)
	assert.Equal(t, "ApiKey key", auth)
	assert.Equal(t, "selection", doc["action"])
	assert.Equal(t, "session_1", doc["user_session"])
	assert.NotContains(t, doc, "id")
}

func TestElasticsearchRepo_SearchQueryShape(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs/_search", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"x1","_source":{"timestamp":"2024-01-01T00:00:00Z","tab":"verifier","action":"validation","user_session":"s","input":{"postcode":"2000"},"output":{"result":"success"}}}]}}`))
	}))
	defer srv.Close()

	got, err := NewElasticsearchRepo(srv.URL, "logs", "").Search(context.Background(), Query{Tab: TabVerifier, From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x1", got[0].ID)
	assert.Equal(t, "success", got[0].Output["result"])

	assert.EqualValues(t, 50, body["size"])
	must := body["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	assert.Len(t, must, 2)
}

func TestElasticsearchRepo_SearchMatchAllWithoutFilters(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	defer srv.Close()

	got, err := NewElasticsearchRepo(srv.URL, "logs", "").Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, body["query"], "match_all")
}

func TestElasticsearchRepo_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewElasticsearchRepo(srv.URL, "logs", "").Append(context.Background(), Entry{ID: "a"})
	var esErr *ElasticsearchError
	require.ErrorAs(t, err, &esErr)
	assert.Equal(t, http.StatusInternalServerError, esErr.StatusCode)
}

func TestElasticsearchRepo_EnsureIndexCreatesWhenMissing(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	require.NoError(t, NewElasticsearchRepo(srv.URL, "logs", "").EnsureIndex(context.Background()))
	assert.Equal(t, []string{http.MethodHead, http.MethodPut}, methods)
}
