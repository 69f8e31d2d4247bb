package activitylog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ElasticsearchRepo writes entries as documents into one index over the REST API.
type ElasticsearchRepo struct {
	node       string
	index      string
	apiKey     string
	httpClient *http.Client
}

type ElasticsearchOption func(*ElasticsearchRepo)

func WithElasticsearchHTTPClient(hc *http.Client) ElasticsearchOption {
	return func(r *ElasticsearchRepo) {
		if hc != nil {
			r.httpClient = hc
		}
	}
}

func NewElasticsearchRepo(node, index, apiKey string, opts ...ElasticsearchOption) *ElasticsearchRepo {
	r := &ElasticsearchRepo{
		node:       strings.TrimRight(node, "/"),
		index:      index,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ElasticsearchError is a non-2xx response from the cluster.
type ElasticsearchError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ElasticsearchError) Error() string {
	return fmt.Sprintf("elasticsearch %s: %d - %s", e.Op, e.StatusCode, e.Body)
}

type esDocument struct {
	Timestamp time.Time      `json:"timestamp"`
	Tab       Tab            `json:"tab"`
	Action    Action         `json:"action"`
	Session   string         `json:"user_session"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
}

func (r *ElasticsearchRepo) Append(ctx context.Context, e Entry) error {
	doc := esDocument{
		Timestamp: e.Timestamp,
		Tab:       e.Tab,
		Action:    e.Action,
		Session:   e.Session,
		Input:     e.Input,
		Output:    e.Output,
	}
	_, err := r.do(ctx, "index", http.MethodPost, "/_doc/"+url.PathEscape(e.ID), doc)
	return err
}

func (r *ElasticsearchRepo) Search(ctx context.Context, q Query) ([]Entry, error) {
	q = q.withDefaults()

	var must []map[string]any
	if q.Tab != "" {
		must = append(must, map[string]any{"term": map[string]any{"tab": q.Tab}})
	}
	if q.Action != "" {
		must = append(must, map[string]any{"term": map[string]any{"action": q.Action}})
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		rng := map[string]any{}
		if !q.From.IsZero() {
			rng["gte"] = q.From.UTC().Format(time.RFC3339Nano)
		}
		if !q.To.IsZero() {
			rng["lte"] = q.To.UTC().Format(time.RFC3339Nano)
		}
		must = append(must, map[string]any{"range": map[string]any{"timestamp": rng}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must}}
	}
	body := map[string]any{
		"query": query,
		"sort":  []any{map[string]any{"timestamp": map[string]any{"order": "desc"}}},
		"size":  q.Size,
	}

	raw, err := r.do(ctx, "search", http.MethodPost, "/_search", body)
	if err != nil {
		return nil, err
	}

	var res struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source esDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]Entry, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		out = append(out, Entry{
			ID:        h.ID,
			Timestamp: h.Source.Timestamp.UTC(),
			Tab:       h.Source.Tab,
			Action:    h.Source.Action,
			Session:   h.Source.Session,
			Input:     orEmpty(h.Source.Input),
			Output:    orEmpty(h.Source.Output),
		})
	}
	return out, nil
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"timestamp":    map[string]any{"type": "date"},
			"tab":          map[string]any{"type": "keyword"},
			"action":       map[string]any{"type": "keyword"},
			"user_session": map[string]any{"type": "keyword"},
			"input":        map[string]any{"type": "object"},
			"output":       map[string]any{"type": "object"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (r *ElasticsearchRepo) EnsureIndex(ctx context.Context) error {
	req, err := r.newRequest(ctx, http.MethodHead, "", nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elasticsearch index check: %w", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, err := r.do(ctx, "create index", http.MethodPut, "", indexMapping)
		return err
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return &ElasticsearchError{Op: "index check", StatusCode: resp.StatusCode}
	}
}

func (r *ElasticsearchRepo) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	req, err := r.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ElasticsearchError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (r *ElasticsearchRepo) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.node+"/"+url.PathEscape(r.index)+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: build request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+r.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
