package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type countingLimiter struct {
	limit int
	hits  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits[key]++
	return l.hits[key] <= l.limit, nil
}

type limitedPaths []string

func (p *limitedPaths) RateLimited(path string) { *p = append(*p, path) }

func limitedRouter(l Limiter, rec RateLimitRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/locations", RateLimit(l, rec, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	var rec limitedPaths
	r := limitedRouter(&countingLimiter{limit: 2, hits: map[string]int{}}, &rec)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/locations", nil))
		codes = append(codes, w.Code)
		if i == 2 && w.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
	if len(rec) != 1 || rec[0] != "/locations" {
		t.Fatalf("expected one rate-limited record, got %v", rec)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := limitedRouter(&countingLimiter{err: errors.New("redis down")}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/locations", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected fail open, got %d", w.Code)
	}
}
