package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	var rejected []string
	h := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), 1, 1, func(reason string) { rejected = append(rejected, reason) })

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/classify", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/classify", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if len(rejected) != 1 || rejected[0] != "rate_limit" {
		t.Fatalf("unexpected reject callbacks: %v", rejected)
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	h := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), 1, 1, nil)

	for i := range 3 {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = fmt.Sprintf("10.0.0.%d:4000", i+1)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("client %d: expected 204, got %d", i, rec.Code)
		}
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.limiter("10.0.0.1")
	limiter.limiter("10.0.0.2")
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", limiter.Len())
	}

	now = now.Add(rateLimiterIdleTTL / 2)
	limiter.limiter("10.0.0.1")

	now = now.Add(rateLimiterIdleTTL/2 + time.Minute)
	limiter.limiter("10.0.0.3")
	if limiter.Len() != 2 {
		t.Fatalf("expected idle bucket swept, got %d", limiter.Len())
	}
	if _, ok := limiter.clients["10.0.0.2"]; ok {
		t.Fatalf("expected 10.0.0.2 to be evicted")
	}
	if _, ok := limiter.clients["10.0.0.1"]; !ok {
		t.Fatalf("expected recently seen client to be kept")
	}
}

func TestBackpressureRejectsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := backpressureWithReject(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}), 1, 20*time.Millisecond, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/batches", nil))
	}()
	<-entered

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", nil))
	close(release)
	wg.Wait()

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestIdentityMiddlewareResolvesBearerToken(t *testing.T) {
	var seen []string
	h := identityMiddleware(map[string]string{"tok": "user-7"}, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = append(seen, identityFromContext(r.Context()))
	}))

	for _, header := range []string{"Bearer tok", "Bearer nope", "Basic tok", ""} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	want := []string{"user-7", "", "", ""}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d: expected identity %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{"unauthorized", domain.WrapError(domain.ErrUnauthorized, "op", errors.New("x")), http.StatusUnauthorized},
		{"not found", domain.WrapError(domain.ErrNotFound, "op", errors.New("x")), http.StatusNotFound},
		{"temporary", domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{"too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
