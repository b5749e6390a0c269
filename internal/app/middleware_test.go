package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inigma/internal/ratelimit"
)

func TestContentLengthValidator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := ContentLengthValidator(64)(next)

	t.Run("within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/create", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/create",
			strings.NewReader(strings.Repeat("x", 100)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/create", strings.NewReader("{}"))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusLengthRequired, rec.Code)
	})

	t.Run("get passes without body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimitGate(t *testing.T) {
	rules := map[string]ratelimit.Rule{
		ratelimit.OpView: {Limit: 2, Window: time.Minute},
	}
	limiter := ratelimit.New(ratelimit.NewMemoryCounterStore(), rules,
		ratelimit.Rule{Limit: 200, Window: time.Minute}, testLogger(t))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRateLimitGate(limiter).Gate(ratelimit.OpView)(next)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/view", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	second := send()
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := send()
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	require.NotEmpty(t, third.Header().Get("Retry-After"))
	require.Contains(t, third.Body.String(), "rate limit exceeded")
}

func TestRateLimitGateKeysByIP(t *testing.T) {
	rules := map[string]ratelimit.Rule{
		ratelimit.OpView: {Limit: 1, Window: time.Minute},
	}
	limiter := ratelimit.New(ratelimit.NewMemoryCounterStore(), rules,
		ratelimit.Rule{Limit: 200, Window: time.Minute}, testLogger(t))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRateLimitGate(limiter).Gate(ratelimit.OpView)(next)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/view", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// same IP through different source ports shares one window
	require.Equal(t, http.StatusOK, send("198.51.100.7:1001"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.7:1002"))

	// a different IP is unaffected
	require.Equal(t, http.StatusOK, send("203.0.113.9:1001"))
}

func TestRateLimitOverHTTP(t *testing.T) {
	rules := map[string]ratelimit.Rule{
		ratelimit.OpCreate: {Limit: 3, Window: time.Minute},
	}
	ts := testServer(t, rules)

	var last *http.Response
	for i := 0; i < 4; i++ {
		resp := postJSON(t, ts, "/api/create", createBody(fmt.Sprintf("creator-%d", i)))
		if i < 3 {
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			resp.Body.Close()
			continue
		}
		last = resp
	}
	defer last.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	require.NotEmpty(t, last.Header.Get("Retry-After"))
}
