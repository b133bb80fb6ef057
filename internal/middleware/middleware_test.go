package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/ecoswitch-go/internal/config"
)

func newManager(t *testing.T, apiKey string) *config.Manager {
	t.Helper()
	mgr := config.NewManager(t.TempDir())
	cfg := config.Default()
	cfg.APIKey = apiKey
	require.NoError(t, mgr.Save(cfg))
	return mgr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	base := New(mark("a"), mark("b"))
	extended := base.Then(mark("c"))

	extended.Handler(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)

	order = nil
	base.Handler(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order, "Then must not mutate the base chain")
}

func TestAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		name       string
		apiKey     string
		path       string
		header     string
		value      string
		wantStatus int
	}{
		{"no key configured", "", "/api/chat", "", "", http.StatusOK},
		{"missing token", "secret", "/api/chat", "", "", http.StatusUnauthorized},
		{"bearer", "secret", "/api/chat", "Authorization", "Bearer secret", http.StatusOK},
		{"x-api-key", "secret", "/api/chat", "X-API-Key", "secret", http.StatusOK},
		{"wrong token", "secret", "/api/chat", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"health skipped", "secret", "/health", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthMiddleware(newManager(t, tt.apiKey), logger)(okHandler())

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "API key not authorized")
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", seen)
	assert.Equal(t, "caller-id", rec.Header().Get(RequestIDHeader))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	chain := New(NewRequestIDMiddleware(), NewLoggingMiddleware(logger))
	h := chain.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/send", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "HTTP Request")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "length=15")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "path=/api/send")
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusNotFound, rw.status)
	assert.Same(t, rw, wrapResponseWriter(rw))
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/things/{id}", NewMetricsMiddleware()(okHandler()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
