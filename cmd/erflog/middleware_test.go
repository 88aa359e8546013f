package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/internal/ctxkeys"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_ChainedWithOtherMiddleware(t *testing.T) {
	handler := Chain(okHandler(), SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_PropagatesToContext(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-123")
	RequestID()(inner).ServeHTTP(w, r)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	Recovery(zap.NewNop())(inner).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/v1/interview/chat", "/api/v1/interview/chat"},
		{"/api/v1/sessions", "/api/v1/sessions"},
		{"/ws/interview/18", "/ws/interview/:id"},
		{"/ws/interview/job_18", "/ws/interview/:id"},
		{"/ws/interview/text/job-7", "/ws/interview/text/:id"},
		{"/api/v1/interviews/42", "/api/v1/interviews/:id"},
		{"/api/v1/sessions/0b7e2c9a-1f3d-4c55-9a0e-3c1b2d4e5f60", "/api/v1/sessions/:id"},
		{"/api/v1/unknown", "/api/v1/unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

type recordedRequest struct {
	method string
	path   string
	status int
	size   int64
}

type fakeHTTPRecorder struct {
	requests []recordedRequest
}

func (f *fakeHTTPRecorder) RecordHTTPRequest(method, path string, status int, _ time.Duration, size int64) {
	f.requests = append(f.requests, recordedRequest{method, path, status, size})
}

func TestMetricsMiddleware(t *testing.T) {
	rec := &fakeHTTPRecorder{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/interviews/7", nil)
	MetricsMiddleware(rec)(inner).ServeHTTP(w, r)

	require.Len(t, rec.requests, 1)
	assert.Equal(t, recordedRequest{"GET", "/api/v1/interviews/:id", http.StatusNotFound, 4}, rec.requests[0])
}

func TestCORS(t *testing.T) {
	t.Run("empty list allows any origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://app.example.com")
		CORS(nil)(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://app.example.com")
		CORS([]string{"https://app.example.com"})(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight from unknown origin is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/interview/chat", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		r.Header.Set("Access-Control-Request-Method", "POST")
		CORS([]string{"https://app.example.com"})(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/interview/chat", nil)
		r.Header.Set("Origin", "https://app.example.com")
		r.Header.Set("Access-Control-Request-Method", "POST")
		CORS(nil)(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, 1, 1, zap.NewNop())(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// 不同 IP 独立计数
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.7:4321"
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, other)
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestRateLimiter_DisabledWhenZero(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, 0, 0, zap.NewNop())(okHandler())
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth([]string{"secret"}, []string{"/health"}, true, zap.NewNop())(okHandler())

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"header key", "/api/v1/sessions", "secret", http.StatusOK},
		{"missing key", "/api/v1/sessions", "", http.StatusUnauthorized},
		{"wrong key", "/api/v1/sessions", "nope", http.StatusUnauthorized},
		{"skip path", "/health", "", http.StatusOK},
		{"query key on websocket", "/ws/interview/18?api_key=secret", "", http.StatusOK},
		{"query key ignored on api", "/api/v1/sessions?api_key=secret", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	handler := APIKeyAuth(nil, nil, false, zap.NewNop())(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	cfg := config.AuthConfig{JWTSecret: secret, JWTIssuer: "erflog", AllowQueryToken: true}

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = ctxkeys.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuth(cfg, []string{"/health"}, zap.NewNop())(inner)

	future := time.Now().Add(time.Hour).Unix()
	valid := signToken(t, secret, jwt.MapClaims{"sub": "42", "iss": "erflog", "exp": future})
	numericUser := signToken(t, secret, jwt.MapClaims{"user_id": float64(7), "iss": "erflog", "exp": future})
	expired := signToken(t, secret, jwt.MapClaims{"sub": "42", "iss": "erflog", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongIssuer := signToken(t, secret, jwt.MapClaims{"sub": "42", "iss": "other", "exp": future})
	wrongSecret := signToken(t, "other-secret", jwt.MapClaims{"sub": "42", "iss": "erflog", "exp": future})
	noSubject := signToken(t, secret, jwt.MapClaims{"iss": "erflog", "exp": future})

	tests := []struct {
		name     string
		target   string
		auth     string
		want     int
		wantUser string
	}{
		{"valid bearer", "/api/v1/sessions", "Bearer " + valid, http.StatusOK, "42"},
		{"user_id claim", "/api/v1/sessions", "Bearer " + numericUser, http.StatusOK, "7"},
		{"query token on websocket", "/ws/interview/18?token=" + valid, "", http.StatusOK, "42"},
		{"query token ignored on api", "/api/v1/sessions?token=" + valid, "", http.StatusUnauthorized, ""},
		{"missing header", "/api/v1/sessions", "", http.StatusUnauthorized, ""},
		{"malformed header", "/api/v1/sessions", "Token " + valid, http.StatusUnauthorized, ""},
		{"expired", "/api/v1/sessions", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong issuer", "/api/v1/sessions", "Bearer " + wrongIssuer, http.StatusUnauthorized, ""},
		{"wrong secret", "/api/v1/sessions", "Bearer " + wrongSecret, http.StatusUnauthorized, ""},
		{"no subject", "/api/v1/sessions", "Bearer " + noSubject, http.StatusUnauthorized, ""},
		{"skip path", "/health", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func TestJWTAuth_RejectsNoneAlgorithm(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "test-secret"}
	handler := JWTAuth(cfg, nil, zap.NewNop())(okHandler())

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	r.Header.Set("Authorization", "Bearer "+unsigned)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"*"}, originPatterns(nil))
	assert.Equal(t,
		[]string{"app.example.com", "localhost:3000", "*.example.org"},
		originPatterns([]string{"https://app.example.com", "http://localhost:3000", "*.example.org"}))
}

func TestCloseAll_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []int
	errA := errors.New("a")
	closers := []func() error{
		func() error { order = append(order, 1); return errA },
		func() error { order = append(order, 2); return nil },
		func() error { order = append(order, 3); return nil },
	}

	err := closeAll(closers)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, errA)
}
