package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthMiddleware(t *testing.T) {
	dir := t.TempDir()
	mgr, err := session.NewManager(
		credentials.NewStore(filepath.Join(dir, "users.json"), credentials.WithBcryptCost(bcrypt.MinCost)),
		transcripts.NewStore(filepath.Join(dir, "chats")),
		sessions.NewMemoryStore(time.Hour, nil),
		[]byte("secret"), time.Hour,
	)
	require.NoError(t, err)
	login, err := mgr.Register(context.Background(), "alice", "pw", "555")
	require.NoError(t, err)

	var seen string
	h := AuthMiddleware(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFrom(r.Context()).Username
	}))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Token "+login.Token))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer nope"))
	assert.Equal(t, http.StatusOK, do("Bearer "+login.Token))
	assert.Equal(t, "alice", seen)

	require.NoError(t, mgr.Logout(context.Background(), login.Session))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+login.Token))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"), "same host, different port")
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111"), "separate bucket per client")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))

	now = now.Add(limiterIdleTTL + time.Minute)
	do("10.0.0.3:1")
	assert.Len(t, l.limiters, 1, "idle buckets are dropped")
}

func TestRateLimiter_SweepsAtMostOncePerIdleTTL(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now := start
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }
	at := func(offset time.Duration, host string) {
		now = start.Add(offset)
		l.allow(host)
	}

	at(0, "a")
	at(5*time.Minute, "c")
	at(limiterIdleTTL, "d")
	assert.Len(t, l.limiters, 3, "nothing idle long enough yet")

	at(16*time.Minute, "e")
	assert.Len(t, l.limiters, 4, "a and c are idle but the last sweep was 6 minutes ago")
	assert.Equal(t, start.Add(limiterIdleTTL), l.lastSweep)

	at(20*time.Minute, "f")
	assert.Len(t, l.limiters, 3)
	assert.NotContains(t, l.limiters, "a")
	assert.NotContains(t, l.limiters, "c")
}

func TestRequestLoggerPassesStatus(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
