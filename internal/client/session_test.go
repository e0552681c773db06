package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeServer answers /api/auth/me for a single good token and rejects
// everything else with 401.
func fakeServer(t *testing.T, goodToken string, user User) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/me" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get(TokenHeader) != goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"msg": "Token is not valid"})
			return
		}
		json.NewEncoder(w).Encode(user)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestSession(server *httptest.Server, store TokenStore) *Session {
	session := NewSession(NewAPI(server.URL), store, testLogger())
	session.verifyBackoff = time.Millisecond
	return session
}

func TestStartWithoutStoredToken(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice"})
	session := newTestSession(server, NewMemoryTokenStore(""))

	session.Start(context.Background())

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)
	assert.False(t, session.Authenticated())
	assert.Nil(t, session.User())
}

func TestStartWithValidStoredToken(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice", Role: "user"})
	session := newTestSession(server, NewMemoryTokenStore("good"))

	session.Start(context.Background())

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
	require.NotNil(t, session.User())
	assert.Equal(t, "alice", session.User().Username)
	assert.Equal(t, "good", session.Token())
}

func TestStartWithRejectedTokenClearsStore(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice"})
	store := NewMemoryTokenStore("stale")
	session := newTestSession(server, store)

	session.Start(context.Background())

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)
	assert.Empty(t, session.Token())

	// a confirmed rejection also discards the persisted token
	assert.Eventually(t, func() bool {
		stored, loadErr := store.Load()
		return loadErr == nil && stored == ""
	}, time.Second, 5*time.Millisecond)
}

func TestTransportFailureKeepsStoredToken(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// close the connection without a response
		if hijacker, ok := w.(http.Hijacker); ok {
			if conn, _, err := hijacker.Hijack(); err == nil {
				conn.Close()
			}
		}
	}))
	t.Cleanup(server.Close)

	store := NewMemoryTokenStore("maybe-valid")
	session := newTestSession(server, store)

	session.Start(context.Background())

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)

	// each attempt must have hit the server before giving up
	assert.Equal(t, int64(defaultVerifyAttempts), calls.Load())

	// the persisted token survives so the next start can retry
	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "maybe-valid", stored)
}

func TestLoginFlipsToAuthenticated(t *testing.T) {
	const token = "fresh-token"
	user := User{Username: "alice", Role: "user"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
		case "/api/auth/me":
			if r.Header.Get(TokenHeader) != token {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"msg": "Token is not valid"})
				return
			}
			json.NewEncoder(w).Encode(user)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	store := NewMemoryTokenStore("")
	session := newTestSession(server, store)
	session.Start(context.Background())
	_, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	require.False(t, session.Authenticated())

	result := session.Login(context.Background(), "a@x.com", "secret1")
	require.True(t, result.OK)

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, token, stored)
}

func TestLoginRejectionKeepsState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"msg": "Invalid Credentials"})
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore(""))
	session.Start(context.Background())
	_, err := session.WaitResolved(context.Background())
	require.NoError(t, err)

	result := session.Login(context.Background(), "a@x.com", "wrong")
	assert.False(t, result.OK)
	assert.Equal(t, "Invalid Credentials", result.Message)
	assert.Equal(t, StateAnonymous, session.State())
}

func TestLogoutIsSynchronous(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice"})
	store := NewMemoryTokenStore("good")
	session := newTestSession(server, store)

	session.Start(context.Background())
	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)

	session.Logout(context.Background())

	// no waiting: the transition is immediate
	assert.Equal(t, StateAnonymous, session.State())
	assert.Empty(t, session.Token())
	assert.Nil(t, session.User())

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStaleVerificationDiscarded(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		if token == "slow" {
			// hold the first verification until the token has moved on
			<-release
			json.NewEncoder(w).Encode(User{Username: "stale-identity"})
			return
		}
		json.NewEncoder(w).Encode(User{Username: "fresh-identity"})
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore("slow"))
	session.Start(context.Background())
	require.True(t, session.State().Loading())

	// supersede the in-flight verification
	session.setToken(context.Background(), "fast")

	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.NotNil(t, session.User())
	assert.Equal(t, "fresh-identity", session.User().Username)

	// let the stale verification finish; its result must not apply
	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "fresh-identity", session.User().Username)
	assert.Equal(t, "fast", session.Token())
}

func TestAuthenticatedNeverTrueWhileLoading(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		json.NewEncoder(w).Encode(User{Username: "alice"})
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore("good"))
	session.Start(context.Background())

	<-started
	assert.True(t, session.State().Loading())
	assert.False(t, session.Authenticated())

	close(release)
	state, err := session.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
	assert.True(t, session.Authenticated())
}

func TestWaitResolvedHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore("good"))
	session.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := session.WaitResolved(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
