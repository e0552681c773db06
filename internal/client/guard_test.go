package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardAdmitsAuthenticatedSession(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice"})
	session := newTestSession(server, NewMemoryTokenStore("good"))
	session.Start(context.Background())

	guard := NewGuard(session)
	ran := false
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuardRejectsAnonymousSession(t *testing.T) {
	server := fakeServer(t, "good", User{Username: "alice"})
	session := newTestSession(server, NewMemoryTokenStore(""))
	session.Start(context.Background())

	guard := NewGuard(session)
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("view ran for an anonymous session")
		return nil
	})
	assert.ErrorIs(t, err, ErrLoginRequired)
}

// The guard must never decide while the session is loading: a protected
// view opened during startup waits for verification instead of bouncing.
func TestGuardPendsWhileVerifying(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(User{Username: "alice"})
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore("good"))
	session.Start(context.Background())
	require.True(t, session.State().Loading())

	guard := NewGuard(session)
	done := make(chan error, 1)
	go func() {
		done <- guard.Run(context.Background(), func(ctx context.Context) error {
			if session.State().Loading() {
				t.Error("view admitted while session still loading")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		t.Fatalf("guard decided before verification resolved: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("guard never admitted after verification resolved")
	}
}

func TestGuardContextBoundsPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(server.Close)

	session := newTestSession(server, NewMemoryTokenStore("good"))
	session.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	guard := NewGuard(session)
	err := guard.Run(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
