package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the session lifecycle state. Unknown and Verifying are the
// loading states: the session's validity has not been determined yet and
// no access decision may be made.
type State int

const (
	// StateUnknown is the initial state before the stored token has been
	// inspected.
	StateUnknown State = iota
	// StateVerifying means a token is present and a verification request
	// is in flight.
	StateVerifying
	// StateAuthenticated means the server confirmed the token.
	StateAuthenticated
	// StateAnonymous means no valid session exists.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "invalid"
}

// Loading reports whether the session's validity is still undetermined.
func (s State) Loading() bool {
	return s == StateUnknown || s == StateVerifying
}

// LoginResult is returned by Login and Register for UI branching instead
// of an error: a rejected attempt is a normal outcome, not a failure of
// the operation itself.
type LoginResult struct {
	OK      bool
	Message string
}

const (
	defaultVerifyAttempts = 3
	defaultVerifyBackoff  = 500 * time.Millisecond
)

// Session tracks token possession, verification status, and the derived
// identity across the client's lifetime. Every token change re-triggers a
// server verification: the server round-trip, never the locally known
// payload, decides Authenticated and the displayed user.
//
// A generation counter serializes transitions with respect to token
// changes: a verification still in flight when the token changes again
// resolves against a stale generation and its result is discarded.
type Session struct {
	api    *API
	store  TokenStore
	logger logrus.FieldLogger

	verifyAttempts int
	verifyBackoff  time.Duration

	mu       sync.Mutex
	state    State
	token    string
	user     *User
	gen      uint64
	resolved chan struct{}
}

// NewSession builds a session in the Unknown state. Call Start to read
// the stored token and begin verification.
func NewSession(api *API, store TokenStore, logger logrus.FieldLogger) *Session {
	return &Session{
		api:            api,
		store:          store,
		logger:         logger,
		verifyAttempts: defaultVerifyAttempts,
		verifyBackoff:  defaultVerifyBackoff,
		state:          StateUnknown,
		resolved:       make(chan struct{}),
	}
}

// Start reads the persisted token. With a token present the session
// enters Verifying and verifies it against the server in the background;
// without one it resolves directly to Anonymous.
func (s *Session) Start(ctx context.Context) {
	token, err := s.store.Load()
	if err != nil {
		s.logger.Warnf("load stored token: %v", err)
		token = ""
	}

	s.mu.Lock()
	s.token = token
	if token == "" {
		s.resolveLocked(StateAnonymous, nil)
		s.mu.Unlock()
		return
	}
	s.state = StateVerifying
	gen := s.gen
	s.mu.Unlock()

	go s.verify(ctx, gen, token)
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the last server-confirmed identity, or nil.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Token returns the current token, or empty.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether the server has confirmed the session.
// It is never true while the session is loading.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAuthenticated
}

// WaitResolved blocks while the session is loading and returns the
// resolved state. It returns immediately once the session has settled,
// until the next token change puts it back into Verifying.
func (s *Session) WaitResolved(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		state := s.state
		ch := s.resolved
		s.mu.Unlock()

		if !state.Loading() {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ch:
		}
	}
}

// Login authenticates against the server. On success the token is
// persisted and the session re-enters Verifying; the subsequent
// verification round-trip, not the login response, flips the session to
// Authenticated. A rejection leaves the session state untouched.
func (s *Session) Login(ctx context.Context, email, password string) LoginResult {
	token, _, err := s.api.Login(ctx, email, password)
	if err != nil {
		return loginFailure(err)
	}

	if err := s.store.Save(token); err != nil {
		s.logger.Warnf("persist token: %v", err)
	}
	s.setToken(ctx, token)
	return LoginResult{OK: true, Message: "Login successful!"}
}

// Register creates an account. It does not log the user in; the caller
// decides what follows (typically prompting for login).
func (s *Session) Register(ctx context.Context, username, email, password string) LoginResult {
	msg, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return loginFailure(err)
	}
	if msg == "" {
		msg = "User registered successfully!"
	}
	return LoginResult{OK: true, Message: msg}
}

// Logout clears the persisted token and transitions synchronously to
// Anonymous. Tokens are stateless, so no server round-trip is required;
// revocation is attempted best-effort so a configured server-side
// denylist can invalidate the token early.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.gen++ // any in-flight verification is now stale
	s.resolveLocked(StateAnonymous, nil)
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.logger.Warnf("clear stored token: %v", err)
	}
	if token != "" {
		revokeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.api.Logout(revokeCtx, token); err != nil {
			s.logger.Debugf("server-side logout: %v", err)
		}
	}
}

// setToken installs a new token and re-enters Verifying under a fresh
// generation.
func (s *Session) setToken(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.gen++
	gen := s.gen
	if s.state != StateUnknown && s.state != StateVerifying {
		s.resolved = make(chan struct{})
	}
	s.state = StateVerifying
	s.mu.Unlock()

	go s.verify(ctx, gen, token)
}

// verify confirms the token with the server. A confirmed rejection
// demotes to Anonymous and clears the stored token. A transport error is
// retried a bounded number of times; if it persists, the session demotes
// to Anonymous but keeps the stored token so the next start retries,
// rather than discarding a possibly valid credential over a network blip.
func (s *Session) verify(ctx context.Context, gen uint64, token string) {
	var lastErr error
	for attempt := 0; attempt < s.verifyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				s.complete(gen, StateAnonymous, nil, false)
				return
			case <-time.After(s.verifyBackoff * time.Duration(attempt)):
			}
		}
		if s.stale(gen) {
			return
		}

		user, err := s.api.Me(ctx, token)
		if err == nil {
			s.complete(gen, StateAuthenticated, user, false)
			return
		}
		if IsRejection(err) {
			s.logger.Infof("token rejected by server, demoting to anonymous")
			s.complete(gen, StateAnonymous, nil, true)
			return
		}
		lastErr = err
	}

	s.logger.Warnf("token verification unreachable after %d attempts: %v", s.verifyAttempts, lastErr)
	s.complete(gen, StateAnonymous, nil, false)
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.gen
}

// complete applies a verification outcome unless the generation moved on.
func (s *Session) complete(gen uint64, state State, user *User, clearToken bool) {
	s.mu.Lock()
	if gen != s.gen {
		// A newer token change superseded this verification.
		s.mu.Unlock()
		return
	}
	if state == StateAnonymous {
		s.token = ""
	}
	s.resolveLocked(state, user)
	s.mu.Unlock()

	if clearToken {
		if err := s.store.Clear(); err != nil {
			s.logger.Warnf("clear stored token: %v", err)
		}
	}
}

// resolveLocked moves the session out of a loading state and wakes all
// waiters. Callers hold s.mu.
func (s *Session) resolveLocked(state State, user *User) {
	s.state = state
	s.user = user
	if state == StateAnonymous {
		s.user = nil
	}
	select {
	case <-s.resolved:
		// already resolved once; waiters from a later Verifying phase hold
		// a fresh channel
	default:
		close(s.resolved)
	}
}

func loginFailure(err error) LoginResult {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return LoginResult{Message: apiErr.Msg}
	}
	return LoginResult{Message: "Network error or server problem. Please try again."}
}
