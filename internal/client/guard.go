package client

import (
	"context"
	"errors"
)

// ErrLoginRequired is returned by the guard when the session resolved to
// Anonymous; callers redirect to their login flow.
var ErrLoginRequired = errors.New("login required")

// Guard admits protected operations only for an authenticated session.
// While the session is loading it stays pending rather than deciding, so
// a protected operation can neither run before startup verification
// finishes nor be bounced by a verification still in flight.
type Guard struct {
	session *Session
}

func NewGuard(session *Session) *Guard {
	return &Guard{session: session}
}

// Run waits for the session to resolve, then either runs view (session
// authenticated) or returns ErrLoginRequired (session anonymous). The
// context bounds how long the pending phase may last.
func (g *Guard) Run(ctx context.Context, view func(ctx context.Context) error) error {
	state, err := g.session.WaitResolved(ctx)
	if err != nil {
		return err
	}
	if state != StateAuthenticated {
		return ErrLoginRequired
	}
	return view(ctx)
}
