// Package auth delegates identity to an external provider and exposes the
// subset this service cares about: credential sign-in, sign-out, token
// verification, and an auth-state stream the transport layer watches.
package auth

import (
	"context"
	"errors"
)

// Sentinel errors a Provider maps its backend's failures onto. UserMessage
// turns them into the copy shown on the login screen.
var (
	ErrInvalidEmail      = errors.New("auth: invalid email address")
	ErrUserNotFound      = errors.New("auth: user not found")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrNetwork           = errors.New("auth: network failure")
	ErrInvalidToken      = errors.New("auth: invalid token")
)

// Session is an authenticated principal.
type Session struct {
	UserID string
	Email  string
	Token  string
}

// State is one auth-state-changed event. Session is nil when signed out.
type State struct {
	Session *Session
}

// Provider is the external identity service boundary.
type Provider interface {
	// SignIn exchanges credentials for a session, returning one of the
	// sentinel errors above on failure.
	SignIn(ctx context.Context, email, password string) (Session, error)
	// SignOut invalidates the session's token.
	SignOut(ctx context.Context, token string) error
	// Verify resolves a bearer token to its session, or ErrInvalidToken.
	Verify(ctx context.Context, token string) (Session, error)
	// Watch emits the current auth state and every change until ctx
	// ends, at which point the channel closes.
	Watch(ctx context.Context) <-chan State
}

// UserMessage maps an auth error to the message shown to the user.
// Unknown errors get the generic fallback rather than leaking detail.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return "The email address is not valid. Please check and try again."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email. Please sign up first."
	case errors.Is(err, ErrInvalidCredential):
		return "Incorrect password. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your internet connection."
	default:
		return "Something went wrong. Please try again later."
	}
}
