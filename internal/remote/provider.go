// Package remote defines the persistence-collaborator interface and its
// HTTP implementation against the hosted per-user backend.
package remote

import (
	"context"

	"github.com/solvane/lumen/internal/models"
)

// Provider is the interface for remote per-user state operations.
// Consumers depend on this interface rather than the concrete *Client so
// tests can substitute fakes. The backend resolves concurrent writers with
// last-write-wins; this process provides no cross-device ordering.
type Provider interface {
	// ReadHabits returns the user's habit map; an empty map if none stored.
	ReadHabits(ctx context.Context, userID string) (models.HabitMap, error)
	// WriteHabits replaces the user's entire habit subtree.
	WriteHabits(ctx context.Context, userID string, habits models.HabitMap) error
	// ReadProgress returns the user's progress map; an empty map if none stored.
	ReadProgress(ctx context.Context, userID string) (models.ProgressMap, error)
	// WriteProgress replaces the user's entire progress subtree.
	WriteProgress(ctx context.Context, userID string, progress models.ProgressMap) error
	// Ping reports whether the backend is currently reachable.
	Ping(ctx context.Context) error
}

// Auth is the authentication collaborator: it resolves the active user
// and reports sign-in changes.
type Auth interface {
	// CurrentUserID returns the signed-in user id, or false when signed out.
	CurrentUserID() (string, bool)
	// OnAuthChange registers cb for sign-in state changes and returns an
	// unsubscribe func. cb is invoked once immediately with the current state.
	OnAuthChange(cb func(userID string, signedIn bool)) (unsubscribe func())
}

// StaticAuth is an Auth for a locally configured single user. The state
// never changes, so OnAuthChange only reports the initial state.
type StaticAuth string

// CurrentUserID implements Auth.
func (a StaticAuth) CurrentUserID() (string, bool) {
	return string(a), a != ""
}

// OnAuthChange implements Auth.
func (a StaticAuth) OnAuthChange(cb func(userID string, signedIn bool)) func() {
	if cb != nil {
		id, ok := a.CurrentUserID()
		cb(id, ok)
	}
	return func() {}
}
