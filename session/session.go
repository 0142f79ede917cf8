// Package session carries the acting user through workflow invocations
// and holds documents stashed by unauthenticated visitors until they
// sign in.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BetoIII/docledger/id"
)

// Actor is the user on whose behalf workflows run. Anonymous visitors
// have no email and a temporary UUID instead of an account ID.
type Actor struct {
	Email     string    `json:"email,omitempty"`
	TempID    uuid.UUID `json:"temp_id,omitempty"`
	Anonymous bool      `json:"anonymous"`
}

// NewAnonymousActor mints an actor for an unauthenticated visitor.
func NewAnonymousActor() Actor {
	return Actor{TempID: uuid.New(), Anonymous: true}
}

// NewActor returns an authenticated actor.
func NewActor(email string) Actor {
	return Actor{Email: email}
}

// Provider resolves the current actor for an invocation.
type Provider interface {
	Actor(ctx context.Context) Actor
}

// StaticProvider always returns the same actor. Useful for CLI sessions
// and tests.
type StaticProvider struct {
	actor Actor
}

// NewStaticProvider returns a provider pinned to the given actor.
func NewStaticProvider(a Actor) *StaticProvider {
	return &StaticProvider{actor: a}
}

// Actor returns the pinned actor.
func (p *StaticProvider) Actor(_ context.Context) Actor {
	return p.actor
}

type actorKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ContextProvider reads the actor from the request context, minting an
// anonymous actor when none was attached.
type ContextProvider struct{}

// Actor returns the context's actor or a fresh anonymous one.
func (ContextProvider) Actor(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return NewAnonymousActor()
}

// PendingDocument is a registration a visitor started before signing
// in. It is stashed keyed to their temporary identity and resumed after
// authentication.
type PendingDocument struct {
	ID          id.PendingID   `json:"id"`
	Title       string         `json:"title"`
	FilePath    string         `json:"file_path"`
	Fields      map[string]any `json:"fields,omitempty"`
	TempActorID uuid.UUID      `json:"temp_actor_id"`
	StashedAt   time.Time      `json:"stashed_at"`
}

// NewPendingDocument stashes the given registration inputs for the
// actor's temporary identity.
func NewPendingDocument(title, filePath string, actor Actor) *PendingDocument {
	return &PendingDocument{
		ID:          id.NewPendingID(),
		Title:       title,
		FilePath:    filePath,
		TempActorID: actor.TempID,
		StashedAt:   time.Now().UTC(),
	}
}

// Expired reports whether the stash is older than ttl.
func (p *PendingDocument) Expired(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Since(p.StashedAt) > ttl
}

// PendingStore holds at most one pending document per temporary actor.
// Stashing again for the same actor replaces the previous stash.
type PendingStore interface {
	// StashPending saves the document, replacing any existing stash for
	// the same temporary actor.
	StashPending(ctx context.Context, doc *PendingDocument) error

	// TakePending removes and returns the actor's stash.
	// Returns docledger.ErrNoPendingDocument when nothing is stashed.
	TakePending(ctx context.Context, tempActorID uuid.UUID) (*PendingDocument, error)

	// SweepPending deletes stashes older than ttl and reports how many
	// were removed.
	SweepPending(ctx context.Context, ttl time.Duration) (int, error)
}
