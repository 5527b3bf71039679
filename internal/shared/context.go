package shared

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

type sessionContextKey struct{}

type actorContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActor stores the resolved policy actor in context.
func ContextWithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the policy actor from context, nil when the
// request is unauthenticated.
func ActorFromContext(ctx context.Context) policy.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(policy.Actor)
	return actor
}
