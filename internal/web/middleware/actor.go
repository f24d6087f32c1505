package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor threads the caller's identity from the X-Actor-Id header into the
// request context. Authentication happens upstream of this service; the
// header is trusted here only as attribution for the audit log.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get("X-Actor-Id")); actor != "" {
			r = r.WithContext(WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns a context carrying the acting admin's identifier.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorID returns the acting admin's identifier, or "" when the caller did
// not identify itself.
func ActorID(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}
