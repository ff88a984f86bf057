// Package authz resolves the authenticated actor for a request and
// enforces permission flags on routes. Relationship facts stay with the
// domain handlers; this package only answers "who is calling and which
// flags do they hold".
package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/platform/httpx"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Actor is the authenticated caller: stored user ID plus the permission
// value fetched for this request.
type Actor struct {
	UserID int64
	Perms  perm.Value
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor. The second return is false when
// the request never passed Authenticate.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// PermissionSource fetches the stored permission value for a user.
type PermissionSource interface {
	PermissionValue(ctx context.Context, userID int64) (perm.Value, error)
}

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Source PermissionSource
	Logger *slog.Logger
}

// Authenticate resolves the session user, loads their permission value
// and stores the actor in context. Requests without a valid session user
// are rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		value, err := m.Source.PermissionValue(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("load permission value", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account unavailable")
			return
		}
		ctx := ContextWithActor(r.Context(), Actor{UserID: userID, Perms: value})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require ensures the actor holds every listed flag.
func (m Middleware) Require(flags ...perm.Flag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if !actor.Perms.HasAll(flags...) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the actor holds at least one of the listed flags.
func (m Middleware) RequireAny(flags ...perm.Flag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if len(flags) > 0 && !actor.Perms.HasAny(flags...) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
