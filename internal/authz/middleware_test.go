package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

type stubSource struct {
	values map[int64]perm.Value
	err    error
}

func (s *stubSource) PermissionValue(_ context.Context, userID int64) (perm.Value, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.values[userID], nil
}

func testMiddleware(src *stubSource) Middleware {
	return Middleware{Source: src, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func requestWithSessionUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestAuthenticateLoadsActor(t *testing.T) {
	src := &stubSource{values: map[int64]perm.Value{7: perm.Combine(perm.CreateTasks)}}
	var got Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		got = actor
	})

	rec := httptest.NewRecorder()
	testMiddleware(src).Authenticate(next).ServeHTTP(rec, requestWithSessionUser("7"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), got.UserID)
	require.True(t, got.Perms.Has(perm.CreateTasks))
}

func TestAuthenticateRejectsAnonymous(t *testing.T) {
	src := &stubSource{values: map[int64]perm.Value{}}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next should not run")
	})

	rec := httptest.NewRecorder()
	testMiddleware(src).Authenticate(next).ServeHTTP(rec, requestWithSessionUser(""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	testMiddleware(src).Authenticate(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateSourceFailure(t *testing.T) {
	src := &stubSource{err: errors.New("db down")}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next should not run")
	})

	rec := httptest.NewRecorder()
	testMiddleware(src).Authenticate(next).ServeHTTP(rec, requestWithSessionUser("7"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireEnforcesAllFlags(t *testing.T) {
	mw := testMiddleware(&stubSource{})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := mw.Require(perm.ExportData, perm.ViewFinancialData)(next)

	actor := Actor{UserID: 1, Perms: perm.Combine(perm.ExportData)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	actor.Perms = actor.Perms.With(perm.ViewFinancialData)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), actor))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireWithoutActorIsUnauthorized(t *testing.T) {
	mw := testMiddleware(&stubSource{})
	guard := mw.Require(perm.ExportData)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next should not run")
	}))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyPassesOnSingleFlag(t *testing.T) {
	mw := testMiddleware(&stubSource{})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := mw.RequireAny(perm.EditScopeItems, perm.EditMaterialSpecs)(next)

	actor := Actor{UserID: 1, Perms: perm.Combine(perm.EditMaterialSpecs)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
