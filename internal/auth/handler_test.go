package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ridgeline-pm/ridgeline/internal/auth"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
	_ "github.com/ridgeline-pm/ridgeline/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newTestRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
			_ = sessionManager.Commit(ctx, w, req, sess)
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, sessionManager
}

func seededRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	tpl, _ := perm.Template(perm.RoleTeamMember)
	return &stubRepo{user: &auth.User{
		ID:           42,
		Email:        "member@example.com",
		Name:         "Member",
		PasswordHash: string(hash),
		Permissions:  tpl,
		IsActive:     true,
	}}
}

func TestLoginSuccess(t *testing.T) {
	router, _ := newTestRouter(t, seededRepo(t))

	body := strings.NewReader(`{"email":"member@example.com","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		User struct {
			ID     int64    `json:"id"`
			Role   string   `json:"role"`
			Grants []string `json:"grants"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Equal(t, int64(42), parsed.User.ID)
	require.Equal(t, string(perm.RoleTeamMember), parsed.User.Role)
	require.Contains(t, parsed.User.Grants, "projects.view_assigned")
	require.NotEmpty(t, parsed.CSRFToken)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t, seededRepo(t))

	body := strings.NewReader(`{"email":"member@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDisabledAccount(t *testing.T) {
	repo := seededRepo(t)
	repo.user.IsActive = false
	router, _ := newTestRouter(t, repo)

	body := strings.NewReader(`{"email":"member@example.com","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	router, _ := newTestRouter(t, seededRepo(t))

	body := strings.NewReader(`{"email":"not-an-email"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeRequiresLogin(t *testing.T) {
	router, _ := newTestRouter(t, seededRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
