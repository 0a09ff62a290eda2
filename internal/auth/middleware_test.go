package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/repository/repotest"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

type fixture struct {
	app     *fiber.App
	tokens  *TokenManager
	store   *repotest.Store
	revoked *MemoryRevocationList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tokens:  NewTokenManager("secret", 15),
		store:   repotest.NewStore(),
		revoked: NewMemoryRevocationList(),
	}
	mw := NewAuthMiddleware(f.tokens, f.store.Users(), f.revoked, nil)
	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	f.app.Get("/me", mw.Handle, RequireAuthenticated(), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.User.Username)
	})
	f.app.Get("/general", mw.Handle, RequireRole(domain.RoleGeneralManager), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return f
}

func (f *fixture) user(t *testing.T, username string, role domain.Role) (*domain.User, IssuedToken) {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@campus.test", Role: role}
	if role == domain.RoleDepartmentManager {
		dept := &domain.Department{Name: "dept-" + username}
		require.NoError(t, f.store.Departments().Create(context.Background(), dept))
		user.DepartmentID = &dept.ID
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	issued, err := f.tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, issued
}

func (f *fixture) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMiddlewareRejectsMissingAndMalformed(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", "not-a-jwt").StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareLoadsPrincipal(t *testing.T) {
	f := newFixture(t)
	_, token := f.user(t, "alice", domain.RoleStudent)
	assert.Equal(t, http.StatusOK, f.get(t, "/me", token.Token).StatusCode)
}

func TestMiddlewareRejectsRevokedToken(t *testing.T) {
	f := newFixture(t)
	_, token := f.user(t, "alice", domain.RoleStudent)
	require.NoError(t, f.revoked.Revoke(context.Background(), token.ID, time.Now().Add(time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", token.Token).StatusCode)
}

type unreachableRevocations struct{}

func (unreachableRevocations) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis: connection refused")
}

func (unreachableRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestMiddlewareAcceptsTokenWhenRevocationStoreIsDown(t *testing.T) {
	f := newFixture(t)
	_, token := f.user(t, "alice", domain.RoleStudent)

	core, logs := observer.New(zap.WarnLevel)
	mw := NewAuthMiddleware(f.tokens, f.store.Users(), unreachableRevocations{}, zap.New(core))
	app := fiber.New()
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entries := logs.FilterMessage("revocation lookup failed, accepting token").All()
	require.Len(t, entries, 1)
	assert.Equal(t, token.ID, entries[0].ContextMap()["token_id"])
}

func TestMiddlewareRejectsDeletedUser(t *testing.T) {
	f := newFixture(t)
	user, token := f.user(t, "alice", domain.RoleStudent)
	require.NoError(t, f.store.Users().Delete(context.Background(), user.ID))
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", token.Token).StatusCode)
}

func TestRequireRoleUsesStoredRole(t *testing.T) {
	f := newFixture(t)
	_, student := f.user(t, "alice", domain.RoleStudent)
	assert.Equal(t, http.StatusForbidden, f.get(t, "/general", student.Token).StatusCode)

	gm, gmToken := f.user(t, "boss", domain.RoleGeneralManager)
	assert.Equal(t, http.StatusNoContent, f.get(t, "/general", gmToken.Token).StatusCode)

	// a demotion takes effect without reissuing the token
	gm.Role = domain.RoleStudent
	require.NoError(t, f.store.Users().Update(context.Background(), gm))
	assert.Equal(t, http.StatusForbidden, f.get(t, "/general", gmToken.Token).StatusCode)
}

func TestMemoryRevocationListExpires(t *testing.T) {
	list := NewMemoryRevocationList()
	ctx := context.Background()
	require.NoError(t, list.Revoke(ctx, "a", time.Now().Add(-time.Second)))
	require.NoError(t, list.Revoke(ctx, "b", time.Now().Add(time.Minute)))

	revoked, err := list.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = list.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.True(t, revoked)
}
