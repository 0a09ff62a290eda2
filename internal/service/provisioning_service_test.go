package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
)

func TestEnsureAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	svc := NewProvisioningService(h.cfg, h.store.Users(), nil)

	secret := filepath.Join(t.TempDir(), "admin_password")
	require.NoError(t, os.WriteFile(secret, []byte("from-secret-file\n"), 0o600))
	bootstrap := config.BootstrapConfig{
		AdminUsername:     "admin",
		AdminEmail:        "Admin@Campus.test",
		AdminName:         "General Manager",
		AdminPassword:     "ignored-when-file-set",
		AdminPasswordFile: secret,
	}

	created, err := svc.EnsureAdmin(context.Background(), bootstrap)
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := h.store.Users().GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGeneralManager, admin.Role)
	assert.Equal(t, "admin@campus.test", admin.Email)
	assert.NoError(t, auth.ComparePassword(admin.PasswordHash, "from-secret-file"))

	created, err = svc.EnsureAdmin(context.Background(), bootstrap)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureAdminValidatesInput(t *testing.T) {
	h := newHarness(t)
	svc := NewProvisioningService(h.cfg, h.store.Users(), nil)

	_, err := svc.EnsureAdmin(context.Background(), config.BootstrapConfig{AdminEmail: "a@campus.test", AdminPassword: "long-enough"})
	assert.Error(t, err)

	_, err = svc.EnsureAdmin(context.Background(), config.BootstrapConfig{AdminUsername: "admin", AdminEmail: "a@campus.test", AdminPassword: "short"})
	assert.Error(t, err)

	_, err = svc.EnsureAdmin(context.Background(), config.BootstrapConfig{AdminUsername: "admin", AdminEmail: "a@campus.test", AdminPasswordFile: "/does/not/exist"})
	assert.Error(t, err)
}
