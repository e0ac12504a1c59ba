package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/testutil"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func TestStaffAuth_EnsureStaffAndLogin(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	svc := NewStaffAuthService(store.Staff())

	created, err := svc.EnsureStaff(ctx, "owner@shop.test", "s3cret!", "Owner", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureStaff(ctx, "OWNER@shop.test", "other", "Owner", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created, "an existing email is left alone")

	res, err := svc.Login(ctx, " owner@shop.test ", "s3cret!")
	require.NoError(t, err)
	claims, err := utils.ValidateJWT(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	user, err := store.Staff().GetByEmail(ctx, "owner@shop.test")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
}

func TestStaffAuth_LoginFailures(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	svc := NewStaffAuthService(store.Staff())

	_, err := svc.EnsureStaff(ctx, "clerk@shop.test", "right", "Clerk", models.RoleExecutive)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.Staff().Create(ctx, &models.StaffUser{
		Email: "gone@shop.test", PasswordHash: string(hash), Name: "Gone", Role: models.RoleExecutive,
	}))

	tests := []struct {
		name, email, password string
		want                  error
	}{
		{"wrong password", "clerk@shop.test", "wrong", utils.ErrInvalidCredentials},
		{"unknown email", "nobody@shop.test", "right", utils.ErrInvalidCredentials},
		{"inactive account", "gone@shop.test", "right", utils.ErrAccountInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStaff_ManageUsers(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	svc := NewStaffAuthService(store.Staff())

	_, err := svc.EnsureStaff(ctx, "owner@shop.test", "owner-pass", "Owner", models.RoleAdmin)
	require.NoError(t, err)
	owner, err := store.Staff().GetByEmail(ctx, "owner@shop.test")
	require.NoError(t, err)

	clerk, err := svc.CreateStaff(ctx, &CreateStaffRequest{Email: " clerk@shop.test ", Name: "Clerk", Password: "clerk-pass"})
	require.NoError(t, err)
	assert.Equal(t, "clerk@shop.test", clerk.Email)
	assert.Equal(t, models.RoleExecutive, clerk.Role, "role defaults to executive")

	_, err = svc.CreateStaff(ctx, &CreateStaffRequest{Email: "Clerk@shop.test", Name: "Dup", Password: "clerk-pass"})
	require.ErrorIs(t, err, utils.ErrStaffExists)
	_, err = svc.CreateStaff(ctx, &CreateStaffRequest{Email: "short@shop.test", Name: "Short", Password: "abc"})
	require.ErrorIs(t, err, utils.ErrInvalidRequest)

	_, err = svc.UpdateStaff(ctx, clerk.ID, &UpdateStaffRequest{Email: "owner@shop.test", Name: "Clerk", Role: models.RoleExecutive})
	require.ErrorIs(t, err, utils.ErrStaffExists)

	reset, err := svc.ResetPassword(ctx, clerk.ID)
	require.NoError(t, err)
	assert.Len(t, reset.Password, generatedPasswordLength)
	_, err = svc.Login(ctx, "clerk@shop.test", "clerk-pass")
	require.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "clerk@shop.test", reset.Password)
	require.NoError(t, err)

	toggled, err := svc.ToggleActive(ctx, owner.ID, clerk.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	_, err = svc.Login(ctx, "clerk@shop.test", reset.Password)
	require.ErrorIs(t, err, utils.ErrAccountInactive)

	_, err = svc.ToggleActive(ctx, owner.ID, owner.ID)
	require.ErrorIs(t, err, utils.ErrSelfDisable)

	_, err = svc.ResetPassword(ctx, 999)
	require.ErrorIs(t, err, utils.ErrStaffNotFound)

	users, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Clerk", users[0].Name)
}
