package service_test

import (
	"context"
	"testing"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*service.UserService, *auth.TokenManager) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := &config.AuthConfig{
		JWTSecret:       "test-secret-with-enough-length-123",
		Issuer:          "orders-api-test",
		AccessTokenTTL:  15,
		RefreshTokenTTL: 24,
		BcryptCost:      bcrypt.MinCost,
	}
	tokens := auth.NewTokenManager(cfg)
	return service.NewUserService(repository.NewUserRepository(db), tokens, cfg, zap.NewNop()), tokens
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &domain.RegisterRequest{
		Email: "Cliente@Example.com", Password: "secreto-largo", FirstName: "Camila", LastName: "Paz",
	})
	require.NoError(t, err)
	assert.Equal(t, "cliente@example.com", user.Email)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.Contains(t, user.Permissions, string(auth.PermissionOrdersOwn))

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, &domain.RegisterRequest{Email: "cliente@example.com", Password: "otra-clave", FirstName: "X", LastName: "Y"})
		assert.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Email: "cliente@example.com", Password: "nope"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Email: "nadie@example.com", Password: "secreto-largo"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("login, refresh and me", func(t *testing.T) {
		pair, err := svc.Login(ctx, &domain.LoginRequest{Email: "CLIENTE@example.com", Password: "secreto-largo"})
		require.NoError(t, err)
		require.NotEmpty(t, pair.Access)
		require.NotEmpty(t, pair.Refresh)

		current, err := tokens.ValidateAccess(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, user.ID, current.UserID)

		refreshed, err := svc.Refresh(ctx, &domain.RefreshRequest{Refresh: pair.Refresh})
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.Access)

		_, err = svc.Refresh(ctx, &domain.RefreshRequest{Refresh: pair.Access})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)

		me, err := svc.Me(auth.WithUserContext(ctx, current))
		require.NoError(t, err)
		assert.Equal(t, "Camila", me.FirstName)
	})
}

func TestUserService_CreateUserRejectsUnknownRole(t *testing.T) {
	svc, _ := newUserService(t)
	_, err := svc.CreateUser(context.Background(), "x@example.com", "password123", "X", "Y", domain.UserRole("root"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &domain.RegisterRequest{Email: "pw@example.com", Password: "primera-clave", FirstName: "P", LastName: "W"})
	require.NoError(t, err)
	pair, err := svc.Login(ctx, &domain.LoginRequest{Email: "pw@example.com", Password: "primera-clave"})
	require.NoError(t, err)
	current, err := tokens.ValidateAccess(pair.Access)
	require.NoError(t, err)
	userCtx := auth.WithUserContext(ctx, current)

	_, err = svc.ChangePassword(userCtx, &domain.ChangePasswordRequest{CurrentPassword: "equivocada", NewPassword: "segunda-clave"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.ChangePassword(userCtx, &domain.ChangePasswordRequest{CurrentPassword: "primera-clave", NewPassword: "primera-clave"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	msg, err := svc.ChangePassword(userCtx, &domain.ChangePasswordRequest{CurrentPassword: "primera-clave", NewPassword: "segunda-clave"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Message)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "pw@example.com", Password: "primera-clave"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "pw@example.com", Password: "segunda-clave"})
	assert.NoError(t, err)

	_, err = svc.ChangePassword(ctx, &domain.ChangePasswordRequest{CurrentPassword: "x", NewPassword: "yyyyyyyy"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestUserService_InactiveUserCannotLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := &config.AuthConfig{JWTSecret: "test-secret-with-enough-length-123", Issuer: "orders-api-test", AccessTokenTTL: 15, RefreshTokenTTL: 24, BcryptCost: bcrypt.MinCost}
	svc := service.NewUserService(repository.NewUserRepository(db), auth.NewTokenManager(cfg), cfg, zap.NewNop())
	ctx := context.Background()

	hash, err := auth.HashPassword("secreto-largo", bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Email: "baja@clarotec.cl", PasswordHash: hash, Role: domain.RoleSales, Active: false}
	require.NoError(t, db.Create(user).Error)

	var stored domain.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.Active)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "baja@clarotec.cl", Password: "secreto-largo"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}
