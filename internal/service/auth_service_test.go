package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

func newTestAuthService(t *testing.T) *authService {
	t.Helper()
	db := openTestDB(t)
	svc := NewAuthService(repository.NewTeacherRepository(db), validator.New(validator.WithRequiredStructEnabled()), "test-secret", time.Hour, zerolog.Nop())
	return svc.(*authService)
}

func TestAuthDefaultAdminLifecycle(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	seeded, err := svc.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = svc.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)
	require.False(t, seeded)

	usingDefault, err := svc.UsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.True(t, usingDefault)

	login, err := svc.Login(ctx, dto.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	require.False(t, login.PasswordChanged)
	require.Equal(t, models.TeacherRoleAdmin, login.Role)

	parsed, err := jwt.Parse(login.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "admin", claims["sub"])
	require.Equal(t, "admin", claims["role"])

	admin := AdminContext{Username: "admin", Role: models.TeacherRoleAdmin}
	err = svc.ChangePassword(ctx, admin, dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "s3cret!", ConfirmPassword: "s3cret!"})
	require.ErrorIs(t, err, ErrIncorrectPassword)

	err = svc.ChangePassword(ctx, admin, dto.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "s3cret!", ConfirmPassword: "other!"})
	require.Error(t, err)

	err = svc.ChangePassword(ctx, admin, dto.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "short", ConfirmPassword: "short"})
	require.Error(t, err)

	require.NoError(t, svc.ChangePassword(ctx, admin, dto.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "s3cret!", ConfirmPassword: "s3cret!"}))

	usingDefault, err = svc.UsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.False(t, usingDefault)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "admin", Password: "admin123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	login, err = svc.Login(ctx, dto.LoginRequest{Username: "admin", Password: "s3cret!"})
	require.NoError(t, err)
	require.True(t, login.PasswordChanged)
}

func TestAuthResetPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "admin", "new-password"))
	usingDefault, err := svc.UsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.False(t, usingDefault)

	require.NoError(t, svc.ResetPassword(ctx, "admin", ""))
	usingDefault, err = svc.UsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.True(t, usingDefault)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "admin", Password: DefaultAdminPassword})
	require.NoError(t, err)

	require.ErrorIs(t, svc.ResetPassword(ctx, "ghost", "x"), ErrTeacherNotFound)
}

func TestAuthLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
