package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

// Seeded administrator credentials. Accounts keep password_changed=false
// while they still use DefaultAdminPassword.
const (
	DefaultAdminUsername    = "admin"
	DefaultAdminPassword    = "admin123"
	DefaultAdminDisplayName = "Administrator"
)

var (
	// ErrInvalidCredentials indicates an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIncorrectPassword indicates a wrong current password on change.
	ErrIncorrectPassword = errors.New("current password is incorrect")
	// ErrTeacherNotFound indicates the addressed account does not exist.
	ErrTeacherNotFound = errors.New("teacher account not found")
)

// AuthService authenticates teachers and manages their passwords.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	ChangePassword(ctx context.Context, admin AdminContext, req dto.ChangePasswordRequest) error
	ResetPassword(ctx context.Context, username, newPassword string) error
	EnsureDefaultAdmin(ctx context.Context) (bool, error)
	UsingDefaultPassword(ctx context.Context) (bool, error)
}

type authService struct {
	teachers  repository.TeacherRepository
	validator *validator.Validate
	secret    []byte
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the teacher authentication service.
func NewAuthService(teachers repository.TeacherRepository, validate *validator.Validate, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		teachers:  teachers,
		validator: validate,
		secret:    []byte(secret),
		ttl:       ttl,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	teacher, err := s.teachers.Get(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(strings.TrimSpace(req.Password))) != nil {
		s.logger.Warn().Str("username", teacher.Username).Msg("failed login attempt")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  teacher.Username,
		"role": teacher.Role,
		"name": teacher.DisplayName,
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return dto.LoginResponse{
		AccessToken:     signed,
		TokenType:       "Bearer",
		ExpiresAt:       expiresAt.UTC(),
		Username:        teacher.Username,
		DisplayName:     teacher.DisplayName,
		Role:            teacher.Role,
		PasswordChanged: teacher.PasswordChanged,
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, admin AdminContext, req dto.ChangePasswordRequest) error {
	if err := admin.authorize(); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	teacher, err := s.teachers.Get(ctx, admin.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrIncorrectPassword
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.teachers.UpdatePassword(ctx, teacher.Username, hash, true); err != nil {
		return err
	}

	s.logger.Info().Str("username", teacher.Username).Msg("password changed")
	return nil
}

// ResetPassword sets a password without knowing the current one. Resetting to
// the default password marks the account as unchanged again.
func (s *authService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		newPassword = DefaultAdminPassword
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.teachers.UpdatePassword(ctx, username, hash, newPassword != DefaultAdminPassword); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotFound
		}
		return err
	}

	s.logger.Info().Str("username", username).Msg("password reset")
	return nil
}

// EnsureDefaultAdmin seeds the default administrator when no account exists.
func (s *authService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	total, err := s.teachers.Count(ctx)
	if err != nil {
		return false, err
	}
	if total > 0 {
		return false, nil
	}

	hash, err := hashPassword(DefaultAdminPassword)
	if err != nil {
		return false, err
	}
	err = s.teachers.Save(ctx, models.Teacher{
		Username:        DefaultAdminUsername,
		PasswordHash:    hash,
		DisplayName:     DefaultAdminDisplayName,
		Role:            models.TeacherRoleAdmin,
		PasswordChanged: false,
	})
	if err != nil {
		return false, err
	}

	s.logger.Warn().Str("username", DefaultAdminUsername).Msg("seeded default administrator, change its password")
	return true, nil
}

func (s *authService) UsingDefaultPassword(ctx context.Context) (bool, error) {
	return s.teachers.AnyUsingDefaultPassword(ctx)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
