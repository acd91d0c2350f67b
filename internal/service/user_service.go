package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService handles login, token refresh and account creation
type UserService struct {
	userRepo *repository.UserRepository
	tokens   *auth.TokenManager
	cfg      *config.AuthConfig
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, tokens *auth.TokenManager, cfg *config.AuthConfig, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

// Login checks the credentials and issues an access/refresh token pair
func (s *UserService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPairDTO, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.logger.Info("failed login", zap.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &domain.TokenPairDTO{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *UserService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.AccessTokenDTO, error) {
	access, err := s.tokens.Refresh(req.Refresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return &domain.AccessTokenDTO{Access: access}, nil
}

// Register creates a customer login. Customer logins can only list their own orders.
func (s *UserService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserDTO, error) {
	user, err := s.CreateUser(ctx, req.Email, req.Password, req.FirstName, req.LastName, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// CreateUser stores a new login with a bcrypt password hash
func (s *UserService) CreateUser(ctx context.Context, email, password, firstName, lastName string, role domain.UserRole) (*domain.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Me returns the authenticated user's profile and permissions
func (s *UserService) Me(ctx context.Context) (*domain.UserDTO, error) {
	current, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// ChangePassword replaces the authenticated user's password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) (*domain.MessageResponse, error) {
	current, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return nil, fmt.Errorf("%w: current password is incorrect", ErrInvalidInput)
	}
	if req.NewPassword == req.CurrentPassword {
		return nil, fmt.Errorf("%w: new password must differ from the current one", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(req.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", zap.Uint("user_id", user.ID))
	return &domain.MessageResponse{Message: "Contraseña actualizada correctamente."}, nil
}
