package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"skystore/config"
	"skystore/models"
	"skystore/repositories"
	"skystore/utils"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string
	Password string
	Email    string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type LoginOutput struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type ProfileOutput struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	StorageQuota int64     `json:"storage_quota"`
	UsedStorage  int64     `json:"used_storage"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (AuthUser, error)
	Login(ctx context.Context, in LoginInput) (LoginOutput, error)
	GetProfile(ctx context.Context, userID uint) (ProfileOutput, error)
}

type authService struct {
	cfg   *config.Config
	users repositories.UserRepository
	quota QuotaService
}

func NewAuthService(cfg *config.Config, users repositories.UserRepository, quota QuotaService) AuthService {
	return &authService{cfg: cfg, users: users, quota: quota}
}

// Register creates an account in the pending role. Pending users can log in
// and view their profile but cannot touch storage until an admin approves
// them.
func (s *authService) Register(ctx context.Context, in RegisterInput) (AuthUser, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	count, err := s.users.CountByUsername(ctx, username)
	if err != nil {
		return AuthUser{}, newInternal("failed to check username", err)
	}
	if count > 0 {
		return AuthUser{}, newBadRequest("username already exists")
	}

	if email != "" {
		count, err = s.users.CountByEmail(ctx, email)
		if err != nil {
			return AuthUser{}, newInternal("failed to check email", err)
		}
		if count > 0 {
			return AuthUser{}, newBadRequest("email already exists")
		}
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return AuthUser{}, newInternal("failed to hash password", err)
	}

	user := models.User{
		Username:     username,
		Password:     hashedPassword,
		Email:        email,
		Role:         models.RolePending,
		IsActive:     false,
		StorageQuota: s.quota.DefaultUserQuota(ctx, s.cfg.Quota.DefaultUserQuota),
	}

	if err := s.users.Create(ctx, nil, &user); err != nil {
		return AuthUser{}, newInternal("failed to create user", err)
	}

	return AuthUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	user, err := s.users.GetByUsername(ctx, nil, in.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginOutput{}, newAppError(KindPermissionDenied, 401, "invalid username or password", nil)
		}
		return LoginOutput{}, newInternal("failed to query user", err)
	}

	if !utils.CheckPassword(user.Password, in.Password) {
		return LoginOutput{}, newAppError(KindPermissionDenied, 401, "invalid username or password", nil)
	}

	expire := time.Duration(s.cfg.JWT.ExpireHours) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Role, s.cfg.JWT.Secret, expire)
	if err != nil {
		return LoginOutput{}, newInternal("failed to generate token", err)
	}

	return LoginOutput{
		Token: token,
		User: AuthUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
			IsActive: user.IsActive,
		},
	}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID uint) (ProfileOutput, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileOutput{}, newNotFound("user not found")
		}
		return ProfileOutput{}, newInternal("failed to query user", err)
	}

	return ProfileOutput{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		IsActive:     user.IsActive,
		StorageQuota: user.StorageQuota,
		UsedStorage:  user.UsedStorage,
		CreatedAt:    user.CreatedAt,
	}, nil
}
