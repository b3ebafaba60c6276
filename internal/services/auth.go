package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/database"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/google/uuid"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type AuthService struct {
	db            *database.DB
	jwtManager    *auth.JWTManager
	startingChips int64
}

func NewAuthService(db *database.DB, jwtManager *auth.JWTManager, startingChips int64) *AuthService {
	return &AuthService{
		db:            db,
		jwtManager:    jwtManager,
		startingChips: startingChips,
	}
}

// RegisterUser creates an account with the starting bankroll.
func (s *AuthService) RegisterUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var existingUser models.User
	err := s.db.WithContext(ctx).Where("email = ? OR username = ?", req.Email, req.Username).First(&existingUser).Error
	if err == nil {
		if existingUser.Email == req.Email {
			return nil, fmt.Errorf("%w: email %s is taken", ErrUserExists, req.Email)
		}
		return nil, fmt.Errorf("%w: username %s is taken", ErrUserExists, req.Username)
	}
	if !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Chips:        s.startingChips,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %s is taken", ErrUserExists, database.DuplicateAccountField(err))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

func (s *AuthService) LoginUser(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? OR username = ?", req.EmailOrUsername, req.EmailOrUsername).First(&user).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return &models.LoginResponse{User: user, Token: token}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
