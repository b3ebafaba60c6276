package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anhbaysgalan1/holdem/internal/database"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService is the player directory used by the realtime server: it
// resolves accounts and persists chip stacks when they leave a table.
type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func (us *UserService) LookupByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := us.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (us *UserService) LookupByName(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := us.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// SaveChips stores the player's stack after a settled hand or a departure.
func (us *UserService) SaveChips(ctx context.Context, userID uuid.UUID, chips int64) error {
	if chips < 0 {
		return fmt.Errorf("refusing to store negative stack %d for user %s", chips, userID)
	}

	result := us.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("chips", chips)
	if result.Error != nil {
		return fmt.Errorf("failed to save chips: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	slog.Debug("Saved player chips", "user_id", userID, "chips", chips)
	return nil
}

// RecordHandsPlayed bumps the hand counter of every listed player.
func (us *UserService) RecordHandsPlayed(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	err := us.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ?", userIDs).
		Update("total_hands_played", gorm.Expr("total_hands_played + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to record hands played: %w", err)
	}
	return nil
}
