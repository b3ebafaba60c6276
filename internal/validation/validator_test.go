package validation

import (
	"testing"

	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateCreateUserRequest(t *testing.T) {
	valid := models.CreateUserRequest{Email: "test@example.com", Username: "test_user", Password: "Password123!"}
	weak := "password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"

	tests := []struct {
		name     string
		mutate   func(r *models.CreateUserRequest)
		errorMsg string
	}{
		{"valid request", func(*models.CreateUserRequest) {}, ""},
		{"missing email", func(r *models.CreateUserRequest) { r.Email = "" }, "email is required"},
		{"invalid email", func(r *models.CreateUserRequest) { r.Email = "invalid-email" }, "email must be a valid email address"},
		{"username too short", func(r *models.CreateUserRequest) { r.Username = "ab" }, "username must be at least 3 characters long"},
		{"username invalid characters", func(r *models.CreateUserRequest) { r.Username = "test-user!" }, "username must contain only letters, numbers, and underscores"},
		{"password too short", func(r *models.CreateUserRequest) { r.Password = "Pass1!" }, "password must be at least 8 characters long"},
		{"password without uppercase", func(r *models.CreateUserRequest) { r.Password = "password123!" }, weak},
		{"password without special character", func(r *models.CreateUserRequest) { r.Password = "Password123" }, weak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := Validate(&req)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateCreateTableRequest(t *testing.T) {
	tests := []struct {
		name     string
		request  models.CreateTableRequest
		errorMsg string
	}{
		{"valid", models.CreateTableRequest{Name: "High Rollers", MaxPlayers: 6, MinimumBet: 20}, ""},
		{"name too short", models.CreateTableRequest{Name: "ab", MaxPlayers: 6, MinimumBet: 20}, "name must be at least 3 characters long"},
		{"too many seats", models.CreateTableRequest{Name: "Big", MaxPlayers: 11, MinimumBet: 20}, "max_players must be at most 10"},
		{"minimum bet too small", models.CreateTableRequest{Name: "Tiny", MaxPlayers: 2, MinimumBet: 1}, "minimum_bet must be at least 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.request)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

type actionFrame struct {
	Kind     string `json:"kind" validate:"required,action_kind"`
	Position int    `json:"position" validate:"seat_position"`
}

func TestCustomValidators(t *testing.T) {
	tests := []struct {
		name     string
		frame    actionFrame
		errorMsg string
	}{
		{"raise at seat 0", actionFrame{Kind: "raise", Position: 0}, ""},
		{"check at last seat", actionFrame{Kind: "check", Position: 9}, ""},
		{"unknown action", actionFrame{Kind: "allin", Position: 0}, "kind must be one of: fold check call bet raise"},
		{"seat out of range", actionFrame{Kind: "fold", Position: 10}, "position must be between 0 and 9"},
		{"negative seat", actionFrame{Kind: "fold", Position: -1}, "position must be between 0 and 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.frame)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID("550e8400-e29b-41d4-a716-446655440000"))
	assert.Error(t, ValidateUUID("invalid-uuid"))
	assert.Error(t, ValidateUUID(""))
}
