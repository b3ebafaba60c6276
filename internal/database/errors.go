package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Unique indexes created by AutoMigrate and SetupIndexes.
const (
	ConstraintUserEmail    = "idx_users_email"
	ConstraintUserUsername = "idx_users_username"
	ConstraintHandNumber   = "idx_hand_histories_unique"
)

const codeUniqueViolation = "23505"

// UniqueViolation returns the name of the unique index a write collided
// with.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsUniqueConstraintError checks if the error is a unique constraint violation
func IsUniqueConstraintError(err error) bool {
	_, ok := UniqueViolation(err)
	return ok
}

// IsDuplicateHand reports whether the table already has a history row for
// the hand number.
func IsDuplicateHand(err error) bool {
	name, ok := UniqueViolation(err)
	return ok && name == ConstraintHandNumber
}

// DuplicateAccountField names the account field a registration collided
// on.
func DuplicateAccountField(err error) string {
	name, _ := UniqueViolation(err)
	switch name {
	case ConstraintUserEmail:
		return "email"
	case ConstraintUserUsername:
		return "username"
	default:
		return "account"
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
