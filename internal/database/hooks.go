package database

import (
	"log/slog"
)

// SetupIndexes creates additional indexes that GORM can't handle automatically
func (db *DB) SetupIndexes() error {
	slog.Info("Setting up additional database indexes")

	// One history row per hand of a table
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_hand_histories_unique
		ON hand_histories(table_id, hand_number)
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	// Lobby listing of open tables
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_poker_tables_open
		ON poker_tables(created_at DESC)
		WHERE status = 'open' AND deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	slog.Info("Additional database indexes created successfully")
	return nil
}
