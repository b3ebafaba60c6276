package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/database"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/engine/repositories"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/google/uuid"
)

var ErrTableNotFound = errors.New("table not found")

// TableService keeps the durable table records and their hand history.
type TableService struct {
	db      *database.DB
	history *repositories.HistoryStore
}

func NewTableService(db *database.DB, history *repositories.HistoryStore) *TableService {
	return &TableService{db: db, history: history}
}

// CreateTable stores the record for a new table. The returned id is the
// id the live table is registered under.
func (ts *TableService) CreateTable(ctx context.Context, req models.CreateTableRequest, createdBy uuid.UUID) (*models.PokerTable, error) {
	table := &models.PokerTable{
		Name:       req.Name,
		MaxPlayers: req.MaxPlayers,
		MinimumBet: req.MinimumBet,
		Status:     models.TableStatusOpen,
		CreatedBy:  createdBy,
	}

	if err := ts.db.WithContext(ctx).Create(table).Error; err != nil {
		slog.Error("Failed to create table", "name", req.Name, "error", err)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	slog.Info("Table record created", "table_id", table.ID, "name", table.Name)
	return table, nil
}

func (ts *TableService) GetTableByID(ctx context.Context, id uuid.UUID) (*models.PokerTable, error) {
	var table models.PokerTable
	if err := ts.db.WithContext(ctx).First(&table, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &table, nil
}

// MarkClosed flags the record once the live table is gone.
func (ts *TableService) MarkClosed(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := ts.db.WithContext(ctx).Model(&models.PokerTable{}).
		Where("id = ? AND status = ?", id, models.TableStatusOpen).
		Updates(map[string]interface{}{"status": models.TableStatusClosed, "closed_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to close table: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTableNotFound
	}
	return nil
}

// CloseAllOpen marks every open record closed. Live tables do not survive
// a restart, so records left open by a previous process are stale.
func (ts *TableService) CloseAllOpen(ctx context.Context) (int64, error) {
	result := ts.db.WithContext(ctx).Model(&models.PokerTable{}).
		Where("status = ?", models.TableStatusOpen).
		Updates(map[string]interface{}{"status": models.TableStatusClosed, "closed_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close stale tables: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RecordHand appends a settled hand to the history and counts it on the
// table record.
func (ts *TableService) RecordHand(ctx context.Context, snapshot game.Snapshot) error {
	if err := ts.history.AppendSnapshot(ctx, snapshot); err != nil {
		return err
	}
	err := ts.db.WithContext(ctx).Model(&models.PokerTable{}).
		Where("id = ?", snapshot.ID).
		Update("hands_dealt", snapshot.HandNumber).Error
	if err != nil {
		return fmt.Errorf("failed to update hands dealt: %w", err)
	}
	return nil
}

func (ts *TableService) ListHands(ctx context.Context, tableID uuid.UUID, limit, offset int) ([]models.HandHistory, error) {
	return ts.history.ListHands(ctx, tableID, limit, offset)
}
