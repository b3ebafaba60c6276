package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/database"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxHistoryPage = 100

// HistoryStore appends settled hands to postgres.
type HistoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// HandRecord builds the history row for a settled snapshot. The stored
// snapshot is the public view.
func HandRecord(snapshot game.Snapshot, playedAt time.Time) (*models.HandHistory, error) {
	if snapshot.Phase != game.Showdown {
		return nil, fmt.Errorf("%w: hand %d has not been settled", game.ErrState, snapshot.HandNumber)
	}

	view := snapshot.ViewFor(uuid.Nil)
	board, err := json.Marshal(view.CommunityCards)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	winners, err := json.Marshal(view.Winners)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal winners: %w", err)
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var pot int64
	for _, w := range view.Winners {
		pot += w.Amount
	}
	return &models.HandHistory{
		TableID:    view.ID,
		HandNumber: view.HandNumber,
		Pot:        pot,
		Board:      models.JSONDocument(board),
		Winners:    models.JSONDocument(winners),
		Snapshot:   models.JSONDocument(data),
		PlayedAt:   playedAt,
	}, nil
}

// AppendSnapshot stores a settled hand. Storing the same hand twice is a
// no-op.
func (hs *HistoryStore) AppendSnapshot(ctx context.Context, snapshot game.Snapshot) error {
	record, err := HandRecord(snapshot, hs.now())
	if err != nil {
		return err
	}
	if err := hs.db.WithContext(ctx).Create(record).Error; err != nil {
		if database.IsDuplicateHand(err) {
			slog.Debug("Hand already recorded", "table_id", snapshot.ID, "hand_number", snapshot.HandNumber)
			return nil
		}
		return fmt.Errorf("failed to save hand history: %w", err)
	}
	return nil
}

// ListHands returns a table's hands, newest first.
func (hs *HistoryStore) ListHands(ctx context.Context, tableID uuid.UUID, limit, offset int) ([]models.HandHistory, error) {
	if limit <= 0 || limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	if offset < 0 {
		offset = 0
	}

	var hands []models.HandHistory
	err := hs.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("hand_number DESC").
		Limit(limit).
		Offset(offset).
		Find(&hands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hand history: %w", err)
	}
	return hands, nil
}
