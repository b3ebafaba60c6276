package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TableStatusOpen   = "open"
	TableStatusClosed = "closed"
)

// PokerTable is the durable record of a table. Live state is held by the
// engine; this row outlives the process.
type PokerTable struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string         `json:"name" gorm:"not null;size:100;index"`
	MaxPlayers int            `json:"max_players" gorm:"not null;default:9"`
	MinimumBet int64          `json:"minimum_bet" gorm:"not null"`
	Status     string         `json:"status" gorm:"not null;size:20;default:open;index"` // 'open', 'closed'
	HandsDealt int            `json:"hands_dealt" gorm:"default:0"`
	CreatedBy  uuid.UUID      `json:"created_by" gorm:"type:uuid;not null;index"`
	Creator    User           `json:"-" gorm:"foreignKey:CreatedBy"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

type CreateTableRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=100"`
	MaxPlayers int    `json:"max_players" validate:"required,min=2,max=10"`
	MinimumBet int64  `json:"minimum_bet" validate:"omitempty,min=2"`
}

// HandHistory is one settled hand: the final public table view and the
// winners.
type HandHistory struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TableID    uuid.UUID      `json:"table_id" gorm:"type:uuid;not null;index"`
	HandNumber int            `json:"hand_number" gorm:"not null"`
	Pot        int64          `json:"pot" gorm:"not null;default:0"`
	Board      JSONDocument   `json:"board" gorm:"type:jsonb"`
	Winners    JSONDocument   `json:"winners" gorm:"type:jsonb;not null"`
	Snapshot   JSONDocument   `json:"snapshot" gorm:"type:jsonb;not null"`
	PlayedAt   time.Time      `json:"played_at" gorm:"not null;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// JSONDocument is raw JSON stored in a jsonb column.
type JSONDocument json.RawMessage

func (d *JSONDocument) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = JSONDocument(v)
	default:
		return errors.New("failed to scan JSONDocument")
	}
	return nil
}

func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}
