package server

import (
	"time"

	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
)

// inbound (client) actions
const (
	actionJoinWaitingRoom string = "joinWaitingRoom"
	actionSitDown         string = "sitDown"
	actionPlayerAction    string = "playerAction"
	actionStartHand       string = "startHand"
	actionLeaveTable      string = "leaveTable"
	actionRefreshSession  string = "refreshSession"
)

type base struct {
	// allows for correctly identifying messages
	Action string `json:"action"`
}

type joinWaitingRoom struct {
	base              // actionJoinWaitingRoom
	TableID    string `json:"tableId" validate:"required,uuid"`
	PlayerName string `json:"playerName" validate:"omitempty,min=1,max=50"`
	Credential string `json:"credential,omitempty"`
}

type sitDown struct {
	base              // actionSitDown
	TableID    string `json:"tableId" validate:"required,uuid"`
	Position   int    `json:"position" validate:"seat_position"`
	Credential string `json:"credential" validate:"required"`
}

type playerAction struct {
	base              // actionPlayerAction
	TableID    string `json:"tableId" validate:"required,uuid"`
	Kind       string `json:"kind" validate:"required,action_kind"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	Credential string `json:"credential" validate:"required"`
}

type startHand struct {
	base              // actionStartHand
	TableID    string `json:"tableId" validate:"required,uuid"`
	Credential string `json:"credential" validate:"required"`
}

type leaveTable struct {
	base              // actionLeaveTable
	TableID    string `json:"tableId" validate:"required,uuid"`
	Credential string `json:"credential" validate:"required"`
}

type refreshSession struct {
	base              // actionRefreshSession
	TableID    string `json:"tableId" validate:"required,uuid"`
	PlayerName string `json:"playerName"`
	Credential string `json:"credential" validate:"required"`
}

// outbound (server) actions
const (
	actionTableState     string = "tableState"
	actionSessionCreated string = "sessionCreated"
	actionSessionRefresh string = "sessionRefresh"
	actionSessionInvalid string = "sessionInvalid"
	actionHandEnded      string = "handEnded"
	actionError          string = "error"
)

type tableState struct {
	base                         // actionTableState
	Table          game.Snapshot `json:"table"`
	ActingPlayerID string        `json:"actingPlayerId,omitempty"`
}

type sessionCreated struct {
	base                 // actionSessionCreated or actionSessionRefresh
	TableID    string    `json:"tableId"`
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type sessionInvalid struct {
	base           // actionSessionInvalid
	TableID string `json:"tableId"`
}

type handEnded struct {
	base                     // actionHandEnded
	TableID    string        `json:"tableId"`
	HandNumber int           `json:"handNumber"`
	Winners    []game.Winner `json:"winners"`
}

type errorMessage struct {
	base           // actionError
	Message string `json:"message"`
	Kind    string `json:"kind"`
}
