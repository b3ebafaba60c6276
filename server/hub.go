package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/middleware"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/google/uuid"
)

// sideEffectTimeout bounds each persistence call made after a table
// mutation.
const sideEffectTimeout = 5 * time.Second

// Directory resolves accounts and stores chip stacks.
type Directory interface {
	LookupByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	LookupByName(ctx context.Context, username string) (*models.User, error)
	SaveChips(ctx context.Context, userID uuid.UUID, chips int64) error
	RecordHandsPlayed(ctx context.Context, userIDs []uuid.UUID) error
}

// HistoryRecorder stores settled hands.
type HistoryRecorder interface {
	RecordHand(ctx context.Context, snapshot game.Snapshot) error
}

// SnapshotCache mirrors the public view of live tables.
type SnapshotCache interface {
	SetTableSnapshot(ctx context.Context, snapshot game.Snapshot) error
	DeleteTableSnapshot(ctx context.Context, tableID uuid.UUID) error
}

// TableArchive closes the durable record of a table the janitor removed.
type TableArchive interface {
	MarkClosed(ctx context.Context, id uuid.UUID) error
}

// HubOptions carries the hub's collaborators. Registry, Sessions and
// Directory are required; the rest may be nil.
type HubOptions struct {
	Registry *engine.Registry
	Sessions *auth.SessionManager
	// Directory supplies player names and bankrolls.
	Directory Directory
	History   HistoryRecorder
	Cache     SnapshotCache
	Archive   TableArchive
	// Limiter bounds inbound frames per connection.
	Limiter *middleware.RateLimiter
}

// Hub maintains the set of active clients and the room of every table that
// has connections.
type Hub struct {
	registry  *engine.Registry
	sessions  *auth.SessionManager
	directory Directory
	history   HistoryRecorder
	cache     SnapshotCache
	archive   TableArchive
	limiter   *middleware.RateLimiter

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	mu    sync.RWMutex
	rooms map[uuid.UUID]*room
}

func NewHub(opts HubOptions) *Hub {
	return &Hub{
		registry:   opts.Registry,
		sessions:   opts.Sessions,
		directory:  opts.Directory,
		history:    opts.History,
		cache:      opts.Cache,
		archive:    opts.Archive,
		limiter:    opts.Limiter,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		rooms:      make(map[uuid.UUID]*room),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		h.leaveAllRooms(client)
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) room(tableID uuid.UUID) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[tableID]
}

func (h *Hub) joinRoom(tableID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[tableID]
	if r == nil {
		r = newRoom(tableID)
		h.rooms[tableID] = r
	}
	r.join(c)
}

func (h *Hub) leaveRoom(tableID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r := h.rooms[tableID]; r != nil && r.leave(c) == 0 {
		delete(h.rooms, tableID)
	}
}

func (h *Hub) leaveAllRooms(c *Client) {
	h.mu.RLock()
	ids := make([]uuid.UUID, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.leaveRoom(id, c)
	}
}

// broadcastState sends every member of the table's room the snapshot as
// that member may see it.
func (h *Hub) broadcastState(snapshot game.Snapshot) {
	r := h.room(snapshot.ID)
	if r == nil {
		return
	}
	r.each(func(c *Client) {
		safeSend(c, createTableState(snapshot.ViewFor(c.userID)))
	})
}

func (h *Hub) broadcast(tableID uuid.UUID, message []byte) {
	if r := h.room(tableID); r != nil {
		r.each(func(c *Client) { safeSend(c, message) })
	}
}

// afterMutation runs the work that follows a table change once the table
// lock has been released: fan-out, caching, history and chip persistence.
func (h *Hub) afterMutation(snapshot game.Snapshot, out game.Outcome) {
	h.broadcastState(snapshot)

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if h.cache != nil {
		if err := h.cache.SetTableSnapshot(ctx, snapshot); err != nil {
			slog.Warn("Failed to cache table snapshot", "table_id", snapshot.ID, "error", err)
		}
	}

	for _, p := range out.Departed {
		h.saveChips(ctx, p.ID, p.Chips)
	}

	if !out.HandEnded {
		return
	}
	h.broadcast(snapshot.ID, createHandEnded(snapshot))
	slog.Info("Hand settled", "table_id", snapshot.ID, "hand", snapshot.HandNumber, "winners", len(snapshot.Winners))

	if h.history != nil {
		if err := h.history.RecordHand(ctx, snapshot); err != nil {
			slog.Warn("Failed to record hand history", "table_id", snapshot.ID, "hand", snapshot.HandNumber, "error", err)
		}
	}
	var dealt []uuid.UUID
	for _, seat := range snapshot.Seats {
		if seat.Player == nil {
			continue
		}
		h.saveChips(ctx, seat.Player.ID, seat.Player.Chips)
		if len(seat.Player.HoleCards) > 0 {
			dealt = append(dealt, seat.Player.ID)
		}
	}
	if err := h.directory.RecordHandsPlayed(ctx, dealt); err != nil {
		slog.Warn("Failed to record hands played", "table_id", snapshot.ID, "players", len(dealt), "error", err)
	}
}

func (h *Hub) saveChips(ctx context.Context, userID uuid.UUID, chips int64) {
	if err := h.directory.SaveChips(ctx, userID, chips); err != nil {
		slog.Warn("Failed to save player chips", "user_id", userID, "chips", chips, "error", err)
	}
}

// TableClosed drops everything the hub holds for a removed table.
func (h *Hub) TableClosed(ctx context.Context, tableID uuid.UUID) {
	if r := h.room(tableID); r != nil {
		message := createSessionInvalid(tableID)
		r.each(func(c *Client) { safeSend(c, message) })
	}
	h.mu.Lock()
	delete(h.rooms, tableID)
	h.mu.Unlock()

	if n, err := h.sessions.RevokeTable(ctx, tableID); err != nil {
		slog.Warn("Failed to revoke table sessions", "table_id", tableID, "error", err)
	} else if n > 0 {
		slog.Info("Revoked table sessions", "table_id", tableID, "count", n)
	}
	if h.cache != nil {
		if err := h.cache.DeleteTableSnapshot(ctx, tableID); err != nil {
			slog.Warn("Failed to drop cached snapshot", "table_id", tableID, "error", err)
		}
	}
}

// SweepIdleTables removes tables that have been abandoned and untouched for
// maxIdle.
func (h *Hub) SweepIdleTables(ctx context.Context, maxIdle time.Duration) []uuid.UUID {
	removed := h.registry.RemoveIdle(maxIdle)
	for _, id := range removed {
		slog.Info("Removed idle table", "table_id", id)
		h.TableClosed(ctx, id)
		if h.archive != nil {
			if err := h.archive.MarkClosed(ctx, id); err != nil {
				slog.Warn("Failed to close idle table record", "table_id", id, "error", err)
			}
		}
	}
	return removed
}

// RunJanitor sweeps idle tables every interval until ctx is cancelled.
func (h *Hub) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepIdleTables(ctx, maxIdle)
		}
	}
}
