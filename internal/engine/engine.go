package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/google/uuid"
)

var (
	ErrTableNotFound = fmt.Errorf("%w: table not found", game.ErrNotFound)
	ErrTableExists   = fmt.Errorf("%w: table already exists", game.ErrState)
	ErrTableNotEmpty = fmt.Errorf("%w: table still has players", game.ErrState)
)

// TableSummary is the lobby listing entry for a table.
type TableSummary struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	HostID     uuid.UUID  `json:"hostId"`
	Occupied   int        `json:"occupied"`
	Capacity   int        `json:"capacity"`
	MinimumBet int64      `json:"minimumBet"`
	Phase      game.Phase `json:"phase"`
}

// TableHandle serializes access to one table. Every read and write of the
// underlying game.Table goes through Do or Snapshot.
type TableHandle struct {
	id uuid.UUID

	mu           sync.Mutex
	table        *game.Table
	lastActivity time.Time
	now          func() time.Time
}

func (h *TableHandle) ID() uuid.UUID {
	return h.id
}

// Do runs fn with exclusive access to the table and returns a snapshot
// taken before the lock is released. The snapshot is returned even when fn
// fails; game errors leave the table unchanged.
func (h *TableHandle) Do(fn func(t *game.Table) error) (game.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := fn(h.table)
	h.lastActivity = h.now()
	return h.table.Snapshot(), err
}

// Snapshot returns the current state.
func (h *TableHandle) Snapshot() game.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.table.Snapshot()
}

func (h *TableHandle) summary() TableSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return TableSummary{
		ID:         h.table.ID,
		Name:       h.table.Name,
		HostID:     h.table.HostID,
		Occupied:   h.table.Occupied(),
		Capacity:   h.table.MaxSeats,
		MinimumBet: h.table.MinimumBet,
		Phase:      h.table.Phase,
	}
}

func (h *TableHandle) empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.table.IsEmpty()
}

// idleSince reports whether the table is empty, or left only to
// disconnected players, and untouched since cutoff.
func (h *TableHandle) idleSince(cutoff time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.table.Abandoned() && h.lastActivity.Before(cutoff)
}

// Registry holds the live tables of this process. Tables share nothing, so
// the registry lock only guards the map; table work happens under each
// handle's own lock.
type Registry struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]*TableHandle
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[uuid.UUID]*TableHandle),
		now:    time.Now,
	}
}

// Create builds a table from opts and registers it.
func (r *Registry) Create(opts game.Options) (*TableHandle, error) {
	table, err := game.NewTable(opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[table.ID]; exists {
		return nil, ErrTableExists
	}
	handle := &TableHandle{
		id:           table.ID,
		table:        table,
		lastActivity: r.now(),
		now:          r.now,
	}
	r.tables[table.ID] = handle

	slog.Info("Table created", "table_id", table.ID, "name", table.Name, "max_seats", table.MaxSeats, "minimum_bet", table.MinimumBet)
	return handle, nil
}

// Get returns the handle for id.
func (r *Registry) Get(id uuid.UUID) (*TableHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return handle, nil
}

// Remove drops a table from the registry.
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[id]; !ok {
		return ErrTableNotFound
	}
	delete(r.tables, id)
	slog.Info("Table removed", "table_id", id)
	return nil
}

// RemoveIfEmpty drops the table only if nobody is seated or waiting.
func (r *Registry) RemoveIfEmpty(id uuid.UUID) error {
	handle, err := r.Get(id)
	if err != nil {
		return err
	}
	if !handle.empty() {
		return ErrTableNotEmpty
	}
	return r.Remove(id)
}

// ListActive returns a summary of every table, ordered by name.
func (r *Registry) ListActive() []TableSummary {
	r.mu.RLock()
	handles := make([]*TableHandle, 0, len(r.tables))
	for _, h := range r.tables {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	summaries := make([]TableSummary, 0, len(handles))
	for _, h := range handles {
		summaries = append(summaries, h.summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Name == summaries[j].Name {
			return summaries[i].ID.String() < summaries[j].ID.String()
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// RemoveIdle drops tables that are empty or held only by disconnected
// players and have seen no activity for maxIdle. It returns their ids.
func (r *Registry) RemoveIdle(maxIdle time.Duration) []uuid.UUID {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []uuid.UUID
	for id, h := range r.tables {
		if h.idleSince(cutoff) {
			delete(r.tables, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		slog.Info("Removed idle tables", "count", len(removed), "max_idle", maxIdle)
	}
	return removed
}

// Len is the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// IsNotFound reports whether err means a table or player could not be found.
func IsNotFound(err error) bool {
	return errors.Is(err, game.ErrNotFound)
}
