package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/anhbaysgalan1/holdem/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TableRecords stores the durable side of a table.
type TableRecords interface {
	CreateTable(ctx context.Context, req models.CreateTableRequest, createdBy uuid.UUID) (*models.PokerTable, error)
	MarkClosed(ctx context.Context, id uuid.UUID) error
	ListHands(ctx context.Context, tableID uuid.UUID, limit, offset int) ([]models.HandHistory, error)
}

// TableCloser is told when a table is deleted so live connections and
// caches can let go of it.
type TableCloser interface {
	TableClosed(ctx context.Context, tableID uuid.UUID)
}

// SnapshotSource returns the public view of a table cached by whichever
// node hosts it, or nil when nothing is cached.
type SnapshotSource interface {
	GetTableSnapshot(ctx context.Context, tableID uuid.UUID) (*game.Snapshot, error)
}

type TableHandler struct {
	registry   *engine.Registry
	records    TableRecords
	closer     TableCloser
	snapshots  SnapshotSource
	minimumBet int64
}

// NewTableHandler serves the table routes. defaultMinimumBet applies to
// create requests that leave the minimum bet out.
func NewTableHandler(registry *engine.Registry, records TableRecords, closer TableCloser, defaultMinimumBet int64) *TableHandler {
	return &TableHandler{
		registry:   registry,
		records:    records,
		closer:     closer,
		minimumBet: defaultMinimumBet,
	}
}

// UseSnapshotCache lets GetTable answer for tables this process does not
// host.
func (h *TableHandler) UseSnapshotCache(source SnapshotSource) {
	h.snapshots = source
}

func (h *TableHandler) Routes(m *auth.AuthMiddleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTables)
	r.With(m.OptionalAuth).Get("/{tableID}", h.GetTable)
	r.Get("/{tableID}/history", h.ListHands)
	r.Group(func(r chi.Router) {
		r.Use(m.RequireAuth)
		r.Post("/", h.CreateTable)
		r.Delete("/{tableID}", h.DeleteTable)
	})

	return r
}

// ListTables returns the live tables.
func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables := h.registry.ListActive()
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tables": tables,
		"total":  len(tables),
	})
}

// CreateTable stores a table record and opens the live table under the
// same id, hosted by the caller.
func (h *TableHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req models.CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MinimumBet == 0 {
		req.MinimumBet = h.minimumBet
	}

	record, err := h.records.CreateTable(r.Context(), req, userID)
	if err != nil {
		slog.Error("Failed to create table record", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create table")
		return
	}

	handle, err := h.registry.Create(game.Options{
		ID:         record.ID,
		Name:       record.Name,
		HostID:     userID,
		MaxSeats:   record.MaxPlayers,
		MinimumBet: record.MinimumBet,
	})
	if err != nil {
		if closeErr := h.records.MarkClosed(r.Context(), record.ID); closeErr != nil {
			slog.Warn("Failed to close orphaned table record", "table_id", record.ID, "error", closeErr)
		}
		if errors.Is(err, game.ErrValidation) {
			writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"table": record,
		"state": handle.Snapshot().ViewFor(userID),
	})
}

// GetTable returns the live table as the caller may see it. A table hosted
// elsewhere is served from the snapshot cache as its public view.
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := parseTableID(w, r)
	if !ok {
		return
	}
	if handle, err := h.registry.Get(tableID); err == nil {
		viewer, _ := auth.GetUserIDFromContext(r.Context())
		writeJSONResponse(w, http.StatusOK, handle.Snapshot().ViewFor(viewer))
		return
	}

	if h.snapshots != nil {
		cached, err := h.snapshots.GetTableSnapshot(r.Context(), tableID)
		if err != nil {
			slog.Warn("Failed to read cached table", "table_id", tableID, "error", err)
		} else if cached != nil {
			writeJSONResponse(w, http.StatusOK, cached)
			return
		}
	}
	writeErrorResponse(w, http.StatusNotFound, "Table not found")
}

// DeleteTable closes an empty table. Only its host may do so.
func (h *TableHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	handle, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if handle.Snapshot().HostID != userID {
		writeErrorResponse(w, http.StatusForbidden, "Only the table host can delete the table")
		return
	}

	if err := h.registry.RemoveIfEmpty(handle.ID()); err != nil {
		switch {
		case errors.Is(err, engine.ErrTableNotEmpty):
			writeErrorResponse(w, http.StatusConflict, "Table still has players")
		case engine.IsNotFound(err):
			writeErrorResponse(w, http.StatusNotFound, "Table not found")
		default:
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete table")
		}
		return
	}

	if err := h.records.MarkClosed(r.Context(), handle.ID()); err != nil {
		slog.Warn("Failed to close table record", "table_id", handle.ID(), "error", err)
	}
	if h.closer != nil {
		h.closer.TableClosed(r.Context(), handle.ID())
	}

	slog.Info("Table deleted", "table_id", handle.ID(), "host_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// ListHands returns a page of the table's settled hands, newest first.
func (h *TableHandler) ListHands(w http.ResponseWriter, r *http.Request) {
	tableID, ok := parseTableID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	hands, err := h.records.ListHands(r.Context(), tableID, limit, offset)
	if err != nil {
		slog.Error("Failed to list hands", "table_id", tableID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to fetch hand history")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"hands": hands,
		"pagination": map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func parseTableID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tableID"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid table ID")
		return uuid.Nil, false
	}
	return tableID, true
}

func (h *TableHandler) lookup(w http.ResponseWriter, r *http.Request) (*engine.TableHandle, bool) {
	tableID, ok := parseTableID(w, r)
	if !ok {
		return nil, false
	}
	handle, err := h.registry.Get(tableID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "Table not found")
		return nil, false
	}
	return handle, true
}
