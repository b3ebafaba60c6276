package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/google/uuid"
)

const internalErrorMessage = "internal server error"

func safeSend(c *Client, message []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("Attempted to send message to closed channel", "user_id", c.userID)
		}
	}()

	select {
	case c.send <- message:
	default:
		// Channel is full, skip sending
		slog.Default().Warn("Unable to send message to client, channel unavailable", "user_id", c.userID)
	}
}

func parseTableID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid table id %q", game.ErrValidation, raw)
	}
	return id, nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sideEffectTimeout)
}

// verify checks that credential is a live session of this user at the
// table, moves it onto this connection if it was bound elsewhere and adds
// the connection to the table's room.
func verify(ctx context.Context, c *Client, tableID uuid.UUID, credential string) (*auth.SessionClaims, error) {
	claims, err := c.hub.sessions.Validate(ctx, credential)
	if err == nil && (claims.TableID != tableID || claims.UserID != c.userID) {
		err = fmt.Errorf("%w: credential belongs to another table or user", auth.ErrSessionInvalid)
	}
	if err == nil && claims.ConnectionID != c.id {
		_, err = c.hub.sessions.Rebind(ctx, credential, tableID, c.userID, c.id)
	}
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalid) {
			safeSend(c, createSessionInvalid(tableID))
		}
		return nil, err
	}
	c.hub.joinRoom(tableID, c)
	return claims, nil
}

// authenticate is verify plus a proactive sessionRefresh when the
// credential is close to expiry.
func authenticate(ctx context.Context, c *Client, tableID uuid.UUID, credential string) error {
	claims, err := verify(ctx, c, tableID, credential)
	if err != nil {
		return err
	}
	if c.hub.sessions.NeedsRefresh(claims) {
		s, err := c.hub.sessions.Refresh(ctx, credential)
		if err != nil {
			slog.Warn("Failed to refresh session", "user_id", c.userID, "table_id", tableID, "error", err)
			return nil
		}
		safeSend(c, createSessionCreated(actionSessionRefresh, s))
	}
	return nil
}

func handleJoinWaitingRoom(c *Client, msg joinWaitingRoom) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	handle, err := c.hub.registry.Get(tableID)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	var session *auth.Session
	if msg.Credential != "" {
		session, err = c.hub.sessions.Rebind(ctx, msg.Credential, tableID, c.userID, c.id)
		if err != nil {
			slog.Debug("Ignoring stale credential on join", "user_id", c.userID, "table_id", tableID, "error", err)
			session = nil
		}
	}

	name := c.username
	if msg.PlayerName != "" && msg.PlayerName != c.username {
		if owner, err := c.hub.directory.LookupByName(ctx, msg.PlayerName); err == nil && owner.ID != c.userID {
			return fmt.Errorf("%w: player name %q belongs to another account", game.ErrValidation, msg.PlayerName)
		}
		name = msg.PlayerName
	}
	user, err := c.hub.directory.LookupByID(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("failed to load player: %w", err)
	}

	rejoined := false
	snapshot, err := handle.Do(func(t *game.Table) error {
		if t.Has(c.userID) {
			rejoined = true
			return t.MarkReconnected(c.userID)
		}
		return t.JoinWaitingRoom(game.NewPlayer(c.userID, name, user.Chips))
	})
	if err != nil {
		return err
	}

	if session == nil {
		// Sessions left on another connection would vacate the seat when
		// that connection drops.
		if _, err := c.hub.sessions.RevokeUser(ctx, tableID, c.userID); err != nil {
			slog.Warn("Failed to revoke previous sessions", "user_id", c.userID, "table_id", tableID, "error", err)
		}
		session, err = c.hub.sessions.Issue(ctx, c.userID, tableID, c.id)
		if err != nil {
			return fmt.Errorf("failed to issue session: %w", err)
		}
	}
	c.hub.joinRoom(tableID, c)
	safeSend(c, createSessionCreated(actionSessionCreated, session))
	slog.Info("Player joined table", "user_id", c.userID, "table_id", tableID, "rejoined", rejoined)

	c.hub.afterMutation(snapshot, game.Outcome{})
	return nil
}

func handleSitDown(c *Client, msg sitDown) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	handle, err := c.hub.registry.Get(tableID)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := authenticate(ctx, c, tableID, msg.Credential); err != nil {
		return err
	}

	snapshot, err := handle.Do(func(t *game.Table) error {
		return t.SitDown(c.userID, msg.Position)
	})
	if err != nil {
		return err
	}
	c.hub.afterMutation(snapshot, game.Outcome{})
	return nil
}

func handlePlayerAction(c *Client, msg playerAction) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	kind, err := game.ParseActionKind(msg.Kind)
	if err != nil {
		return err
	}
	handle, err := c.hub.registry.Get(tableID)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := authenticate(ctx, c, tableID, msg.Credential); err != nil {
		return err
	}

	var out game.Outcome
	snapshot, err := handle.Do(func(t *game.Table) error {
		var err error
		out, err = t.Act(c.userID, kind, msg.Amount)
		return err
	})
	if err != nil {
		return err
	}
	c.hub.afterMutation(snapshot, out)
	return nil
}

func handleStartHand(c *Client, msg startHand) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	handle, err := c.hub.registry.Get(tableID)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := authenticate(ctx, c, tableID, msg.Credential); err != nil {
		return err
	}

	var out game.Outcome
	snapshot, err := handle.Do(func(t *game.Table) error {
		if !t.IsSeated(c.userID) {
			return game.ErrPlayerNotSeated
		}
		var err error
		out, err = t.Start()
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("Hand started", "table_id", tableID, "hand", snapshot.HandNumber, "started_by", c.userID)
	c.hub.afterMutation(snapshot, out)
	return nil
}

func handleLeaveTable(c *Client, msg leaveTable) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	handle, err := c.hub.registry.Get(tableID)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if _, err := verify(ctx, c, tableID, msg.Credential); err != nil {
		return err
	}

	var out game.Outcome
	snapshot, err := handle.Do(func(t *game.Table) error {
		var err error
		out, err = t.Leave(c.userID)
		return err
	})
	if err != nil {
		return err
	}

	if _, err := c.hub.sessions.RevokeUser(ctx, tableID, c.userID); err != nil {
		slog.Warn("Failed to revoke session on leave", "user_id", c.userID, "table_id", tableID, "error", err)
	}
	c.hub.leaveRoom(tableID, c)
	safeSend(c, createTableState(snapshot.ViewFor(c.userID)))
	slog.Info("Player left table", "user_id", c.userID, "table_id", tableID)

	c.hub.afterMutation(snapshot, out)
	return nil
}

func handleRefreshSession(c *Client, msg refreshSession) error {
	tableID, err := parseTableID(msg.TableID)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if _, err := verify(ctx, c, tableID, msg.Credential); err != nil {
		return err
	}

	s, err := c.hub.sessions.Refresh(ctx, msg.Credential)
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalid) {
			safeSend(c, createSessionInvalid(tableID))
		}
		return err
	}
	safeSend(c, createSessionCreated(actionSessionRefresh, s))
	return nil
}

// handleDisconnect applies a dropped connection to every table it held a
// session at. Seats in a live hand are kept until the hand boundary;
// everything else is vacated now so the chips go back to the bankroll.
func (h *Hub) handleDisconnect(c *Client) {
	ctx, cancel := requestContext()
	defer cancel()

	sessions, err := h.sessions.SessionsForConnection(ctx, c.id)
	if err != nil {
		slog.Warn("Failed to load sessions for connection", "connection_id", c.id, "error", err)
		return
	}
	for _, s := range sessions {
		handle, err := h.registry.Get(s.TableID)
		if err != nil {
			continue
		}
		var out game.Outcome
		snapshot, err := handle.Do(func(t *game.Table) error {
			if t.IsSeated(s.UserID) {
				return t.MarkDisconnected(s.UserID)
			}
			var err error
			out, err = t.Leave(s.UserID)
			return err
		})
		h.leaveRoom(s.TableID, c)
		if err != nil {
			slog.Debug("Disconnect left table unchanged", "user_id", s.UserID, "table_id", s.TableID, "error", err)
			continue
		}
		slog.Info("Player disconnected", "user_id", s.UserID, "table_id", s.TableID, "phase", snapshot.Phase)
		h.afterMutation(snapshot, out)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, auth.ErrSessionInvalid):
		return "session"
	default:
		return game.Kind(err)
	}
}

func marshal(v interface{}) []byte {
	resp, err := json.Marshal(v)
	if err != nil {
		slog.Default().Warn("Marshal outbound message", "error", err)
	}
	return resp
}

func createTableState(snapshot game.Snapshot) []byte {
	msg := tableState{
		base:  base{Action: actionTableState},
		Table: snapshot,
	}
	if acting, ok := snapshot.Acting(); ok {
		msg.ActingPlayerID = acting.ID.String()
	}
	return marshal(msg)
}

func createHandEnded(snapshot game.Snapshot) []byte {
	return marshal(handEnded{
		base:       base{Action: actionHandEnded},
		TableID:    snapshot.ID.String(),
		HandNumber: snapshot.HandNumber,
		Winners:    snapshot.Winners,
	})
}

func createSessionCreated(action string, s *auth.Session) []byte {
	return marshal(sessionCreated{
		base:       base{Action: action},
		TableID:    s.TableID.String(),
		Credential: s.Credential,
		ExpiresAt:  s.ExpiresAt,
	})
}

func createSessionInvalid(tableID uuid.UUID) []byte {
	return marshal(sessionInvalid{
		base:    base{Action: actionSessionInvalid},
		TableID: tableID.String(),
	})
}

func createErrorMessage(err error) []byte {
	kind := errorKind(err)
	message := err.Error()
	if kind == "internal" {
		slog.Default().Error("Internal error handling message", "error", err)
		message = internalErrorMessage
	}
	return marshal(errorMessage{
		base:    base{Action: actionError},
		Message: message,
		Kind:    kind,
	})
}
