package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var (
	errUnknownAction = fmt.Errorf("%w: unexpected message action", game.ErrValidation)
	errRateLimited   = errors.New("rate limit exceeded")
)

// Client is a middleman between the websocket connection and the hub. The
// connection is authenticated with an account token at upgrade time.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte // Buffered channel of outbound bytes
	id       string      // Connection id that table sessions bind to
	userID   uuid.UUID
	username string
}

func newClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID, username string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		id:       uuid.NewString(),
		userID:   userID,
		username: username,
	}
}

func (c *Client) disconnect() {
	c.hub.handleDisconnect(c)
	if c.hub.limiter != nil {
		c.hub.limiter.Forget(c.id)
	}
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stopped:
	}
	c.conn.Close()
}

// readPump pumps events from the websocket connection to the hub.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Websocket unexpected close", "error", err, "user_id", c.userID)
			}
			break
		}
		if err := c.processEvents(message); err != nil {
			slog.Debug("Process websocket message", "error", err, "user_id", c.userID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("Write websocket message", "error", err, "user_id", c.userID)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("Write websocket ping", "error", err, "user_id", c.userID)
				return
			}
		}
	}
}

// ServeWs upgrades a request that has passed account authentication.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "User not authenticated", http.StatusUnauthorized)
		return
	}
	username, _ := auth.GetUsernameFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err, "user_id", userID)
		return
	}
	client := newClient(conn, hub, userID, username)
	slog.Info("Websocket connected", "user_id", userID, "connection_id", client.id)

	select {
	case client.hub.register <- client:
	case <-client.hub.stopped:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

// decode unmarshals and validates an inbound frame.
func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed message: %v", game.ErrValidation, err)
	}
	if err := validation.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrValidation, err)
	}
	return nil
}

func (c *Client) processEvents(rawMessage []byte) error {
	if c.hub.limiter != nil && !c.hub.limiter.Allow(c.id) {
		safeSend(c, createErrorMessage(errRateLimited))
		return errRateLimited
	}

	err := c.dispatch(rawMessage)
	if err != nil {
		safeSend(c, createErrorMessage(err))
	}
	return err
}

func (c *Client) dispatch(rawMessage []byte) error {
	var baseMessage base
	if err := json.Unmarshal(rawMessage, &baseMessage); err != nil {
		return fmt.Errorf("%w: malformed message: %v", game.ErrValidation, err)
	}

	switch baseMessage.Action {
	case actionJoinWaitingRoom:
		var msg joinWaitingRoom
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handleJoinWaitingRoom(c, msg)

	case actionSitDown:
		var msg sitDown
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handleSitDown(c, msg)

	case actionPlayerAction:
		var msg playerAction
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handlePlayerAction(c, msg)

	case actionStartHand:
		var msg startHand
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handleStartHand(c, msg)

	case actionLeaveTable:
		var msg leaveTable
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handleLeaveTable(c, msg)

	case actionRefreshSession:
		var msg refreshSession
		if err := decode(rawMessage, &msg); err != nil {
			return err
		}
		return handleRefreshSession(c, msg)

	default:
		return errUnknownAction
	}
}
