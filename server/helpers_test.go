package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/anhbaysgalan1/holdem/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testStartingChips = 1000

type fakeDirectory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	saved map[uuid.UUID]int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: make(map[uuid.UUID]*models.User),
		saved: make(map[uuid.UUID]int64),
	}
}

func (d *fakeDirectory) add(name string) *models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := &models.User{ID: uuid.New(), Username: name, Email: name + "@example.com", Chips: testStartingChips}
	d.users[u.ID] = u
	return u
}

func (d *fakeDirectory) LookupByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) LookupByName(_ context.Context, username string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (d *fakeDirectory) SaveChips(_ context.Context, userID uuid.UUID, chips int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return services.ErrUserNotFound
	}
	u.Chips = chips
	d.saved[userID] = chips
	return nil
}

func (d *fakeDirectory) RecordHandsPlayed(_ context.Context, userIDs []uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range userIDs {
		if u, ok := d.users[id]; ok {
			u.TotalHandsPlayed++
		}
	}
	return nil
}

func (d *fakeDirectory) savedChips(userID uuid.UUID) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	chips, ok := d.saved[userID]
	return chips, ok
}

type fakeHistory struct {
	mu    sync.Mutex
	hands []game.Snapshot
}

func (h *fakeHistory) RecordHand(_ context.Context, snapshot game.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hands = append(h.hands, snapshot)
	return nil
}

func (h *fakeHistory) recorded() []game.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]game.Snapshot(nil), h.hands...)
}

type fakeCache struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]game.Snapshot
	deleted   []uuid.UUID
}

func (c *fakeCache) SetTableSnapshot(_ context.Context, snapshot game.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshots == nil {
		c.snapshots = make(map[uuid.UUID]game.Snapshot)
	}
	c.snapshots[snapshot.ID] = snapshot
	return nil
}

func (c *fakeCache) DeleteTableSnapshot(_ context.Context, tableID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, tableID)
	c.deleted = append(c.deleted, tableID)
	return nil
}

type fakeArchive struct {
	mu     sync.Mutex
	closed []uuid.UUID
}

func (a *fakeArchive) MarkClosed(_ context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = append(a.closed, id)
	return nil
}

type hubFixture struct {
	hub       *Hub
	registry  *engine.Registry
	sessions  *auth.SessionManager
	directory *fakeDirectory
	history   *fakeHistory
	cache     *fakeCache
	archive   *fakeArchive
}

func newHubFixture(t *testing.T, sessionTTL time.Duration) *hubFixture {
	t.Helper()
	f := &hubFixture{
		registry:  engine.NewRegistry(),
		directory: newFakeDirectory(),
		history:   &fakeHistory{},
		cache:     &fakeCache{},
		archive:   &fakeArchive{},
	}
	f.sessions = auth.NewSessionManager(
		auth.NewJWTManager("session-secret", "holdem-table", sessionTTL),
		auth.NewMemoryStore(),
		auth.SessionConfig{},
	)
	t.Cleanup(f.sessions.Close)
	f.hub = NewHub(HubOptions{
		Registry:  f.registry,
		Sessions:  f.sessions,
		Directory: f.directory,
		History:   f.history,
		Cache:     f.cache,
		Archive:   f.archive,
	})
	return f
}

func (f *hubFixture) createTable(t *testing.T, host uuid.UUID) uuid.UUID {
	t.Helper()
	handle, err := f.registry.Create(game.Options{
		Name:       "Test Table",
		HostID:     host,
		MaxSeats:   6,
		MinimumBet: 10,
		Rand:       rand.New(rand.NewSource(7)),
	})
	require.NoError(t, err)
	return handle.ID()
}

// connect returns a client with no websocket behind it; frames are read
// straight off its send channel.
func (f *hubFixture) connect(user *models.User) *Client {
	return &Client{
		hub:      f.hub,
		send:     make(chan []byte, sendBuffer),
		id:       uuid.NewString(),
		userID:   user.ID,
		username: user.Username,
	}
}

type frame struct {
	Action string `json:"action"`
	raw    []byte
}

func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var frames []frame
	for {
		select {
		case raw := <-c.send:
			var fr frame
			require.NoError(t, json.Unmarshal(raw, &fr))
			fr.raw = raw
			frames = append(frames, fr)
		default:
			return frames
		}
	}
}

// last returns the most recent frame with the given action.
func last(t *testing.T, frames []frame, action string, v interface{}) bool {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Action == action {
			require.NoError(t, json.Unmarshal(frames[i].raw, v))
			return true
		}
	}
	return false
}

func count(frames []frame, action string) int {
	n := 0
	for _, fr := range frames {
		if fr.Action == action {
			n++
		}
	}
	return n
}

func send(t *testing.T, c *Client, msg map[string]interface{}) error {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return c.processEvents(raw)
}

// join puts the client in the table's waiting room and returns its
// credential.
func join(t *testing.T, c *Client, tableID uuid.UUID) string {
	t.Helper()
	require.NoError(t, send(t, c, map[string]interface{}{
		"action":  actionJoinWaitingRoom,
		"tableId": tableID.String(),
	}))
	var created sessionCreated
	require.True(t, last(t, drain(t, c), actionSessionCreated, &created))
	require.NotEmpty(t, created.Credential)
	return created.Credential
}

func sit(t *testing.T, c *Client, tableID uuid.UUID, credential string, position int) {
	t.Helper()
	require.NoError(t, send(t, c, map[string]interface{}{
		"action":     actionSitDown,
		"tableId":    tableID.String(),
		"position":   position,
		"credential": credential,
	}))
}

func (f *hubFixture) snapshot(t *testing.T, tableID uuid.UUID) game.Snapshot {
	t.Helper()
	handle, err := f.registry.Get(tableID)
	require.NoError(t, err)
	return handle.Snapshot()
}
