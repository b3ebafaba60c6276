package server

import (
	"sync"

	"github.com/google/uuid"
)

// room is the set of connections following one table.
type room struct {
	id      uuid.UUID
	mu      sync.Mutex
	clients map[*Client]bool
}

func newRoom(id uuid.UUID) *room {
	return &room{
		id:      id,
		clients: make(map[*Client]bool),
	}
}

func (r *room) join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = true
}

// leave removes the client and returns the number of clients left.
func (r *room) leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
	return len(r.clients)
}

func (r *room) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *room) has(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[c]
}

// each calls fn for every client while holding the room lock, so a client
// cannot be unregistered mid-send.
func (r *room) each(fn func(c *Client)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		fn(c)
	}
}
