package game

import (
	"github.com/google/uuid"
)

// Player is a participant's per-hand state. Chips is the stack carried
// between hands and only changes when a hand is settled; contributions
// track what has been committed to the pot meanwhile.
type Player struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Chips              int64     `json:"chips"`
	HoleCards          []Card    `json:"holeCards,omitempty"`
	IsFolded           bool      `json:"isFolded"`
	HandContribution   int64     `json:"handContribution"`
	StreetContribution int64     `json:"streetContribution"`
}

func NewPlayer(id uuid.UUID, name string, chips int64) *Player {
	return &Player{ID: id, Name: name, Chips: chips}
}

// Bettable is what the player can still commit this hand.
func (p *Player) Bettable() int64 {
	if remaining := p.Chips - p.HandContribution; remaining > 0 {
		return remaining
	}
	return 0
}

// Bet commits up to amount, clamped to the bettable remainder, and returns
// what was actually committed.
func (p *Player) Bet(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if bettable := p.Bettable(); amount > bettable {
		amount = bettable
	}
	p.HandContribution += amount
	p.StreetContribution += amount
	return amount
}

func (p *Player) Fold() {
	p.IsFolded = true
}

// Reset clears cards, fold flag and contributions at hand start.
func (p *Player) Reset() {
	p.HoleCards = nil
	p.IsFolded = false
	p.HandContribution = 0
	p.StreetContribution = 0
}

// IsAllIn reports whether the player has committed the whole stack.
func (p *Player) IsAllIn() bool {
	return p.HandContribution > 0 && p.Bettable() == 0
}
