package game

import "fmt"

// SeatRole marks what a seat is doing in the current hand.
type SeatRole int

const (
	RoleEmpty SeatRole = iota
	RoleOccupied
	RoleDealer
	RoleSmallBlind
	RoleBigBlind
	RolePendingRemoval
)

var roleNames = [...]string{
	RoleEmpty:          "empty",
	RoleOccupied:       "occupied",
	RoleDealer:         "dealer",
	RoleSmallBlind:     "small_blind",
	RoleBigBlind:       "big_blind",
	RolePendingRemoval: "pending_removal",
}

func (r SeatRole) String() string {
	if r < RoleEmpty || r > RolePendingRemoval {
		return "unknown"
	}
	return roleNames[r]
}

func (r SeatRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *SeatRole) UnmarshalText(text []byte) error {
	for i, name := range roleNames {
		if name == string(text) {
			*r = SeatRole(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown seat role %q", ErrValidation, text)
}

// Seat is a fixed position at the table. Seats are created with the table
// and never reordered; only the occupant and role change, and only at the
// table's direction.
type Seat struct {
	Position int
	Role     SeatRole
	Occupant *Player
}

func (s *Seat) IsEmpty() bool {
	return s.Occupant == nil
}

// inHand reports whether the seat holds a player who has not folded.
func (s *Seat) inHand() bool {
	return s.Occupant != nil && !s.Occupant.IsFolded
}

func (s *Seat) take(p *Player) {
	s.Occupant = p
	s.Role = RoleOccupied
}

func (s *Seat) vacate() *Player {
	p := s.Occupant
	s.Occupant = nil
	s.Role = RoleEmpty
	return p
}

// nextInHand scans clockwise from the seat after from, wrapping around the
// ring, for a seat whose occupant is still in the hand.
func nextInHand(seats []*Seat, from int) (int, bool) {
	n := len(seats)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if seats[i].inHand() {
			return i, true
		}
	}
	return -1, false
}

// prevInHand is nextInHand counter-clockwise.
func prevInHand(seats []*Seat, from int) (int, bool) {
	n := len(seats)
	for step := 1; step <= n; step++ {
		i := ((from-step)%n + n) % n
		if seats[i].inHand() {
			return i, true
		}
	}
	return -1, false
}

func countInHand(seats []*Seat) int {
	count := 0
	for _, s := range seats {
		if s.inHand() {
			count++
		}
	}
	return count
}
