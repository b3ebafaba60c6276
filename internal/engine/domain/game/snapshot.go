package game

import (
	"sort"

	"github.com/google/uuid"
)

// Snapshot is a detached copy of a table's state. Snapshot() holds every
// hole card; ViewFor produces what a given viewer may see.
type Snapshot struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	HostID         uuid.UUID    `json:"hostId"`
	Capacity       int          `json:"capacity"`
	Occupied       int          `json:"occupied"`
	MinimumBet     int64        `json:"minimumBet"`
	Phase          Phase        `json:"phase"`
	HandNumber     int          `json:"handNumber"`
	Pot            int64        `json:"pot"`
	CommunityCards []Card       `json:"communityCards"`
	Seats          []SeatView   `json:"seats"`
	WaitingRoom    []PlayerView `json:"waitingRoom"`
	Round          *RoundView   `json:"round,omitempty"`
	Winners        []Winner     `json:"winners"`
}

type SeatView struct {
	Position int         `json:"position"`
	Role     SeatRole    `json:"role"`
	Player   *PlayerView `json:"player,omitempty"`
}

type PlayerView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Chips        int64     `json:"chips"`
	HoleCards    []Card    `json:"holeCards,omitempty"`
	IsFolded     bool      `json:"isFolded"`
	IsAllIn      bool      `json:"isAllIn"`
	Contribution int64     `json:"contribution"`
}

type RoundView struct {
	ActingSeat       int       `json:"actingSeat"`
	CurrentBetLevel  int64     `json:"currentBetLevel"`
	LegalActions     ActionSet `json:"legalActions"`
	ActedCount       int       `json:"actedCount"`
	ActedCountTarget int       `json:"actedCountTarget"`
}

func playerView(p *Player) PlayerView {
	return PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Chips:        p.Chips,
		HoleCards:    append([]Card(nil), p.HoleCards...),
		IsFolded:     p.IsFolded,
		IsAllIn:      p.IsAllIn(),
		Contribution: p.HandContribution,
	}
}

// Snapshot copies the table state.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		ID:             t.ID,
		Name:           t.Name,
		HostID:         t.HostID,
		Capacity:       t.MaxSeats,
		Occupied:       t.Occupied(),
		MinimumBet:     t.MinimumBet,
		Phase:          t.Phase,
		HandNumber:     t.HandNumber,
		Pot:            t.Pot,
		CommunityCards: append([]Card{}, t.Community...),
		Seats:          make([]SeatView, len(t.Seats)),
		WaitingRoom:    make([]PlayerView, 0, len(t.WaitingRoom)),
		Winners:        append([]Winner{}, t.Winners...),
	}
	for i, seat := range t.Seats {
		s.Seats[i] = SeatView{Position: seat.Position, Role: seat.Role}
		if seat.Occupant != nil {
			pv := playerView(seat.Occupant)
			s.Seats[i].Player = &pv
		}
	}
	for _, p := range t.WaitingRoom {
		s.WaitingRoom = append(s.WaitingRoom, playerView(p))
	}
	sort.Slice(s.WaitingRoom, func(i, j int) bool {
		return s.WaitingRoom[i].Name < s.WaitingRoom[j].Name
	})
	if t.Round != nil {
		s.Round = &RoundView{
			ActingSeat:       t.Round.ActingSeat,
			CurrentBetLevel:  t.Round.CurrentBetLevel,
			LegalActions:     t.Round.LegalActions,
			ActedCount:       t.Round.ActedCount,
			ActedCountTarget: t.Round.ActedCountTarget,
		}
	}
	return s
}

// ViewFor returns the snapshot as seen by viewer. Hole cards are shown to
// their owner, to everyone once their owner has folded, and to everyone at
// a contested showdown. uuid.Nil views as a spectator.
func (s Snapshot) ViewFor(viewer uuid.UUID) Snapshot {
	contested := false
	if s.Phase == Showdown {
		live := 0
		for _, seat := range s.Seats {
			if seat.Player != nil && !seat.Player.IsFolded {
				live++
			}
		}
		contested = live > 1
	}

	view := s
	view.Seats = make([]SeatView, len(s.Seats))
	for i, seat := range s.Seats {
		view.Seats[i] = seat
		if seat.Player == nil {
			continue
		}
		pv := *seat.Player
		if pv.ID != viewer && !pv.IsFolded && !contested {
			pv.HoleCards = nil
		}
		view.Seats[i].Player = &pv
	}
	return view
}

// Acting returns the player whose turn it is, if a round is active.
func (s Snapshot) Acting() (PlayerView, bool) {
	if s.Round == nil || s.Round.ActingSeat < 0 || s.Round.ActingSeat >= len(s.Seats) {
		return PlayerView{}, false
	}
	p := s.Seats[s.Round.ActingSeat].Player
	if p == nil {
		return PlayerView{}, false
	}
	return *p, true
}
