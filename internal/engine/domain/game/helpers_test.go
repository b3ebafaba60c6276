package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// parseCard reads cards written like "As", "Td", "2c".
func parseCard(t testing.TB, s string) Card {
	t.Helper()
	require.Len(t, s, 2, "card %q", s)

	var value int
	switch r := s[0]; {
	case r >= '2' && r <= '9':
		value = int(r - '0')
	case r == 'T':
		value = 10
	case r == 'J':
		value = 11
	case r == 'Q':
		value = 12
	case r == 'K':
		value = 13
	case r == 'A':
		value = 14
	default:
		t.Fatalf("bad rank in %q", s)
	}

	var suit Suit
	switch s[1] {
	case 's':
		suit = Spades
	case 'h':
		suit = Hearts
	case 'd':
		suit = Diamonds
	case 'c':
		suit = Clubs
	default:
		t.Fatalf("bad suit in %q", s)
	}
	return NewCard(value, suit)
}

func parseCards(t testing.TB, codes ...string) []Card {
	t.Helper()
	cards := make([]Card, len(codes))
	for i, s := range codes {
		cards[i] = parseCard(t, s)
	}
	return cards
}

func newTestTable(t testing.TB, maxSeats int, minimumBet int64, seed int64) *Table {
	t.Helper()
	table, err := NewTable(Options{
		Name:       "test table",
		HostID:     uuid.New(),
		MaxSeats:   maxSeats,
		MinimumBet: minimumBet,
		Rand:       rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return table
}

// seatPlayers seats one player per stack at positions 0, 1, 2...
func seatPlayers(t testing.TB, table *Table, stacks ...int64) []*Player {
	t.Helper()
	players := make([]*Player, len(stacks))
	for i, chips := range stacks {
		p := NewPlayer(uuid.New(), fmt.Sprintf("player%d", i), chips)
		require.NoError(t, table.JoinWaitingRoom(p))
		require.NoError(t, table.SitDown(p.ID, i))
		players[i] = p
	}
	return players
}

func actingPlayer(t testing.TB, table *Table) *Player {
	t.Helper()
	require.NotNil(t, table.Round, "no active round")
	p := table.Seats[table.Round.ActingSeat].Occupant
	require.NotNil(t, p)
	return p
}

// act plays an action for whoever is on turn.
func act(t testing.TB, table *Table, kind ActionKind, amount int64) Outcome {
	t.Helper()
	out, err := table.Act(actingPlayer(t, table).ID, kind, amount)
	require.NoError(t, err)
	return out
}

func totalChips(table *Table) int64 {
	var total int64
	for _, s := range table.Seats {
		if s.Occupant != nil {
			total += s.Occupant.Chips
		}
	}
	return total
}

func totalContributions(table *Table) int64 {
	var total int64
	for _, s := range table.Seats {
		if s.Occupant != nil {
			total += s.Occupant.HandContribution
		}
	}
	return total
}
