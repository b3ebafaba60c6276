package game

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing name", Options{Name: " ", MaxSeats: 6, MinimumBet: 10}},
		{"too few seats", Options{Name: "t", MaxSeats: 1, MinimumBet: 10}},
		{"too many seats", Options{Name: "t", MaxSeats: 11, MinimumBet: 10}},
		{"zero minimum bet", Options{Name: "t", MaxSeats: 6, MinimumBet: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.opts)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	table, err := NewTable(Options{Name: "main", MaxSeats: 6, MinimumBet: 10})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, table.ID)
	assert.Len(t, table.Seats, 6)
	assert.Equal(t, Waiting, table.Phase)
}

func TestTable_StartHeadsUp(t *testing.T) {
	table := newTestTable(t, 6, 10, 1)
	players := seatPlayers(t, table, 1000, 1000)

	_, err := table.Start()
	require.NoError(t, err)

	assert.Equal(t, PreFlop, table.Phase)
	assert.Equal(t, int64(15), table.Pot)

	sb := table.Seats[table.smallBlind]
	bb := table.Seats[table.bigBlind]
	assert.Equal(t, RoleSmallBlind, sb.Role)
	assert.Equal(t, RoleBigBlind, bb.Role)
	assert.Equal(t, int64(5), sb.Occupant.HandContribution)
	assert.Equal(t, int64(10), bb.Occupant.HandContribution)
	for _, p := range players {
		assert.Len(t, p.HoleCards, 2)
		assert.Equal(t, int64(1000), p.Chips, "stacks only move at settlement")
	}

	require.NotNil(t, table.Round)
	assert.Equal(t, int64(10), table.Round.CurrentBetLevel)
	assert.Equal(t, []ActionKind{Fold, Call, Raise}, table.Round.LegalActions.Kinds())
	assert.Equal(t, table.smallBlind, table.Round.ActingSeat, "small blind acts first heads-up")
	assert.Equal(t, 2, table.Round.ActedCount)
	assert.Equal(t, 2, table.Round.ActedCountTarget)
	assert.Equal(t, 52-4, table.deck.remaining())
}

func TestTable_StartRequirements(t *testing.T) {
	table := newTestTable(t, 6, 10, 1)
	seatPlayers(t, table, 1000)

	_, err := table.Start()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.Equal(t, Waiting, table.Phase)

	broke := NewPlayer(uuid.New(), "broke", 1000)
	require.NoError(t, table.JoinWaitingRoom(broke))
	require.NoError(t, table.SitDown(broke.ID, 3))
	broke.Chips = 0
	_, err = table.Start()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	late := NewPlayer(uuid.New(), "late", 500)
	require.NoError(t, table.JoinWaitingRoom(late))
	require.NoError(t, table.SitDown(late.ID, 4))
	_, err = table.Start()
	require.NoError(t, err)
	assert.True(t, broke.IsFolded, "a player without chips sits the hand out")
	assert.Empty(t, broke.HoleCards)

	_, err = table.Start()
	assert.ErrorIs(t, err, ErrHandInProgress)
}

func TestTable_ThreeHandedBlindsAndDealer(t *testing.T) {
	table := newTestTable(t, 6, 10, 3)
	seatPlayers(t, table, 1000, 1000, 1000)

	_, err := table.Start()
	require.NoError(t, err)

	dealer, ok := prevInHand(table.Seats, table.smallBlind)
	require.True(t, ok)
	assert.Equal(t, RoleDealer, table.Seats[dealer].Role)
	next, _ := nextInHand(table.Seats, table.bigBlind)
	assert.Equal(t, next, table.Round.ActingSeat)
	assert.Equal(t, dealer, table.Round.ActingSeat)
	assert.Equal(t, 3, table.Round.ActedCountTarget)
}

func TestTable_HandToShowdownByChecks(t *testing.T) {
	table := newTestTable(t, 6, 10, 5)
	seatPlayers(t, table, 1000, 1000)

	_, err := table.Start()
	require.NoError(t, err)

	phases := []Phase{table.Phase}
	out := act(t, table, Call, 0)
	assert.True(t, out.PhaseChanged)
	assert.Equal(t, Flop, table.Phase)
	assert.Len(t, table.Community, 3)
	assert.Equal(t, int64(20), table.Pot)
	phases = append(phases, table.Phase)

	for _, want := range []Phase{Turn, River} {
		require.Equal(t, table.smallBlind, table.Round.ActingSeat)
		require.Equal(t, int64(0), table.Round.CurrentBetLevel)
		act(t, table, Check, 0)
		act(t, table, Check, 0)
		assert.Equal(t, want, table.Phase)
		phases = append(phases, table.Phase)
	}
	assert.Len(t, table.Community, 5)

	act(t, table, Check, 0)
	out = act(t, table, Check, 0)
	assert.True(t, out.HandEnded)
	assert.Equal(t, Showdown, table.Phase)
	assert.Nil(t, table.Round)
	phases = append(phases, table.Phase)

	assert.Equal(t, []Phase{PreFlop, Flop, Turn, River, Showdown}, phases)
	assert.NotEmpty(t, table.Winners)
	assert.Equal(t, int64(2000), totalChips(table))
	assert.Zero(t, table.Pot)

	var paid int64
	for _, w := range table.Winners {
		paid += w.Amount
	}
	assert.Equal(t, int64(20), paid)

	_, err = table.Start()
	require.NoError(t, err)
	assert.Equal(t, PreFlop, table.Phase)
	assert.Equal(t, 2, table.HandNumber)
}

func TestTable_WinnerByDefault(t *testing.T) {
	table := newTestTable(t, 6, 10, 9)
	seatPlayers(t, table, 1000, 1000)

	_, err := table.Start()
	require.NoError(t, err)
	sb := table.Seats[table.smallBlind].Occupant
	bb := table.Seats[table.bigBlind].Occupant

	out := act(t, table, Fold, 0)
	assert.True(t, out.HandEnded)
	assert.Equal(t, Showdown, table.Phase)
	assert.Len(t, table.Community, 5)

	require.Len(t, table.Winners, 1)
	assert.Equal(t, bb.ID, table.Winners[0].PlayerID)
	assert.Equal(t, WinnerByDefault, table.Winners[0].Hand)
	assert.Equal(t, int64(15), table.Winners[0].Amount)
	assert.Equal(t, int64(995), sb.Chips)
	assert.Equal(t, int64(1005), bb.Chips)
}

func TestTable_TiedShowdownSplitsOddPot(t *testing.T) {
	table := newTestTable(t, 6, 10, 11)
	seatPlayers(t, table, 1000, 1000, 1000)

	_, err := table.Start()
	require.NoError(t, err)
	sbSeat, bbSeat := table.smallBlind, table.bigBlind
	utgSeat := table.Round.ActingSeat

	act(t, table, Call, 0) // first to act calls 10
	act(t, table, Fold, 0) // small blind folds its 5
	require.Equal(t, Flop, table.Phase)
	assert.Equal(t, int64(25), table.Pot)

	for table.Phase != River {
		act(t, table, Check, 0)
		act(t, table, Check, 0)
	}

	// Both remaining players play a royal flush on the board.
	table.Community = parseCards(t, "As", "Ks", "Qs", "Js", "Ts")
	table.Seats[utgSeat].Occupant.HoleCards = parseCards(t, "2h", "3d")
	table.Seats[bbSeat].Occupant.HoleCards = parseCards(t, "4c", "2d")

	act(t, table, Check, 0)
	out := act(t, table, Check, 0)
	require.True(t, out.HandEnded)

	require.Len(t, table.Winners, 2)
	low, high := utgSeat, bbSeat
	if high < low {
		low, high = high, low
	}
	assert.Equal(t, low, table.Winners[0].Position)
	assert.Equal(t, int64(13), table.Winners[0].Amount, "odd chip goes to the lower seat position")
	assert.Equal(t, high, table.Winners[1].Position)
	assert.Equal(t, int64(12), table.Winners[1].Amount)
	assert.Equal(t, "Royal Flush", table.Winners[0].Hand)

	assert.Equal(t, int64(995), table.Seats[sbSeat].Occupant.Chips)
	assert.Equal(t, int64(1003), table.Seats[low].Occupant.Chips)
	assert.Equal(t, int64(1002), table.Seats[high].Occupant.Chips)
	assert.Equal(t, int64(3000), totalChips(table))
}

func TestTable_TurnViolationLeavesStateUntouched(t *testing.T) {
	table := newTestTable(t, 6, 10, 2)
	seatPlayers(t, table, 1000, 1000)
	_, err := table.Start()
	require.NoError(t, err)

	waiting := table.Seats[table.bigBlind].Occupant
	before := table.Snapshot()

	_, err = table.Act(waiting.ID, Call, 0)
	assert.ErrorIs(t, err, ErrTurnViolation)
	assert.Equal(t, before, table.Snapshot())

	_, err = table.Act(uuid.New(), Call, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = table.Act(actingPlayer(t, table).ID, Check, 0)
	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, before, table.Snapshot())
}

func TestTable_ActWithoutRound(t *testing.T) {
	table := newTestTable(t, 6, 10, 2)
	players := seatPlayers(t, table, 1000, 1000)

	_, err := table.Act(players[0].ID, Check, 0)
	assert.ErrorIs(t, err, ErrNoActiveRound)
}

func TestTable_RandomPlayConservesChips(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	table := newTestTable(t, 6, 10, 99)
	seatPlayers(t, table, 500, 500, 500, 500)
	const total = 2000

	for hand := 0; hand < 40; hand++ {
		if !table.CanStart() {
			break
		}
		_, err := table.Start()
		require.NoError(t, err)
		lastPhase := table.Phase

		for steps := 0; table.Round != nil; steps++ {
			require.Less(t, steps, 200, "hand did not terminate")
			assert.Equal(t, totalContributions(table), table.Pot)

			acting := table.Seats[table.Round.ActingSeat]
			require.NotNil(t, acting.Occupant)
			require.False(t, acting.Occupant.IsFolded)

			kinds := table.Round.LegalActions.Kinds()
			kind := kinds[rng.Intn(len(kinds))]
			var amount int64
			switch kind {
			case Bet:
				amount = table.MinimumBet
			case Raise:
				amount = table.Round.CurrentBetLevel + table.MinimumBet
			}
			if _, err := table.Act(acting.Occupant.ID, kind, amount); err != nil {
				require.ErrorIs(t, err, ErrState)
				_, err = table.Act(acting.Occupant.ID, Fold, 0)
				require.NoError(t, err)
			}

			assert.GreaterOrEqual(t, table.Phase, lastPhase, "phases never move backwards")
			lastPhase = table.Phase
		}

		assert.Equal(t, Showdown, table.Phase)
		assert.Equal(t, int64(total), totalChips(table))
		for _, s := range table.Seats {
			if s.Occupant != nil {
				assert.GreaterOrEqual(t, s.Occupant.Chips, int64(0))
			}
		}
	}
}

func TestTable_SitDown(t *testing.T) {
	table := newTestTable(t, 4, 10, 1)
	players := seatPlayers(t, table, 1000, 1000)

	late := NewPlayer(uuid.New(), "late", 1000)
	assert.ErrorIs(t, table.SitDown(late.ID, 2), ErrNotFound)
	require.NoError(t, table.JoinWaitingRoom(late))
	assert.ErrorIs(t, table.JoinWaitingRoom(late), ErrAlreadyAtTable)
	assert.ErrorIs(t, table.SitDown(late.ID, 4), ErrInvalidPosition)
	assert.ErrorIs(t, table.SitDown(late.ID, -1), ErrInvalidPosition)
	assert.ErrorIs(t, table.SitDown(late.ID, 0), ErrSeatTaken)
	assert.ErrorIs(t, table.SitDown(players[0].ID, 3), ErrAlreadyAtTable)

	_, err := table.Start()
	require.NoError(t, err)

	require.NoError(t, table.SitDown(late.ID, 2))
	assert.True(t, late.IsFolded, "a mid-hand arrival sits out")
	assert.Equal(t, 2, table.Round.ActedCountTarget)
	assert.Equal(t, 3, table.Occupied())
}

func TestTable_LeaveDuringHand(t *testing.T) {
	table := newTestTable(t, 6, 10, 4)
	seatPlayers(t, table, 1000, 1000)
	_, err := table.Start()
	require.NoError(t, err)

	leaver := actingPlayer(t, table)
	out, err := table.Leave(leaver.ID)
	require.NoError(t, err)

	assert.True(t, out.HandEnded)
	require.Len(t, out.Departed, 1)
	assert.Equal(t, leaver.ID, out.Departed[0].ID)
	assert.Equal(t, int64(995), out.Departed[0].Chips)
	assert.False(t, table.IsSeated(leaver.ID))
	assert.Equal(t, Showdown, table.Phase)
	assert.Equal(t, 1, table.Occupied())
}

func TestTable_LeaveOutOfTurnWaitsForHandBoundary(t *testing.T) {
	table := newTestTable(t, 6, 10, 4)
	seatPlayers(t, table, 1000, 1000, 1000)
	_, err := table.Start()
	require.NoError(t, err)

	acting := table.Round.ActingSeat
	var leaver *Player
	for i, s := range table.Seats {
		if s.Occupant != nil && i != acting {
			leaver = s.Occupant
			break
		}
	}

	out, err := table.Leave(leaver.ID)
	require.NoError(t, err)
	assert.False(t, out.HandEnded)
	assert.True(t, leaver.IsFolded)
	assert.True(t, table.IsSeated(leaver.ID))
	i, _ := table.seatOf(leaver.ID)
	assert.Equal(t, RolePendingRemoval, table.Seats[i].Role)
	assert.Equal(t, acting, table.Round.ActingSeat)

	for table.Round != nil {
		act(t, table, Fold, 0)
	}
	assert.Equal(t, Showdown, table.Phase)
	assert.False(t, table.IsSeated(leaver.ID))
	assert.Equal(t, int64(3000)-leaver.Chips, totalChips(table))
}

func TestTable_LeaveWaitingRoomAndBetweenHands(t *testing.T) {
	table := newTestTable(t, 6, 10, 4)
	players := seatPlayers(t, table, 1000, 1000)
	waiting := NewPlayer(uuid.New(), "waiting", 100)
	require.NoError(t, table.JoinWaitingRoom(waiting))

	out, err := table.Leave(waiting.ID)
	require.NoError(t, err)
	assert.Empty(t, out.Departed)
	assert.False(t, table.Has(waiting.ID))

	out, err = table.Leave(players[0].ID)
	require.NoError(t, err)
	require.Len(t, out.Departed, 1)
	assert.Equal(t, RoleEmpty, table.Seats[0].Role)

	_, err = table.Leave(players[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_DisconnectAndReconnect(t *testing.T) {
	table := newTestTable(t, 6, 10, 8)
	seatPlayers(t, table, 1000, 1000, 1000)
	_, err := table.Start()
	require.NoError(t, err)

	sb := table.Seats[table.smallBlind].Occupant
	require.NoError(t, table.MarkDisconnected(sb.ID))
	assert.Equal(t, RolePendingRemoval, table.Seats[table.smallBlind].Role)
	assert.False(t, sb.IsFolded, "a disconnect does not fold the hand")
	assert.True(t, table.IsSeated(sb.ID))

	require.NoError(t, table.MarkReconnected(sb.ID))
	assert.Equal(t, RoleSmallBlind, table.Seats[table.smallBlind].Role)

	require.NoError(t, table.MarkDisconnected(sb.ID))
	for table.Round != nil {
		act(t, table, Fold, 0)
	}
	assert.False(t, table.IsSeated(sb.ID), "vacated at the hand boundary")

	assert.ErrorIs(t, table.MarkDisconnected(uuid.New()), ErrNotFound)
}

func TestTable_DisconnectedBetweenHandsIsDroppedAtStart(t *testing.T) {
	table := newTestTable(t, 6, 10, 8)
	players := seatPlayers(t, table, 1000, 1000, 1000)

	require.NoError(t, table.MarkDisconnected(players[2].ID))
	out, err := table.Start()
	require.NoError(t, err)
	require.Len(t, out.Departed, 1)
	assert.Equal(t, players[2].ID, out.Departed[0].ID)
	assert.Equal(t, 2, table.Round.ActedCountTarget)
}

func TestTable_Abandoned(t *testing.T) {
	table := newTestTable(t, 6, 10, 8)
	assert.True(t, table.Abandoned(), "an empty table")

	players := seatPlayers(t, table, 1000, 1000)
	assert.False(t, table.Abandoned())

	require.NoError(t, table.MarkDisconnected(players[0].ID))
	assert.False(t, table.Abandoned())
	require.NoError(t, table.MarkDisconnected(players[1].ID))
	assert.True(t, table.Abandoned())

	require.NoError(t, table.JoinWaitingRoom(NewPlayer(uuid.New(), "late", 500)))
	assert.False(t, table.Abandoned(), "someone is waiting")
}
