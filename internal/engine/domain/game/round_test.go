package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ringOf builds seats with a player at each listed position.
func ringOf(size int, chips int64, positions ...int) []*Seat {
	seats := make([]*Seat, size)
	for i := range seats {
		seats[i] = &Seat{Position: i}
	}
	for _, pos := range positions {
		seats[pos].take(NewPlayer(uuid.New(), "p", chips))
	}
	return seats
}

func TestRound_LegalActions(t *testing.T) {
	seats := ringOf(3, 100, 0, 1, 2)

	open := newRound(seats, 0, 0, 1, 10)
	assert.Equal(t, []ActionKind{Fold, Check, Bet}, open.LegalActions.Kinds())

	facing := newRound(seats, 0, 10, 1, 10)
	assert.Equal(t, []ActionKind{Fold, Call, Raise}, facing.LegalActions.Kinds())
}

func TestRound_EveryoneChecks(t *testing.T) {
	seats := ringOf(6, 100, 1, 3, 4)
	r := newRound(seats, 1, 0, 1, 10)
	require.Equal(t, 3, r.ActedCountTarget)

	var order []int
	for i := 0; i < 3; i++ {
		order = append(order, r.ActingSeat)
		res, err := r.Apply(Check, 0)
		require.NoError(t, err)
		assert.Same(t, r, res.Round)
		assert.Equal(t, i == 2, res.Complete, "turn %d", i)
	}
	assert.Equal(t, []int{1, 3, 4}, order)
}

func TestRound_StartSkipsEmptyAndFoldedSeats(t *testing.T) {
	seats := ringOf(5, 100, 2, 3, 4)
	seats[3].Occupant.Fold()

	r := newRound(seats, 0, 0, 1, 10)
	assert.Equal(t, 2, r.ActingSeat)
	assert.Equal(t, 2, r.ActedCountTarget)

	_, err := r.Apply(Check, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, r.ActingSeat)
}

func TestRound_BetRestartsBetting(t *testing.T) {
	seats := ringOf(3, 100, 0, 1, 2)
	r := newRound(seats, 0, 0, 1, 10)

	_, err := r.Apply(Check, 0)
	require.NoError(t, err)
	require.Equal(t, 1, r.ActingSeat)

	res, err := r.Apply(Bet, 20)
	require.NoError(t, err)
	require.NotSame(t, r, res.Round)
	assert.Equal(t, int64(20), res.Contributed)
	assert.False(t, res.Complete)

	next := res.Round
	assert.Equal(t, int64(20), next.CurrentBetLevel)
	assert.Equal(t, 1, next.StartingSeat)
	assert.Equal(t, 2, next.ActingSeat)
	assert.Equal(t, 2, next.ActedCount)
	assert.Equal(t, 3, next.ActedCountTarget)
	assert.Equal(t, []ActionKind{Fold, Call, Raise}, next.LegalActions.Kinds())

	res, err = next.Apply(Call, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Contributed)
	assert.False(t, res.Complete)
	assert.Equal(t, 0, next.ActingSeat)

	res, err = next.Apply(Call, 0)
	require.NoError(t, err)
	assert.True(t, res.Complete)

	for _, s := range seats {
		assert.Equal(t, int64(20), s.Occupant.HandContribution)
	}
}

func TestRound_RaiseIsRaiseTo(t *testing.T) {
	seats := ringOf(2, 100, 0, 1)
	seats[0].Occupant.Bet(5)
	seats[1].Occupant.Bet(10)
	r := newRound(seats, 0, 10, 2, 10)

	res, err := r.Apply(Raise, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Contributed)
	assert.Equal(t, int64(30), seats[0].Occupant.StreetContribution)

	res, err = res.Round.Apply(Call, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Contributed)
	assert.True(t, res.Complete)
}

func TestRound_BigBlindRaisesToAllIn(t *testing.T) {
	seats := ringOf(3, 100, 0, 1, 2)
	seats[0].Occupant.Bet(5)
	seats[1].Occupant.Bet(10)
	bb := seats[1].Occupant
	r := newRound(seats, 1, 10, 1, 10)
	require.Equal(t, int64(90), bb.Bettable())

	// The raise-to target counts the blind already posted this street.
	_, err := r.Apply(Raise, 101)
	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, int64(10), bb.StreetContribution)
	assert.Equal(t, 1, r.ActingSeat)

	res, err := r.Apply(Raise, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(90), res.Contributed)
	assert.Equal(t, int64(100), bb.HandContribution)
	assert.Equal(t, int64(100), res.Round.CurrentBetLevel)
	assert.True(t, bb.IsAllIn())
}

func TestRound_CallClampsToStack(t *testing.T) {
	seats := ringOf(2, 100, 0, 1)
	seats[1].Occupant.Chips = 15
	r := newRound(seats, 0, 0, 1, 10)

	res, err := r.Apply(Bet, 50)
	require.NoError(t, err)

	res, err = res.Round.Apply(Call, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Contributed)
	assert.True(t, seats[1].Occupant.IsAllIn())
}

func TestRound_RejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name    string
		level   int64
		kind    ActionKind
		amount  int64
		wantErr error
	}{
		{"check facing a bet", 10, Check, 0, ErrState},
		{"bet facing a bet", 10, Bet, 20, ErrState},
		{"call with nothing to call", 0, Call, 0, ErrState},
		{"raise with nothing to call", 0, Raise, 20, ErrState},
		{"bet below minimum", 0, Bet, 5, ErrState},
		{"bet beyond stack", 0, Bet, 101, ErrState},
		{"raise not above level", 10, Raise, 10, ErrState},
		{"raise beyond stack", 10, Raise, 101, ErrState},
		{"negative amount", 0, Bet, -1, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats := ringOf(3, 100, 0, 1, 2)
			r := newRound(seats, 0, tt.level, 1, 10)
			before := *r

			_, err := r.Apply(tt.kind, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, *r)
			for _, s := range seats {
				assert.Zero(t, s.Occupant.HandContribution)
				assert.False(t, s.Occupant.IsFolded)
			}
		})
	}
}

func TestRound_FoldsAreSkipped(t *testing.T) {
	seats := ringOf(4, 100, 0, 1, 2, 3)
	r := newRound(seats, 0, 0, 1, 10)

	res, err := r.Apply(Bet, 10)
	require.NoError(t, err)
	r = res.Round

	_, err = r.Apply(Fold, 0)
	require.NoError(t, err)
	assert.True(t, seats[1].Occupant.IsFolded)
	assert.Equal(t, 2, r.ActingSeat)

	_, err = r.Apply(Call, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, r.ActingSeat)

	res, err = r.Apply(Call, 0)
	require.NoError(t, err)
	assert.True(t, res.Complete)
}

func TestRound_DropOutOfTurn(t *testing.T) {
	tests := []struct {
		name      string
		seed      int
		checks    int
		drop      int
		wantTurns []int
	}{
		// Seats 0, 1, 2; seat 0 opens.
		{"dropped before acting", 1, 1, 2, []int{1}},
		{"dropped after acting", 1, 1, 0, []int{1, 2}},
		// The seeded first round treats the seat before the opener as done.
		{"seeded round, implicit actor drops", 2, 0, 2, []int{0, 1}},
		{"seeded round, pending actor drops", 2, 0, 1, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats := ringOf(3, 100, 0, 1, 2)
			r := newRound(seats, 0, 0, tt.seed, 10)
			for i := 0; i < tt.checks; i++ {
				_, err := r.Apply(Check, 0)
				require.NoError(t, err)
			}

			r.drop(tt.drop)
			seats[tt.drop].Occupant.Fold()

			var turns []int
			for {
				turns = append(turns, r.ActingSeat)
				res, err := r.Apply(Check, 0)
				require.NoError(t, err)
				if res.Complete {
					break
				}
				require.Less(t, len(turns), 5)
			}
			assert.Equal(t, tt.wantTurns, turns)
		})
	}
}
