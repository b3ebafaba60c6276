package game

import "fmt"

// Round is one cycle of betting. A Round is never reused: every phase and
// every bet or raise gets a fresh one.
//
// ActedCount is the ordinal of the current turn within the round. The
// round is complete once the player on turn ActedCountTarget has acted.
// The first round of a hand starts at 2 because the big blind's post counts
// as its action; later rounds, and rounds restarted by a bet or raise,
// start at 1.
type Round struct {
	ActingSeat       int
	StartingSeat     int
	CurrentBetLevel  int64
	ActedCount       int
	ActedCountTarget int
	LegalActions     ActionSet

	seats      []*Seat
	minimumBet int64
}

func newRound(seats []*Seat, startingSeat int, betLevel int64, actedCountSeed int, minimumBet int64) *Round {
	acting := startingSeat
	if !seats[acting].inHand() {
		if next, ok := nextInHand(seats, acting); ok {
			acting = next
		}
	}
	return &Round{
		ActingSeat:       acting,
		StartingSeat:     acting,
		CurrentBetLevel:  betLevel,
		ActedCount:       actedCountSeed,
		ActedCountTarget: countInHand(seats),
		LegalActions:     legalActions(betLevel),
		seats:            seats,
		minimumBet:       minimumBet,
	}
}

// RoundResult reports the effect of one action.
type RoundResult struct {
	// Round is the round in effect after the action: the receiver, or a
	// new round when a bet or raise restarted betting.
	Round *Round
	// Contributed is what the actor committed to the pot.
	Contributed int64
	// Complete signals that the phase should advance.
	Complete bool
}

// Apply performs an action for the acting seat. Nothing is mutated unless
// the action is legal and its amount is within bounds. The amount is
// ignored for fold, check and call; for raise it is the new bet level.
func (r *Round) Apply(kind ActionKind, amount int64) (RoundResult, error) {
	if amount < 0 {
		return RoundResult{}, ErrNegativeAmount
	}
	if !r.LegalActions.Has(kind) {
		return RoundResult{}, fmt.Errorf("%w: cannot %s when the bet level is %d", ErrState, kind, r.CurrentBetLevel)
	}

	player := r.seats[r.ActingSeat].Occupant
	bettable := player.Bettable()

	switch kind {
	case Bet:
		if amount < r.minimumBet {
			return RoundResult{}, fmt.Errorf("%w: bet of %d is below the minimum of %d", ErrState, amount, r.minimumBet)
		}
		if amount > bettable {
			return RoundResult{}, fmt.Errorf("%w: bet of %d exceeds the %d left in the stack", ErrState, amount, bettable)
		}
	case Raise:
		if amount <= r.CurrentBetLevel {
			return RoundResult{}, fmt.Errorf("%w: raise to %d must exceed the bet level of %d", ErrState, amount, r.CurrentBetLevel)
		}
		if amount-player.StreetContribution > bettable {
			return RoundResult{}, fmt.Errorf("%w: raise to %d exceeds the %d left in the stack", ErrState, amount, bettable)
		}
	}

	result := RoundResult{Round: r}
	switch kind {
	case Fold:
		player.Fold()
	case Check:
	case Call:
		result.Contributed = player.Bet(r.CurrentBetLevel - player.StreetContribution)
	case Bet:
		result.Contributed = player.Bet(amount)
		result.Round = newRound(r.seats, r.ActingSeat, amount, 1, r.minimumBet)
	case Raise:
		result.Contributed = player.Bet(amount - player.StreetContribution)
		result.Round = newRound(r.seats, r.ActingSeat, amount, 1, r.minimumBet)
	}

	result.Complete = result.Round.advance()
	return result, nil
}

// advance passes the turn to the next seat still in the hand, or reports
// that the round is complete.
func (r *Round) advance() bool {
	if r.ActedCount >= r.ActedCountTarget {
		return true
	}
	next, ok := nextInHand(r.seats, r.ActingSeat)
	if !ok || next == r.ActingSeat {
		return true
	}
	r.ActedCount++
	r.ActingSeat = next
	return false
}

// drop accounts for the player at position folding out of turn. It must be
// called while that player is still in the hand. A player who was still
// owed a turn shrinks the round; one who already acted also gives back
// their turn's place in the count.
func (r *Round) drop(position int) {
	pending := r.ActedCountTarget - r.ActedCount + 1
	seat := r.ActingSeat
	for n := 0; n < pending; n++ {
		if seat == position {
			r.ActedCountTarget--
			return
		}
		next, ok := nextInHand(r.seats, seat)
		if !ok {
			break
		}
		seat = next
	}
	r.ActedCountTarget--
	if r.ActedCount > 1 {
		r.ActedCount--
	}
}
