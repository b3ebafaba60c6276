package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinSeats = 2
	MaxSeats = 10

	holeCardCount      = 2
	communityCardCount = 5

	// WinnerByDefault describes a pot won because everyone else folded.
	WinnerByDefault = "winner by default"
)

// Options configures a new Table.
type Options struct {
	ID         uuid.UUID
	Name       string
	HostID     uuid.UUID
	MaxSeats   int
	MinimumBet int64
	Rand       *rand.Rand
}

// Winner is a player paid at settlement.
type Winner struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Amount   int64     `json:"amount"`
	Hand     string    `json:"hand"`
	Score    int64     `json:"score,omitempty"`
}

// Outcome reports what a table operation did beyond the state change
// visible in a snapshot.
type Outcome struct {
	PhaseChanged bool
	HandEnded    bool
	// Departed are players whose seats were vacated, with their final
	// stacks.
	Departed []Player
}

// Table is one poker table: its seats, its waiting room and the hand in
// progress. A Table is not safe for concurrent use; callers serialize
// access (see engine.TableHandle).
type Table struct {
	ID          uuid.UUID
	Name        string
	HostID      uuid.UUID
	MaxSeats    int
	MinimumBet  int64
	Seats       []*Seat
	Community   []Card
	Pot         int64
	Phase       Phase
	Round       *Round
	Winners     []Winner
	WaitingRoom map[uuid.UUID]*Player
	HandNumber  int

	deck       *Deck
	rng        *rand.Rand
	smallBlind int
	bigBlind   int
	dealer     int
}

func NewTable(opts Options) (*Table, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrValidation)
	}
	if opts.MaxSeats < MinSeats || opts.MaxSeats > MaxSeats {
		return nil, fmt.Errorf("%w: a table seats between %d and %d players, got %d", ErrValidation, MinSeats, MaxSeats, opts.MaxSeats)
	}
	if opts.MinimumBet < 1 {
		return nil, fmt.Errorf("%w: minimum bet must be positive", ErrValidation)
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	seats := make([]*Seat, opts.MaxSeats)
	for i := range seats {
		seats[i] = &Seat{Position: i, Role: RoleEmpty}
	}

	return &Table{
		ID:          opts.ID,
		Name:        name,
		HostID:      opts.HostID,
		MaxSeats:    opts.MaxSeats,
		MinimumBet:  opts.MinimumBet,
		Seats:       seats,
		Phase:       Waiting,
		WaitingRoom: make(map[uuid.UUID]*Player),
		deck:        NewDeck(opts.Rand),
		rng:         opts.Rand,
		smallBlind:  -1,
		bigBlind:    -1,
		dealer:      -1,
	}, nil
}

func (t *Table) seatOf(userID uuid.UUID) (int, bool) {
	for i, s := range t.Seats {
		if s.Occupant != nil && s.Occupant.ID == userID {
			return i, true
		}
	}
	return -1, false
}

// IsSeated reports whether the user holds a seat.
func (t *Table) IsSeated(userID uuid.UUID) bool {
	_, ok := t.seatOf(userID)
	return ok
}

// Has reports whether the user is seated or in the waiting room.
func (t *Table) Has(userID uuid.UUID) bool {
	if _, ok := t.WaitingRoom[userID]; ok {
		return true
	}
	return t.IsSeated(userID)
}

// Occupied counts seats holding a player.
func (t *Table) Occupied() int {
	count := 0
	for _, s := range t.Seats {
		if !s.IsEmpty() {
			count++
		}
	}
	return count
}

func (t *Table) IsFull() bool {
	return t.Occupied() == t.MaxSeats
}

// IsEmpty reports whether nobody is seated or waiting.
func (t *Table) IsEmpty() bool {
	return t.Occupied() == 0 && len(t.WaitingRoom) == 0
}

// Abandoned reports whether no hand is running, nobody is waiting and every
// seated player is pending removal.
func (t *Table) Abandoned() bool {
	if t.Phase.InHand() || len(t.WaitingRoom) > 0 {
		return false
	}
	for _, s := range t.Seats {
		if s.Occupant != nil && s.Role != RolePendingRemoval {
			return false
		}
	}
	return true
}

// CanStart reports whether Start would succeed.
func (t *Table) CanStart() bool {
	return t.checkStart() == nil
}

// JoinWaitingRoom admits a player to the table without a seat.
func (t *Table) JoinWaitingRoom(p *Player) error {
	if p == nil || p.ID == uuid.Nil {
		return fmt.Errorf("%w: player id is required", ErrValidation)
	}
	if t.Has(p.ID) {
		return ErrAlreadyAtTable
	}
	t.WaitingRoom[p.ID] = p
	return nil
}

// SitDown moves a player from the waiting room into an empty seat. A
// player seated during a hand sits it out.
func (t *Table) SitDown(userID uuid.UUID, position int) error {
	if position < 0 || position >= t.MaxSeats {
		return ErrInvalidPosition
	}
	p, ok := t.WaitingRoom[userID]
	if !ok {
		if t.IsSeated(userID) {
			return ErrAlreadyAtTable
		}
		return ErrPlayerNotAtTable
	}
	seat := t.Seats[position]
	if !seat.IsEmpty() {
		return ErrSeatTaken
	}
	if p.Chips <= 0 {
		return ErrNoChips
	}

	delete(t.WaitingRoom, userID)
	p.Reset()
	if t.Phase.InHand() {
		p.IsFolded = true
	}
	seat.take(p)
	return nil
}

// Leave removes the user from the table. A seat in a live hand is folded
// and held as pending removal until the hand is settled, so committed
// chips stay accounted for.
func (t *Table) Leave(userID uuid.UUID) (Outcome, error) {
	if _, ok := t.WaitingRoom[userID]; ok {
		delete(t.WaitingRoom, userID)
		return Outcome{}, nil
	}
	i, ok := t.seatOf(userID)
	if !ok {
		return Outcome{}, ErrPlayerNotAtTable
	}

	seat := t.Seats[i]
	if !t.Phase.InHand() || (seat.Occupant.IsFolded && seat.Occupant.HandContribution == 0) {
		return Outcome{Departed: []Player{*seat.vacate()}}, nil
	}

	seat.Role = RolePendingRemoval
	if seat.Occupant.IsFolded {
		return Outcome{}, nil
	}
	if t.Round != nil && t.Round.ActingSeat == i {
		return t.apply(Fold, 0)
	}
	if t.Round != nil {
		t.Round.drop(i)
	}
	seat.Occupant.Fold()
	if countInHand(t.Seats) <= 1 {
		return t.runOut()
	}
	return Outcome{}, nil
}

// MarkDisconnected flags the user's seat for removal at the next hand
// boundary. The player keeps their place in the current hand.
func (t *Table) MarkDisconnected(userID uuid.UUID) error {
	i, ok := t.seatOf(userID)
	if !ok {
		if _, waiting := t.WaitingRoom[userID]; waiting {
			return nil
		}
		return ErrPlayerNotAtTable
	}
	t.Seats[i].Role = RolePendingRemoval
	return nil
}

// MarkReconnected clears a pending removal.
func (t *Table) MarkReconnected(userID uuid.UUID) error {
	i, ok := t.seatOf(userID)
	if !ok {
		if _, waiting := t.WaitingRoom[userID]; waiting {
			return nil
		}
		return ErrPlayerNotAtTable
	}
	if t.Seats[i].Role == RolePendingRemoval {
		t.Seats[i].Role = t.roleFor(i)
	}
	return nil
}

func (t *Table) roleFor(i int) SeatRole {
	switch {
	case t.Seats[i].IsEmpty():
		return RoleEmpty
	case !t.Phase.InHand() && t.Phase != Showdown:
		return RoleOccupied
	case i == t.smallBlind:
		return RoleSmallBlind
	case i == t.bigBlind:
		return RoleBigBlind
	case i == t.dealer:
		return RoleDealer
	default:
		return RoleOccupied
	}
}

// participants are the seats that will be dealt into the next hand.
func (t *Table) participants() []int {
	var positions []int
	for i, s := range t.Seats {
		if s.Occupant != nil && s.Role != RolePendingRemoval && s.Occupant.Chips > 0 {
			positions = append(positions, i)
		}
	}
	return positions
}

func (t *Table) checkStart() error {
	if t.Phase.InHand() {
		return ErrHandInProgress
	}
	players := len(t.participants())
	if players < 2 {
		return ErrNotEnoughPlayers
	}
	if players*holeCardCount+communityCardCount > deckSize {
		return fmt.Errorf("%w: %d players cannot be dealt from one deck", ErrDeckExhausted, players)
	}
	return nil
}

// Start begins a new hand from Waiting or Showdown.
func (t *Table) Start() (Outcome, error) {
	if err := t.checkStart(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{PhaseChanged: true, Departed: t.vacatePending()}

	t.Pot = 0
	t.Community = nil
	t.Winners = nil
	t.Round = nil
	t.HandNumber++
	for _, s := range t.Seats {
		if s.Occupant == nil {
			continue
		}
		s.Occupant.Reset()
		s.Role = RoleOccupied
		if s.Occupant.Chips <= 0 {
			s.Occupant.IsFolded = true
		}
	}
	t.deck.Shuffle()

	players := t.participants()
	t.smallBlind = players[t.rng.Intn(len(players))]
	t.bigBlind, _ = nextInHand(t.Seats, t.smallBlind)
	t.dealer = -1
	if prev, ok := prevInHand(t.Seats, t.smallBlind); ok && prev != t.bigBlind {
		t.dealer = prev
		t.Seats[prev].Role = RoleDealer
	}
	t.Seats[t.smallBlind].Role = RoleSmallBlind
	t.Seats[t.bigBlind].Role = RoleBigBlind

	t.Pot += t.Seats[t.smallBlind].Occupant.Bet(t.MinimumBet / 2)
	t.Pot += t.Seats[t.bigBlind].Occupant.Bet(t.MinimumBet)

	for n := 0; n < holeCardCount; n++ {
		for _, i := range players {
			card, err := t.deck.Draw()
			if err != nil {
				return out, err
			}
			p := t.Seats[i].Occupant
			p.HoleCards = append(p.HoleCards, card)
		}
	}

	first, _ := nextInHand(t.Seats, t.bigBlind)
	t.Round = newRound(t.Seats, first, t.MinimumBet, 2, t.MinimumBet)
	t.Phase = PreFlop
	return out, nil
}

// Act applies a betting action on behalf of the user.
func (t *Table) Act(userID uuid.UUID, kind ActionKind, amount int64) (Outcome, error) {
	i, ok := t.seatOf(userID)
	if !ok {
		return Outcome{}, ErrPlayerNotSeated
	}
	if t.Round == nil {
		return Outcome{}, ErrNoActiveRound
	}
	if t.Round.ActingSeat != i {
		return Outcome{}, ErrNotPlayerTurn
	}
	return t.apply(kind, amount)
}

func (t *Table) apply(kind ActionKind, amount int64) (Outcome, error) {
	res, err := t.Round.Apply(kind, amount)
	if err != nil {
		return Outcome{}, err
	}
	t.Pot += res.Contributed
	t.Round = res.Round

	if countInHand(t.Seats) <= 1 {
		return t.runOut()
	}
	if res.Complete {
		return t.advancePhase()
	}
	return Outcome{}, nil
}

// advancePhase deals the next street and opens its betting round, or
// settles the hand after the river.
func (t *Table) advancePhase() (Outcome, error) {
	if t.Phase == River {
		return t.settle()
	}
	if err := t.dealStreet(); err != nil {
		return Outcome{}, err
	}
	for _, s := range t.Seats {
		if s.Occupant != nil {
			s.Occupant.StreetContribution = 0
		}
	}
	t.Round = newRound(t.Seats, t.smallBlind, 0, 1, t.MinimumBet)
	return Outcome{PhaseChanged: true}, nil
}

// dealStreet deals the community cards for the phase after the current
// one and moves to it.
func (t *Table) dealStreet() error {
	var count int
	switch t.Phase {
	case PreFlop:
		count = 3
	case Flop, Turn:
		count = 1
	default:
		return fmt.Errorf("%w: no cards are dealt after %s", ErrState, t.Phase)
	}
	for n := 0; n < count; n++ {
		card, err := t.deck.Draw()
		if err != nil {
			return err
		}
		t.Community = append(t.Community, card)
	}
	t.Phase++
	return nil
}

// runOut finishes a hand that has no betting left, walking the remaining
// streets in order before settling.
func (t *Table) runOut() (Outcome, error) {
	t.Round = nil
	for t.Phase < River {
		if err := t.dealStreet(); err != nil {
			return Outcome{}, err
		}
	}
	return t.settle()
}

// settle pays the pot and ends the hand. Tied winners split it by integer
// division; leftover chips go one each to the tied winners in ascending
// seat position.
func (t *Table) settle() (Outcome, error) {
	var winners []Winner
	var contenders []int
	for i, s := range t.Seats {
		if s.inHand() {
			contenders = append(contenders, i)
		}
	}

	if len(contenders) == 1 {
		p := t.Seats[contenders[0]].Occupant
		winners = []Winner{{PlayerID: p.ID, Name: p.Name, Position: contenders[0], Hand: WinnerByDefault}}
	} else {
		var best int64
		for _, i := range contenders {
			p := t.Seats[i].Occupant
			cards := make([]Card, 0, holeCardCount+communityCardCount)
			cards = append(cards, p.HoleCards...)
			cards = append(cards, t.Community...)
			hand, err := Evaluate(cards)
			if err != nil {
				return Outcome{}, err
			}
			switch {
			case hand.Score > best:
				best = hand.Score
				winners = winners[:0]
				fallthrough
			case hand.Score == best:
				winners = append(winners, Winner{PlayerID: p.ID, Name: p.Name, Position: i, Hand: hand.Label, Score: hand.Score})
			}
		}
	}

	for _, s := range t.Seats {
		if s.Occupant != nil {
			s.Occupant.Chips -= s.Occupant.HandContribution
			s.Occupant.HandContribution = 0
			s.Occupant.StreetContribution = 0
		}
	}
	if len(winners) > 0 {
		share := t.Pot / int64(len(winners))
		remainder := t.Pot % int64(len(winners))
		for i := range winners {
			winners[i].Amount = share
			if int64(i) < remainder {
				winners[i].Amount++
			}
			t.Seats[winners[i].Position].Occupant.Chips += winners[i].Amount
		}
	}

	t.Pot = 0
	t.Round = nil
	t.Winners = winners
	t.Phase = Showdown
	return Outcome{PhaseChanged: true, HandEnded: true, Departed: t.vacatePending()}, nil
}

func (t *Table) vacatePending() []Player {
	var departed []Player
	for _, s := range t.Seats {
		if s.Occupant != nil && s.Role == RolePendingRemoval {
			departed = append(departed, *s.vacate())
		}
	}
	return departed
}
