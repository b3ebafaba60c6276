package game

import (
	"fmt"
	"strconv"
)

// Phase represents the current stage of a hand. The six values are
// strictly ordered and a hand only ever moves forward through them.
type Phase int

const (
	Waiting Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case PreFlop:
		return "pre_flop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for q := Waiting; q <= Showdown; q++ {
		if q.String() == string(text) {
			*p = q
			return nil
		}
	}
	return fmt.Errorf("%w: unknown phase %q", ErrValidation, text)
}

// InHand reports whether a hand is being played, i.e. cards are out and
// the pot is live.
func (p Phase) InHand() bool {
	return p > Waiting && p < Showdown
}

// Suit of a playing card
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

var suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

func (s Suit) symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

const (
	minValue = 2
	aceValue = 14
)

// Card represents a playing card. Value runs from 2 to 14 (ace high).
type Card struct {
	Suit  Suit   `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// NewCard builds the card of the given value and suit.
func NewCard(value int, suit Suit) Card {
	return Card{Suit: suit, Rank: rankSymbol(value), Value: value}
}

// String returns a string representation of the card
func (c Card) String() string {
	return c.Rank + c.Suit.symbol()
}

func rankSymbol(value int) string {
	switch value {
	case 10:
		return "T"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	case 14:
		return "A"
	default:
		return strconv.Itoa(value)
	}
}

// rankLabel is the rank as written in hand descriptions.
func rankLabel(value int) string {
	if value == 10 {
		return "10"
	}
	return rankSymbol(value)
}
