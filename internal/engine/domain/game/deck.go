package game

import (
	"math/rand"
)

const deckSize = 52

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	index int
	rng   *rand.Rand
}

// NewDeck creates a new standard 52-card deck in suit then value order.
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, 0, deckSize),
		rng:   rng,
	}
	for _, suit := range suits {
		for value := minValue; value <= aceValue; value++ {
			deck.cards = append(deck.cards, NewCard(value, suit))
		}
	}
	return deck
}

// Shuffle returns every card to the deck and shuffles it using Fisher-Yates
func (d *Deck) Shuffle() {
	d.index = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. An empty deck is an accounting
// bug in the caller and is reported as ErrDeckExhausted.
func (d *Deck) Draw() (Card, error) {
	if d.index >= len(d.cards) {
		return Card{}, ErrDeckExhausted
	}
	card := d.cards[d.index]
	d.index++
	return card, nil
}

// remaining returns the number of cards left in the deck
func (d *Deck) remaining() int {
	return len(d.cards) - d.index
}
