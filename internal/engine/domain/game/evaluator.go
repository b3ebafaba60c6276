package game

import (
	"fmt"
	"sort"
)

// Category of a five card poker hand, weakest first.
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high_card"
	case OnePair:
		return "pair"
	case TwoPair:
		return "two_pair"
	case ThreeOfAKind:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case FourOfAKind:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	default:
		return "unknown"
	}
}

// categoryWeight keeps every category strictly above all kicker packings
// of the category below it.
const categoryWeight int64 = 10_000_000_000

// Hand is the best five card hand found in a set of cards.
type Hand struct {
	Score    int64    `json:"score"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Cards    [5]Card  `json:"cards"`
}

// Evaluate scores the best five card subset of 5 to 7 cards. Higher scores
// win; equal scores tie. The result does not depend on the order of cards.
func Evaluate(cards []Card) (Hand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Hand{}, fmt.Errorf("%w: hand evaluation needs 5 to 7 cards, got %d", ErrValidation, len(cards))
	}

	ordered := make([]Card, len(cards))
	copy(ordered, cards)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Value != ordered[j].Value {
			return ordered[i].Value > ordered[j].Value
		}
		return ordered[i].Suit < ordered[j].Suit
	})

	n := len(ordered)
	var best Hand
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						hand := scoreFive([5]Card{ordered[a], ordered[b], ordered[c], ordered[d], ordered[e]})
						if hand.Score > best.Score {
							best = hand
						}
					}
				}
			}
		}
	}
	return best, nil
}

type rankGroup struct {
	value int
	count int
}

// scoreFive scores exactly five cards sorted by descending value.
func scoreFive(cards [5]Card) Hand {
	var values [5]int
	flush := true
	for i, c := range cards {
		values[i] = c.Value
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}

	groups := make([]rankGroup, 0, 5)
	for _, v := range values {
		if len(groups) > 0 && groups[len(groups)-1].value == v {
			groups[len(groups)-1].count++
			continue
		}
		groups = append(groups, rankGroup{value: v, count: 1})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	high := straightHigh(values, len(groups))
	hand := Hand{Cards: cards}

	switch {
	case flush && high == aceValue:
		hand.Category = RoyalFlush
		hand.Label = "Royal Flush"
	case flush && high > 0:
		hand.Category = StraightFlush
		hand.Score = int64(high)
		hand.Label = fmt.Sprintf("Straight Flush, %s high", rankLabel(high))
	case groups[0].count == 4:
		hand.Category = FourOfAKind
		hand.Score = pack(groups[0].value, groups[1].value)
		hand.Label = fmt.Sprintf("Four of a Kind, %ss", rankLabel(groups[0].value))
	case groups[0].count == 3 && groups[1].count == 2:
		hand.Category = FullHouse
		hand.Score = pack(groups[0].value, groups[1].value)
		hand.Label = fmt.Sprintf("Full House, %ss over %ss", rankLabel(groups[0].value), rankLabel(groups[1].value))
	case flush:
		hand.Category = Flush
		hand.Score = pack(values[:]...)
		hand.Label = fmt.Sprintf("Flush, %s high", rankLabel(values[0]))
	case high > 0:
		hand.Category = Straight
		hand.Score = int64(high)
		hand.Label = fmt.Sprintf("Straight, %s high", rankLabel(high))
	case groups[0].count == 3:
		hand.Category = ThreeOfAKind
		hand.Score = pack(groups[0].value, groups[1].value, groups[2].value)
		hand.Label = fmt.Sprintf("Three of a Kind, %ss", rankLabel(groups[0].value))
	case groups[0].count == 2 && groups[1].count == 2:
		hand.Category = TwoPair
		hand.Score = pack(groups[0].value, groups[1].value, groups[2].value)
		hand.Label = fmt.Sprintf("Two Pair, %ss and %ss", rankLabel(groups[0].value), rankLabel(groups[1].value))
	case groups[0].count == 2:
		hand.Category = OnePair
		hand.Score = pack(groups[0].value, groups[1].value, groups[2].value, groups[3].value)
		hand.Label = fmt.Sprintf("Pair of %ss", rankLabel(groups[0].value))
	default:
		hand.Category = HighCard
		hand.Score = pack(values[:]...)
		hand.Label = fmt.Sprintf("High Card, %s", rankLabel(values[0]))
	}

	hand.Score += int64(hand.Category) * categoryWeight
	return hand
}

// straightHigh returns the top card of a straight, 5 for the wheel, or 0.
func straightHigh(values [5]int, distinct int) int {
	if distinct != 5 {
		return 0
	}
	if values[0]-values[4] == 4 {
		return values[0]
	}
	if values[0] == aceValue && values[1] == 5 && values[4] == 2 {
		return 5
	}
	return 0
}

// pack folds card values into two decimal digits each, most significant
// first.
func pack(values ...int) int64 {
	var score int64
	for _, v := range values {
		score = score*100 + int64(v)
	}
	return score
}
