package game

import (
	"encoding/json"
	"fmt"
)

// ActionKind is one of the five betting actions.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
)

var actionNames = [...]string{
	Fold:  "fold",
	Check: "check",
	Call:  "call",
	Bet:   "bet",
	Raise: "raise",
}

func (k ActionKind) String() string {
	if k < Fold || k > Raise {
		return "unknown"
	}
	return actionNames[k]
}

// ParseActionKind maps a wire name onto an ActionKind.
func ParseActionKind(name string) (ActionKind, error) {
	for k, n := range actionNames {
		if n == name {
			return ActionKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrValidation, name)
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ActionSet is a set of action kinds.
type ActionSet uint8

func newActionSet(kinds ...ActionKind) ActionSet {
	var s ActionSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s ActionSet) Has(k ActionKind) bool {
	return k >= Fold && k <= Raise && s&(1<<k) != 0
}

// Kinds lists the members in ascending order.
func (s ActionSet) Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(actionNames))
	for k := Fold; k <= Raise; k++ {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Kinds())
}

func (s *ActionSet) UnmarshalJSON(data []byte) error {
	var kinds []ActionKind
	if err := json.Unmarshal(data, &kinds); err != nil {
		return err
	}
	*s = newActionSet(kinds...)
	return nil
}

// legalActions derives the legal set from the current bet level.
func legalActions(betLevel int64) ActionSet {
	if betLevel > 0 {
		return newActionSet(Fold, Call, Raise)
	}
	return newActionSet(Fold, Check, Bet)
}
