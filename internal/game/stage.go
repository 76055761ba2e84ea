package game

import (
	"encoding/json"
	"fmt"
)

// Stage represents where the table is in the hand lifecycle.
type Stage int

const (
	Waiting Stage = iota
	Preflop
	Flop
	Turn
	River
	Showdown
)

var stageNames = [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}

func (s Stage) String() string {
	if s < Waiting || s > Showdown {
		return "unknown"
	}
	return stageNames[s]
}

// IsBetting reports whether the stage accepts player actions.
func (s Stage) IsBetting() bool {
	return s >= Preflop && s <= River
}

// MarshalJSON serializes the stage as its lowercase name.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a lowercase stage name.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range stageNames {
		if n == name {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", name)
}

// ActionKind enumerates the player actions.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Raise
)

var actionNames = [...]string{"fold", "check", "call", "raise"}

func (a ActionKind) String() string {
	if a < Fold || a > Raise {
		return "unknown"
	}
	return actionNames[a]
}

// ParseActionKind parses a lowercase action name.
func ParseActionKind(name string) (ActionKind, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// Action is a single betting decision. Amount is the raise increment above
// the current bet level; it is ignored for the other kinds.
type Action struct {
	Kind   ActionKind
	Amount int
}
