package game

import (
	"fmt"

	"github.com/lox/holdemd/poker"
)

// CheckInvariants verifies the table's structural invariants. A non-nil
// return means the engine state is corrupt and the table must halt; these
// checks are a last-line safety net, not control flow.
func (t *Table) CheckInvariants() error {
	contributed := 0
	chips := 0
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		contributed += s.TotalContributed
		chips += s.Chips
	}
	if t.pot != contributed {
		return fmt.Errorf("pot %d != total contributions %d", t.pot, contributed)
	}
	if t.stage != Waiting && chips+t.pot != t.handStartTotal {
		return fmt.Errorf("chips %d + pot %d != hand start total %d", chips, t.pot, t.handStartTotal)
	}

	// Deck, board and hole cards partition the 52-card universe.
	seen := make(map[poker.Card]bool, 52)
	note := func(cards []poker.Card) error {
		for _, c := range cards {
			if seen[c] {
				return fmt.Errorf("duplicate card %s in play", c)
			}
			seen[c] = true
		}
		return nil
	}
	if t.deck != nil {
		if err := note(t.deck.Remaining()); err != nil {
			return err
		}
	}
	if err := note(t.community); err != nil {
		return err
	}
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		if err := note(s.Hole); err != nil {
			return err
		}
	}
	if t.stage != Waiting && len(seen) != 52 {
		return fmt.Errorf("%d cards in the universe, want 52", len(seen))
	}

	if t.stage.IsBetting() {
		for i, s := range t.seats {
			if s != nil && s.CanAct() && s.CurrentBet > t.currentBetToCall {
				return fmt.Errorf("seat %d bet %d above the call level %d", i, s.CurrentBet, t.currentBetToCall)
			}
		}
		if t.turnIndex != -1 {
			s := t.Seat(t.turnIndex)
			if s == nil || !s.CanAct() {
				return fmt.Errorf("turn index %d is not an actionable seat", t.turnIndex)
			}
		}
	}

	occupied := make(map[string]int)
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		if prev, ok := occupied[s.Identity]; ok {
			return fmt.Errorf("identity %s occupies seats %d and %d", s.Identity, prev, i)
		}
		occupied[s.Identity] = i
	}
	return nil
}
