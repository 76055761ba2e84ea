package game

import (
	"fmt"

	"github.com/lox/holdemd/poker"
)

// StartHand begins a new hand from the supplied deck: resets per-hand state,
// deals hole cards, advances the button, posts blinds and opens the preflop
// betting round. The deck must be freshly shuffled (or restored from a
// snapshot); the sequencer trusts its order.
//
// In the degenerate case where the blinds put every player all-in, the board
// runs out immediately and the returned HandResult is non-nil.
func (t *Table) StartHand(deck *poker.Deck) (*HandResult, error) {
	if t.stage != Waiting {
		return nil, ErrHandInProgress
	}
	if t.ReadyPlayerCount() < t.rules.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	t.deck = deck
	t.community = nil
	t.pot = 0

	playing := make([]int, 0, len(t.seats))
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		s.resetForHand()
		if s.Chips > 0 {
			playing = append(playing, i)
		}
	}

	// Two hole cards each, one at a time, round-robin from seat 0.
	for round := 0; round < 2; round++ {
		for _, idx := range playing {
			cards, err := t.deck.Deal(1)
			if err != nil {
				return nil, fmt.Errorf("dealing hole cards: %w", err)
			}
			t.seats[idx].Hole = append(t.seats[idx].Hole, cards[0])
		}
	}

	t.handStartTotal = t.pot
	for _, s := range t.seats {
		if s != nil {
			t.handStartTotal += s.Chips
		}
	}

	// Button moves to the next seat able to play, clockwise.
	t.dealerIndex = t.nextReadyFrom(t.dealerIndex + 1)

	// Heads-up the dealer posts the small blind; otherwise the next seat
	// after the button does.
	var sb int
	if len(playing) == 2 {
		sb = t.dealerIndex
	} else {
		sb = t.nextInHandFrom(t.dealerIndex + 1)
	}
	bb := t.nextInHandFrom(sb + 1)

	t.contribute(t.seats[sb], t.rules.SmallBlind)
	t.contribute(t.seats[bb], t.rules.BigBlind)

	t.currentBetToCall = t.rules.BigBlind
	t.lastRaiseAmount = t.rules.BigBlind
	t.stage = Preflop

	// First to act preflop is the next actionable seat after the big blind.
	t.turnIndex = t.nextActionableFrom(bb + 1)
	if t.turnIndex == -1 || t.roundComplete() {
		return t.runOut()
	}
	return nil, nil
}

// roundComplete implements the betting-round completion predicate: every
// unfolded non-all-in seat has matched the bet level and has acted since the
// last raise. When at most one seat can still act and all bets are matched
// there is nothing left to decide and the round closes without its action.
func (t *Table) roundComplete() bool {
	actionable := 0
	unacted := 0
	for _, s := range t.seats {
		if s == nil || !s.CanAct() {
			continue
		}
		if s.CurrentBet != t.currentBetToCall {
			return false
		}
		actionable++
		if !s.Acted {
			unacted++
		}
	}
	if unacted == 0 {
		return true
	}
	// A lone actionable seat has no decision left once bets are matched:
	// every opponent is folded or all-in and could not respond to a bet.
	return actionable == 1
}

// advanceStreet opens the next betting round, dealing the board as needed.
// Returns a HandResult when the advance runs through the river into showdown.
func (t *Table) advanceStreet() (*HandResult, error) {
	for {
		if t.stage == River {
			return t.resolve()
		}

		for _, s := range t.seats {
			if s != nil {
				s.CurrentBet = 0
				s.Acted = false
			}
		}
		t.currentBetToCall = 0
		t.lastRaiseAmount = t.rules.BigBlind

		n := 1
		if t.stage == Preflop {
			n = 3
		}
		cards, err := t.deck.Deal(n)
		if err != nil {
			return nil, fmt.Errorf("dealing board: %w", err)
		}
		t.community = append(t.community, cards...)
		t.stage++

		// First to act postflop is the next actionable seat after the button.
		t.turnIndex = t.nextActionableFrom(t.dealerIndex + 1)
		if t.turnIndex != -1 && !t.roundComplete() {
			return nil, nil
		}
		// Nobody can act (all-ins): keep dealing to the river.
		t.turnIndex = -1
	}
}

// runOut deals any remaining streets without betting and resolves the hand.
func (t *Table) runOut() (*HandResult, error) {
	t.turnIndex = -1
	if t.stage == River || t.unfoldedCount() <= 1 {
		return t.resolve()
	}
	return t.advanceStreet()
}

// afterAction advances the turn cursor, or the stage when the betting round
// has completed. Shared by Apply and ForceFold.
func (t *Table) afterAction() (*HandResult, error) {
	// Down to one unfolded seat: the hand ends with no further dealing.
	if t.unfoldedCount() <= 1 {
		t.turnIndex = -1
		return t.resolve()
	}

	if t.roundComplete() {
		if t.stage == River {
			t.turnIndex = -1
			return t.resolve()
		}
		return t.advanceStreet()
	}

	t.turnIndex = t.nextActionableFrom(t.turnIndex + 1)
	if t.turnIndex == -1 {
		// Completion must hold when no seat can act.
		return t.runOut()
	}
	return nil, nil
}
