package game

// Apply validates and applies a betting action for the seat at idx. Illegal
// actions return a typed error and leave the table untouched. A non-nil
// HandResult means the action ended the hand.
func (t *Table) Apply(idx int, action Action) (*HandResult, error) {
	if !t.stage.IsBetting() {
		return nil, ErrNoBettingRound
	}
	if idx != t.turnIndex {
		return nil, ErrNotYourTurn
	}
	seat := t.Seat(idx)
	if seat == nil || !seat.CanAct() {
		return nil, ErrNotActionable
	}

	toCall := t.currentBetToCall - seat.CurrentBet

	switch action.Kind {
	case Fold:
		seat.Folded = true

	case Check:
		if toCall != 0 {
			return nil, ErrCheckFacingBet
		}

	case Call:
		// A call with nothing owed is a check.
		t.contribute(seat, toCall)

	case Raise:
		if action.Amount <= 0 {
			return nil, ErrInvalidRaiseAmount
		}
		minIncrement := max(t.lastRaiseAmount, t.rules.BigBlind)
		// Compare against the stack before any addition: an arbitrary
		// client-supplied amount must never feed overflow into the pot
		// arithmetic. Anything at or beyond the stack is an all-in.
		allIn := action.Amount >= seat.Chips-toCall
		if action.Amount < minIncrement && !allIn {
			return nil, ErrRaiseBelowMinimum
		}

		if allIn {
			t.contribute(seat, seat.Chips)
		} else {
			t.contribute(seat, toCall+action.Amount)
		}
		if seat.CurrentBet > t.currentBetToCall {
			t.lastRaiseAmount = seat.CurrentBet - t.currentBetToCall
			t.currentBetToCall = seat.CurrentBet
			// Everyone else gets to respond to the new level.
			for i, other := range t.seats {
				if i != idx && other != nil && other.CanAct() {
					other.Acted = false
				}
			}
		}
	}

	seat.Acted = true
	return t.afterAction()
}

// ForceFold folds the seat at idx regardless of turn order. Used for
// timeouts and abandoned seats. No-op outside a betting round or for seats
// already out of the hand.
func (t *Table) ForceFold(idx int) (*HandResult, error) {
	if !t.stage.IsBetting() {
		return nil, nil
	}
	seat := t.Seat(idx)
	if seat == nil || !seat.CanAct() {
		return nil, nil
	}

	seat.Folded = true
	seat.Acted = true
	if idx == t.turnIndex {
		return t.afterAction()
	}
	// Out-of-turn fold may itself complete the round.
	if t.unfoldedCount() <= 1 || t.roundComplete() {
		return t.afterAction()
	}
	return nil, nil
}

// AutoAction is the timeout action for the seat at idx: check when nothing
// is owed, otherwise fold. Returns the action taken.
func (t *Table) AutoAction(idx int) (Action, *HandResult, error) {
	seat := t.Seat(idx)
	action := Action{Kind: Fold}
	if seat != nil && t.currentBetToCall == seat.CurrentBet {
		action = Action{Kind: Check}
	}
	result, err := t.Apply(idx, action)
	return action, result, err
}
