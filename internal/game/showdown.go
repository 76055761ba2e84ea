package game

import "github.com/lox/holdemd/poker"

// PotResult records how one pot layer was decided and paid out.
type PotResult struct {
	Amount   int         `json:"amount"`
	Eligible []int       `json:"eligible"`
	Winners  []int       `json:"winners"`
	Payouts  map[int]int `json:"payouts"`
}

// HandResult is the terminal record of a completed hand.
type HandResult struct {
	Dealer   int                  `json:"dealer"`
	Board    []poker.Card         `json:"board"`
	Pots     []PotResult          `json:"pots"`
	Revealed map[int][]poker.Card `json:"revealed,omitempty"`
}

// resolve ends the hand: moves the table to Showdown, builds the pot layers,
// decides each one, credits the winnings and returns the table to Waiting.
// Called with either a single unfolded seat (everyone else folded) or a full
// five-card board.
func (t *Table) resolve() (*HandResult, error) {
	t.stage = Showdown

	result := &HandResult{
		Dealer: t.dealerIndex,
		Board:  append([]poker.Card(nil), t.community...),
	}

	contenders := make([]int, 0, len(t.seats))
	for i, s := range t.seats {
		if s != nil && s.InHand() && !s.Folded {
			contenders = append(contenders, i)
		}
	}

	pots := t.buildPots()

	if len(contenders) == 1 {
		// Uncontested: the last seat standing takes every pot with no
		// showdown and no cards revealed.
		winner := contenders[0]
		for _, p := range pots {
			result.Pots = append(result.Pots, PotResult{
				Amount:   p.Amount,
				Eligible: p.Eligible,
				Winners:  []int{winner},
				Payouts:  map[int]int{winner: p.Amount},
			})
			t.seats[winner].Chips += p.Amount
		}
		t.endHand()
		return result, nil
	}

	values := make(map[int]poker.HandValue, len(contenders))
	result.Revealed = make(map[int][]poker.Card, len(contenders))
	for _, i := range contenders {
		hole := t.seats[i].Hole
		value, err := poker.EvaluateBest7(append(append([]poker.Card(nil), hole...), t.community...))
		if err != nil {
			return nil, err
		}
		values[i] = value
		result.Revealed[i] = append([]poker.Card(nil), hole...)
	}

	for _, p := range pots {
		pr := PotResult{
			Amount:   p.Amount,
			Eligible: p.Eligible,
			Payouts:  make(map[int]int),
		}
		for _, i := range p.Eligible {
			if len(pr.Winners) == 0 {
				pr.Winners = []int{i}
				continue
			}
			switch values[i].Compare(values[pr.Winners[0]]) {
			case 1:
				pr.Winners = []int{i}
			case 0:
				pr.Winners = append(pr.Winners, i)
			}
		}

		share := p.Amount / len(pr.Winners)
		for _, i := range pr.Winners {
			pr.Payouts[i] = share
		}
		if odd := p.Amount % len(pr.Winners); odd > 0 {
			pr.Payouts[t.firstClockwiseOf(pr.Winners)] += odd
		}
		for i, amount := range pr.Payouts {
			t.seats[i].Chips += amount
		}
		result.Pots = append(result.Pots, pr)
	}

	t.endHand()
	return result, nil
}

// firstClockwiseOf returns the member of idxs seated closest clockwise after
// the button. Odd chips from a split pot all go to that seat.
func (t *Table) firstClockwiseOf(idxs []int) int {
	n := len(t.seats)
	for off := 1; off <= n; off++ {
		seat := (t.dealerIndex + off) % n
		for _, i := range idxs {
			if i == seat {
				return i
			}
		}
	}
	return idxs[0]
}

// endHand clears per-hand state and returns the table to Waiting. The button
// position is kept so the next hand advances from it.
func (t *Table) endHand() {
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		s.Hole = nil
		s.CurrentBet = 0
		s.TotalContributed = 0
		s.Folded = false
		s.AllIn = false
		s.Acted = false
	}
	t.pot = 0
	t.community = nil
	t.deck = nil
	t.currentBetToCall = 0
	t.lastRaiseAmount = 0
	t.turnIndex = -1
	t.stage = Waiting
}
