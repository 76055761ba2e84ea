package game

import "sort"

// Pot is one layer of the pot structure at showdown. Eligible holds the
// seat indexes that can win it; folded players size pots but never appear
// in Eligible.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// buildPots layers the seats' total contributions into a main pot and side
// pots. Pots are built at each distinct contribution level among unfolded
// players, smallest first. Chips contributed by folded players above the
// highest unfolded level are folded into the last pot so that the sum of
// pot amounts always equals the sum of contributions.
func (t *Table) buildPots() []Pot {
	levels := make([]int, 0, len(t.seats))
	for _, s := range t.seats {
		if s == nil || !s.InHand() || s.Folded {
			continue
		}
		if s.TotalContributed > 0 {
			levels = append(levels, s.TotalContributed)
		}
	}
	if len(levels) == 0 {
		return nil
	}
	sort.Ints(levels)

	// Dedupe.
	uniq := levels[:1]
	for _, l := range levels[1:] {
		if l != uniq[len(uniq)-1] {
			uniq = append(uniq, l)
		}
	}

	var pots []Pot
	prev := 0
	for _, level := range uniq {
		pot := Pot{}
		for i, s := range t.seats {
			if s == nil || s.TotalContributed <= prev {
				continue
			}
			slab := s.TotalContributed - prev
			if layer := level - prev; slab > layer {
				slab = layer
			}
			pot.Amount += slab
			if s.InHand() && !s.Folded && s.TotalContributed >= level {
				pot.Eligible = append(pot.Eligible, i)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}

	// Folded contributions beyond the deepest unfolded stack.
	excess := 0
	for _, s := range t.seats {
		if s != nil && s.TotalContributed > prev {
			excess += s.TotalContributed - prev
		}
	}
	if excess > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += excess
	}
	return pots
}
