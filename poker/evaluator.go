package poker

import (
	"fmt"
	"sort"
)

// Category enumerates hand categories from weakest to strongest. The numeric
// codes are part of the wire and record formats.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case Trips:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case Quads:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is a lexicographically comparable hand strength: the category
// code followed by up to five tiebreak ranks in significance order. Unused
// trailing positions are zero.
type HandValue [6]int

// Category returns the hand's category.
func (v HandValue) Category() Category {
	return Category(v[0])
}

// Compare returns 1 if v beats o, -1 if o beats v, 0 on an exact tie.
func (v HandValue) Compare(o HandValue) int {
	for i := range v {
		if v[i] > o[i] {
			return 1
		}
		if v[i] < o[i] {
			return -1
		}
	}
	return 0
}

// Evaluate5 evaluates exactly five cards.
func Evaluate5(cards []Card) (HandValue, error) {
	if len(cards) != 5 {
		return HandValue{}, fmt.Errorf("evaluate5: need 5 cards, got %d", len(cards))
	}

	ranks := make([]int, 5)
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straightHigh := straightHighRank(ranks)

	if flush && straightHigh > 0 {
		return HandValue{int(StraightFlush), straightHigh}, nil
	}

	// Group ranks by multiplicity: counts sorted by (count desc, rank desc).
	type group struct{ rank, count int }
	byRank := map[int]int{}
	for _, r := range ranks {
		byRank[r]++
	}
	groups := make([]group, 0, 5)
	for r, n := range byRank {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return HandValue{int(Quads), groups[0].rank, groups[1].rank}, nil
	case groups[0].count == 3 && groups[1].count == 2:
		return HandValue{int(FullHouse), groups[0].rank, groups[1].rank}, nil
	case flush:
		return HandValue{int(Flush), ranks[0], ranks[1], ranks[2], ranks[3], ranks[4]}, nil
	case straightHigh > 0:
		return HandValue{int(Straight), straightHigh}, nil
	case groups[0].count == 3:
		return HandValue{int(Trips), groups[0].rank, groups[1].rank, groups[2].rank}, nil
	case groups[0].count == 2 && groups[1].count == 2:
		return HandValue{int(TwoPair), groups[0].rank, groups[1].rank, groups[2].rank}, nil
	case groups[0].count == 2:
		return HandValue{int(Pair), groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}, nil
	default:
		return HandValue{int(HighCard), ranks[0], ranks[1], ranks[2], ranks[3], ranks[4]}, nil
	}
}

// EvaluateBest7 returns the best five-card value over all 21 five-card
// combinations of the seven given cards (two hole plus five board).
func EvaluateBest7(cards []Card) (HandValue, error) {
	if len(cards) != 7 {
		return HandValue{}, fmt.Errorf("evaluateBest7: need 7 cards, got %d", len(cards))
	}

	var best HandValue
	pick := make([]Card, 5)
	// Drop two indices i < j; the rest form a five-card hand.
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 7; j++ {
			k := 0
			for idx, c := range cards {
				if idx == i || idx == j {
					continue
				}
				pick[k] = c
				k++
			}
			v, err := Evaluate5(pick)
			if err != nil {
				return HandValue{}, err
			}
			if v.Compare(best) > 0 {
				best = v
			}
		}
	}
	return best, nil
}

// straightHighRank returns the top rank of a straight formed by the five
// ranks (sorted descending), or 0 if there is none. The wheel A-2-3-4-5
// reports a top rank of 5.
func straightHighRank(sorted []int) int {
	distinct := true
	for i := 1; i < 5; i++ {
		if sorted[i] == sorted[i-1] {
			distinct = false
			break
		}
	}
	if !distinct {
		return 0
	}

	if sorted[0]-sorted[4] == 4 {
		return sorted[0]
	}
	// Wheel: A,5,4,3,2.
	if sorted[0] == int(Ace) && sorted[1] == 5 && sorted[4] == 2 && sorted[1]-sorted[4] == 3 {
		return 5
	}
	return 0
}
