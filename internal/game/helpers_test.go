package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/poker"
)

// stackedDeck builds a full 52-card deck with the named cards on top, in
// order, and the rest of the universe after them. Tests stack exactly the
// cards a scenario needs and let the remainder fill the deck.
func stackedDeck(t *testing.T, top ...string) *poker.Deck {
	t.Helper()

	cards := make([]poker.Card, 0, 52)
	used := make(map[poker.Card]bool, len(top))
	for _, s := range top {
		c, err := poker.ParseCard(s)
		require.NoError(t, err)
		require.False(t, used[c], "card %s stacked twice", c)
		used[c] = true
		cards = append(cards, c)
	}
	for suit := poker.Spades; suit <= poker.Clubs; suit++ {
		for rank := poker.Two; rank <= poker.Ace; rank++ {
			c := poker.NewCard(rank, suit)
			if !used[c] {
				cards = append(cards, c)
			}
		}
	}
	require.Len(t, cards, 52)
	return poker.NewDeckFromCards(cards)
}

// newTestTable seats the given stacks from seat zero upwards with blinds 1/2.
func newTestTable(t *testing.T, stacks ...int) *Table {
	t.Helper()
	tbl := NewTable(6, Rules{SmallBlind: 1, BigBlind: 2, MinPlayers: 2})
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	for i, chips := range stacks {
		require.NoError(t, tbl.Sit(i, names[i], chips))
	}
	return tbl
}

// mustApply applies an action that the scenario expects to be legal.
func mustApply(t *testing.T, tbl *Table, idx int, action Action) *HandResult {
	t.Helper()
	result, err := tbl.Apply(idx, action)
	require.NoError(t, err)
	require.NoError(t, tbl.CheckInvariants())
	return result
}

func chipTotal(tbl *Table) int {
	total := tbl.Pot()
	for i := 0; i < tbl.NumSeats(); i++ {
		if s := tbl.Seat(i); s != nil {
			total += s.Chips
		}
	}
	return total
}
