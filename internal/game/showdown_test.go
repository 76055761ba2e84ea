package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllInShortStackSidePot(t *testing.T) {
	t.Parallel()
	// Seat 0 (button, 100 chips) shoves with aces; seats 1 and 2 shove over
	// the top with kings and queens. The board helps nobody.
	tbl := newTestTable(t, 100, 1000, 1000)

	deck := stackedDeck(t,
		"As", "Ks", "Qs", "Ah", "Kh", "Qh",
		"2s", "7h", "9d", "4c", "Jh",
	)
	_, err := tbl.StartHand(deck)
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 98})
	mustApply(t, tbl, 1, Action{Kind: Raise, Amount: 900})
	result := mustApply(t, tbl, 2, Action{Kind: Call})
	require.NotNil(t, result, "every seat all-in runs the board out")

	require.Len(t, result.Pots, 2)

	main := result.Pots[0]
	assert.Equal(t, 300, main.Amount)
	assert.ElementsMatch(t, []int{0, 1, 2}, main.Eligible)
	assert.Equal(t, []int{0}, main.Winners, "aces take the main pot")

	side := result.Pots[1]
	assert.Equal(t, 1800, side.Amount)
	assert.ElementsMatch(t, []int{1, 2}, side.Eligible)
	assert.Equal(t, []int{1}, side.Winners, "kings take the side pot")

	assert.Equal(t, 300, tbl.Seat(0).Chips)
	assert.Equal(t, 1800, tbl.Seat(1).Chips)
	assert.Equal(t, 0, tbl.Seat(2).Chips)
	assert.Equal(t, 2100, chipTotal(tbl))
}

func TestSplitPotWhenBoardPlays(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)

	// Royal flush on the board: both hands are the board.
	deck := stackedDeck(t,
		"2h", "4d", "7h", "5d",
		"As", "Ks", "Qs", "Js", "Ts",
	)
	_, err := tbl.StartHand(deck)
	require.NoError(t, err)

	// Build a pot of 200: dealer raises to 100, big blind calls.
	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 98})
	mustApply(t, tbl, 1, Action{Kind: Call})
	for tbl.Stage().IsBetting() {
		mustApply(t, tbl, tbl.TurnIndex(), Action{Kind: Check})
	}

	assert.Equal(t, 1000, tbl.Seat(0).Chips)
	assert.Equal(t, 1000, tbl.Seat(1).Chips)
}

func TestOddChipGoesClockwiseFromButton(t *testing.T) {
	t.Parallel()
	// Three-handed: button raises to 100, small blind folds its one chip,
	// big blind calls. Pot is 201 and the board plays.
	tbl := newTestTable(t, 1000, 1000, 1000)

	deck := stackedDeck(t,
		"2h", "4d", "3c", "7h", "5d", "8c",
		"As", "Ks", "Qs", "Js", "Ts",
	)
	_, err := tbl.StartHand(deck)
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 98})
	mustApply(t, tbl, 1, Action{Kind: Fold})
	mustApply(t, tbl, 2, Action{Kind: Call})

	var result *HandResult
	for tbl.Stage().IsBetting() {
		result = mustApply(t, tbl, tbl.TurnIndex(), Action{Kind: Check})
	}
	require.NotNil(t, result)

	require.Len(t, result.Pots, 1)
	pot := result.Pots[0]
	assert.Equal(t, 201, pot.Amount)
	assert.ElementsMatch(t, []int{0, 2}, pot.Winners)

	// Seat 2 sits closest clockwise after the button and gets the odd chip.
	assert.Equal(t, 101, pot.Payouts[2])
	assert.Equal(t, 100, pot.Payouts[0])
	assert.Equal(t, 1001, tbl.Seat(2).Chips)
	assert.Equal(t, 1000, tbl.Seat(0).Chips)
	assert.Equal(t, 999, tbl.Seat(1).Chips)
}

func TestFoldedContributionsStayInThePot(t *testing.T) {
	t.Parallel()
	// A fold after calling leaves the chips behind for the eventual winner.
	tbl := newTestTable(t, 1000, 1000, 1000)

	deck := stackedDeck(t,
		"As", "Ks", "2h", "Ah", "Kh", "4d",
		"2s", "7h", "9d", "4c", "Jh",
	)
	_, err := tbl.StartHand(deck)
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 8})
	mustApply(t, tbl, 1, Action{Kind: Call})
	mustApply(t, tbl, 2, Action{Kind: Call})

	// Flop: seat 1 bets, seat 2 folds, seat 0 calls.
	require.Equal(t, Flop, tbl.Stage())
	mustApply(t, tbl, 1, Action{Kind: Raise, Amount: 50})
	mustApply(t, tbl, 2, Action{Kind: Fold})
	mustApply(t, tbl, 0, Action{Kind: Call})

	var result *HandResult
	for tbl.Stage().IsBetting() {
		result = mustApply(t, tbl, tbl.TurnIndex(), Action{Kind: Check})
	}
	require.NotNil(t, result)

	require.Len(t, result.Pots, 1)
	pot := result.Pots[0]
	assert.Equal(t, 130, pot.Amount, "folded seat's 10 chips stay in the pot")
	assert.ElementsMatch(t, []int{0, 1}, pot.Eligible, "folded seat is never eligible")
	assert.Equal(t, []int{0}, pot.Winners)
	assert.Equal(t, 1070, tbl.Seat(0).Chips)
	assert.Equal(t, 940, tbl.Seat(1).Chips)
	assert.Equal(t, 990, tbl.Seat(2).Chips)
}

func TestUncontestedPotRevealsNothing(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(stackedDeck(t))
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Fold})
	result := mustApply(t, tbl, 1, Action{Kind: Fold})
	require.NotNil(t, result)

	assert.Empty(t, result.Revealed)
	require.Len(t, result.Pots, 1)
	assert.Equal(t, 3, result.Pots[0].Amount)
	assert.Equal(t, []int{2}, result.Pots[0].Winners)
}

func TestResolveEntersShowdownBeforeEvaluating(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)

	deck := stackedDeck(t,
		"As", "Ks", "Ah", "Kh",
		"2s", "7h", "9d", "4c", "Jh",
	)
	_, err := tbl.StartHand(deck)
	require.NoError(t, err)

	// Force a contested resolution against a truncated board. Evaluation
	// fails, leaving the table observable at the stage resolve had reached:
	// betting is over even though no pot was decided.
	tbl.stage = River
	tbl.community = nil
	_, err = tbl.resolve()
	require.Error(t, err)
	assert.Equal(t, Showdown, tbl.Stage())
}
