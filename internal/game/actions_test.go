package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/poker"
)

func TestApplyRejectsOutOfTurn(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)
	require.Equal(t, 0, tbl.TurnIndex())

	pot := tbl.Pot()
	_, err = tbl.Apply(1, Action{Kind: Fold})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	assert.Equal(t, pot, tbl.Pot(), "rejected action must not mutate state")
	assert.False(t, tbl.Seat(1).Folded)
	assert.Equal(t, 0, tbl.TurnIndex())
}

func TestApplyRejectsOutsideBettingRound(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.Apply(0, Action{Kind: Check})
	assert.ErrorIs(t, err, ErrNoBettingRound)
}

func TestCheckFacingBetRejected(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	// Dealer owes one chip to the big blind.
	_, err = tbl.Apply(0, Action{Kind: Check})
	assert.ErrorIs(t, err, ErrCheckFacingBet)
	assert.Equal(t, 0, tbl.TurnIndex(), "turn stays with the offender")
}

func TestMinimumRaiseEnforced(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	// Dealer raises to 6: increment 4 over the big blind of 2.
	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 4})
	assert.Equal(t, 6, tbl.CurrentBetToCall())
	assert.Equal(t, 4, tbl.LastRaiseAmount())

	// A re-raise to 9 is an increment of 3, below the minimum of 4.
	_, err = tbl.Apply(1, Action{Kind: Raise, Amount: 3})
	assert.ErrorIs(t, err, ErrRaiseBelowMinimum)
	assert.Equal(t, 6, tbl.CurrentBetToCall(), "rejected raise must not mutate state")
	assert.Equal(t, 1, tbl.TurnIndex())

	// Re-raise to 10 is an increment of 4 and stands.
	mustApply(t, tbl, 1, Action{Kind: Raise, Amount: 4})
	assert.Equal(t, 10, tbl.CurrentBetToCall())
	assert.Equal(t, 4, tbl.LastRaiseAmount())
}

func TestRaiseAmountMustBePositive(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	_, err = tbl.Apply(0, Action{Kind: Raise, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidRaiseAmount)
	_, err = tbl.Apply(0, Action{Kind: Raise, Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidRaiseAmount)
}

func TestAllInForLessBypassesMinimumRaise(t *testing.T) {
	t.Parallel()
	// Dealer has three chips: a shove of one above the big blind is below
	// the minimum increment but legal because it is all-in.
	tbl := newTestTable(t, 3, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)
	require.Equal(t, 0, tbl.TurnIndex())

	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 1})

	seat := tbl.Seat(0)
	assert.True(t, seat.AllIn)
	assert.Equal(t, 0, seat.Chips)
	assert.Equal(t, 3, seat.CurrentBet)
	assert.Equal(t, 3, tbl.CurrentBetToCall())
	assert.Equal(t, 1, tbl.LastRaiseAmount())
	assert.Equal(t, 1, tbl.TurnIndex(), "betting continues behind the shove")
}

func TestFullRaiseReopensBetting(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Call})
	mustApply(t, tbl, 1, Action{Kind: Call})
	assert.True(t, tbl.Seat(0).Acted)

	// The big blind raises; earlier callers must get another turn.
	mustApply(t, tbl, 2, Action{Kind: Raise, Amount: 4})
	assert.False(t, tbl.Seat(0).Acted)
	assert.False(t, tbl.Seat(1).Acted)
	assert.Equal(t, 0, tbl.TurnIndex())
	assert.Equal(t, Preflop, tbl.Stage())
}

func TestCallClampsToStack(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 50)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 98})
	mustApply(t, tbl, 1, Action{Kind: Call})
	mustApply(t, tbl, 2, Action{Kind: Call})

	seat := tbl.Seat(2)
	assert.True(t, seat.AllIn)
	assert.Equal(t, 0, seat.Chips)
	assert.Equal(t, 50, seat.TotalContributed, "call is clamped to the stack")
}

func TestForceFoldOutOfTurn(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)
	require.Equal(t, 0, tbl.TurnIndex())

	// Seat 2 abandons the table while seat 0 is still thinking.
	result, err := tbl.ForceFold(2)
	require.NoError(t, err)
	require.Nil(t, result)
	assert.True(t, tbl.Seat(2).Folded)
	assert.Equal(t, 0, tbl.TurnIndex())

	// Folding the actor advances the turn.
	result, err = tbl.ForceFold(0)
	require.NoError(t, err)
	require.NotNil(t, result, "only the small blind remains unfolded")
	assert.Equal(t, Waiting, tbl.Stage())
	assert.Equal(t, 1002, tbl.Seat(1).Chips)
}

func TestAutoActionChecksWhenFree(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	// Dealer owes a chip: timeout folds.
	action, result, err := tbl.AutoAction(0)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, Fold, action.Kind)

	_, err = tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)
	// Second hand: dealer is seat 1 now. It calls, leaving the big blind
	// free to check, so its timeout checks instead of folding.
	mustApply(t, tbl, 1, Action{Kind: Call})
	action, result, err = tbl.AutoAction(0)
	require.NoError(t, err)
	require.Nil(t, result)
	assert.Equal(t, Check, action.Kind)
	assert.Equal(t, Flop, tbl.Stage())
}

func TestHugeRaiseAmountClampsToAllIn(t *testing.T) {
	t.Parallel()
	// A hostile client can put any integer in the raise amount. Amounts at or
	// beyond the stack are an all-in for the stack, never arithmetic on the
	// raw value.
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	total := chipTotal(tbl) + tbl.Pot()

	_, err = tbl.Apply(0, Action{Kind: Raise, Amount: math.MaxInt})
	require.NoError(t, err)
	require.NoError(t, tbl.CheckInvariants())

	dealer := tbl.Seat(0)
	assert.Equal(t, 0, dealer.Chips)
	assert.True(t, dealer.AllIn)
	assert.Equal(t, 1000, dealer.CurrentBet)
	assert.Equal(t, 1000, tbl.CurrentBetToCall())
	assert.Equal(t, 1003, tbl.Pot())
	assert.Equal(t, total, chipTotal(tbl)+tbl.Pot())

	// One tick below the stack boundary is still an all-in for the stack.
	_, err = tbl.Apply(1, Action{Kind: Raise, Amount: math.MaxInt - 1})
	require.NoError(t, err)
	require.NoError(t, tbl.CheckInvariants())
	assert.Equal(t, 0, tbl.Seat(1).Chips)
	assert.Equal(t, total, chipTotal(tbl)+tbl.Pot())
}
