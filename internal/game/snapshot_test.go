package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/poker"
)

func TestSnapshotRoundTripMidHand(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	// Drive to the flop with real contributions.
	mustApply(t, tbl, 0, Action{Kind: Raise, Amount: 8})
	mustApply(t, tbl, 1, Action{Kind: Call})
	mustApply(t, tbl, 2, Action{Kind: Call})
	require.Equal(t, Flop, tbl.Stage())

	// Through JSON, the way the store persists it.
	data, err := json.Marshal(tbl.Snapshot())
	require.NoError(t, err)
	var snap TableSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored, err := RestoreTable(snap)
	require.NoError(t, err)
	require.NoError(t, restored.CheckInvariants())

	assert.Equal(t, tbl.Stage(), restored.Stage())
	assert.Equal(t, tbl.Pot(), restored.Pot())
	assert.Equal(t, tbl.TurnIndex(), restored.TurnIndex())
	assert.Equal(t, tbl.DealerIndex(), restored.DealerIndex())
	assert.Equal(t, tbl.CurrentBetToCall(), restored.CurrentBetToCall())
	assert.Equal(t, tbl.LastRaiseAmount(), restored.LastRaiseAmount())
	assert.Equal(t, tbl.Community(), restored.Community())
	assert.Equal(t, tbl.Rules(), restored.Rules())
	for i := 0; i < tbl.NumSeats(); i++ {
		assert.Equal(t, tbl.Seat(i), restored.Seat(i), "seat %d", i)
	}

	// Play the restored hand to completion without dealing trouble.
	var result *HandResult
	for restored.Stage().IsBetting() {
		result = mustApply(t, restored, restored.TurnIndex(), Action{Kind: Check})
	}
	require.NotNil(t, result)
	assert.Equal(t, 3000, chipTotal(restored))
}

func TestSnapshotRoundTripIdleTable(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 500, 750)

	restored, err := RestoreTable(tbl.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, Waiting, restored.Stage())
	assert.Equal(t, 500, restored.Seat(0).Chips)
	assert.Equal(t, 750, restored.Seat(1).Chips)
	assert.True(t, restored.CanStartHand())
}

func TestRestoreRejectsDuplicateCards(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	snap := tbl.Snapshot()
	snap.Seats[0].Hole[0] = snap.Deck[0]
	_, err = RestoreTable(snap)
	require.ErrorContains(t, err, "duplicate card")
}

func TestRestoreRejectsShortUniverse(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	_, err := tbl.StartHand(poker.NewShuffledDeck())
	require.NoError(t, err)

	snap := tbl.Snapshot()
	snap.Deck = snap.Deck[:len(snap.Deck)-1]
	_, err = RestoreTable(snap)
	require.ErrorContains(t, err, "want 52")
}

func TestRestoreRejectsBadSeatIndex(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t, 1000, 1000)
	snap := tbl.Snapshot()
	snap.Seats[0].Index = 99
	_, err := RestoreTable(snap)
	require.ErrorContains(t, err, "out of range")
}
