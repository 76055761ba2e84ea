// Package game implements the authoritative no-limit hold'em table state
// machine: seats, the hand sequencer, the action arbiter and the showdown
// resolver. It is purely synchronous; the session layer serializes all
// mutation through a single goroutine.
package game

import (
	"errors"
	"fmt"

	"github.com/lox/holdemd/poker"
)

var (
	ErrSeatIndex          = errors.New("seat index out of range")
	ErrSeatOccupied       = errors.New("seat is occupied")
	ErrSeatEmpty          = errors.New("seat is empty")
	ErrIdentitySeated     = errors.New("identity already occupies a seat")
	ErrSeatInHand         = errors.New("seat has chips committed to the current hand")
	ErrHandInProgress     = errors.New("hand already in progress")
	ErrNotEnoughPlayers   = errors.New("not enough players to start a hand")
	ErrNotYourTurn        = errors.New("not this seat's turn")
	ErrNotActionable      = errors.New("seat cannot act")
	ErrNoBettingRound     = errors.New("no betting round in progress")
	ErrCheckFacingBet     = errors.New("cannot check facing a bet")
	ErrRaiseBelowMinimum  = errors.New("raise below minimum increment")
	ErrInvalidRaiseAmount = errors.New("raise amount must be positive")
)

// Rules holds the fixed parameters of the table.
type Rules struct {
	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`
	MinPlayers int `json:"minPlayers"`
}

// Table is the canonical in-memory record of one table. The zero value is
// not usable; construct with NewTable or RestoreTable.
type Table struct {
	seats            []*Seat // fixed ring; nil = empty
	deck             *poker.Deck
	community        []poker.Card
	pot              int
	currentBetToCall int
	lastRaiseAmount  int
	dealerIndex      int // -1 before the first hand
	turnIndex        int // -1 outside betting rounds
	stage            Stage
	rules            Rules

	// Chip total at hand start, for the conservation check.
	handStartTotal int
}

// NewTable creates an empty table with the given number of seats.
func NewTable(numSeats int, rules Rules) *Table {
	return &Table{
		seats:       make([]*Seat, numSeats),
		dealerIndex: -1,
		turnIndex:   -1,
		stage:       Waiting,
		rules:       rules,
	}
}

// Rules returns the table's fixed parameters.
func (t *Table) Rules() Rules { return t.rules }

// Stage returns the current stage.
func (t *Table) Stage() Stage { return t.stage }

// Pot returns the chips committed so far this hand.
func (t *Table) Pot() int { return t.pot }

// TurnIndex returns the seat whose action is pending, or -1.
func (t *Table) TurnIndex() int { return t.turnIndex }

// DealerIndex returns the button seat, or -1 before the first hand.
func (t *Table) DealerIndex() int { return t.dealerIndex }

// CurrentBetToCall returns the per-round bet level.
func (t *Table) CurrentBetToCall() int { return t.currentBetToCall }

// LastRaiseAmount returns the most recent legal raise increment.
func (t *Table) LastRaiseAmount() int { return t.lastRaiseAmount }

// Community returns the board cards dealt so far.
func (t *Table) Community() []poker.Card { return t.community }

// NumSeats returns the size of the seat ring.
func (t *Table) NumSeats() int { return len(t.seats) }

// Seat returns the seat at index i, or nil if empty or out of range.
func (t *Table) Seat(i int) *Seat {
	if i < 0 || i >= len(t.seats) {
		return nil
	}
	return t.seats[i]
}

// SeatOf returns the index of the seat held by identity, or -1.
func (t *Table) SeatOf(identity string) int {
	for i, s := range t.seats {
		if s != nil && s.Identity == identity {
			return i
		}
	}
	return -1
}

// Sit seats an identity at an empty index with the given starting stack.
// Sitting during a live hand is allowed; the player waits for the next deal
// and their stack joins the conservation baseline immediately.
func (t *Table) Sit(idx int, identity string, chips int) error {
	if idx < 0 || idx >= len(t.seats) {
		return ErrSeatIndex
	}
	if t.seats[idx] != nil {
		return ErrSeatOccupied
	}
	if t.SeatOf(identity) != -1 {
		return ErrIdentitySeated
	}
	t.seats[idx] = &Seat{Identity: identity, Chips: chips}
	if t.stage != Waiting {
		t.handStartTotal += chips
	}
	return nil
}

// Vacate removes the seat at idx. A seat dealt into the current hand cannot
// be removed until the hand resolves, even once folded: its stack and hole
// cards are part of the hand's accounting. Fold it and vacate afterwards.
func (t *Table) Vacate(idx int) error {
	if idx < 0 || idx >= len(t.seats) {
		return ErrSeatIndex
	}
	if t.seats[idx] == nil {
		return ErrSeatEmpty
	}
	if t.stage != Waiting {
		if t.seats[idx].InHand() {
			return ErrSeatInHand
		}
		t.handStartTotal -= t.seats[idx].Chips
	}
	t.seats[idx] = nil
	return nil
}

// OccupiedCount returns the number of seats with a player in them.
func (t *Table) OccupiedCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}

// ReadyPlayerCount returns the number of seats able to play the next hand.
func (t *Table) ReadyPlayerCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.Chips > 0 {
			n++
		}
	}
	return n
}

// CanStartHand reports whether the start predicate holds.
func (t *Table) CanStartHand() bool {
	return t.stage == Waiting && t.ReadyPlayerCount() >= t.rules.MinPlayers
}

// unfoldedCount counts dealt-in seats that have not folded.
func (t *Table) unfoldedCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.InHand() && !s.Folded {
			n++
		}
	}
	return n
}

// actionableCount counts seats that may still make betting decisions.
func (t *Table) actionableCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.CanAct() {
			n++
		}
	}
	return n
}

// nextReadyFrom returns the first seat index at or after from (wrapping) that
// can play a hand, or -1.
func (t *Table) nextReadyFrom(from int) int {
	for i := 0; i < len(t.seats); i++ {
		idx := ((from+i)%len(t.seats) + len(t.seats)) % len(t.seats)
		if s := t.seats[idx]; s != nil && s.Chips > 0 {
			return idx
		}
	}
	return -1
}

// nextInHandFrom returns the first dealt-in seat at or after from (wrapping),
// or -1.
func (t *Table) nextInHandFrom(from int) int {
	for i := 0; i < len(t.seats); i++ {
		idx := (from + i) % len(t.seats)
		if s := t.seats[idx]; s != nil && s.InHand() {
			return idx
		}
	}
	return -1
}

// nextActionableFrom returns the first actionable seat at or after from
// (wrapping), or -1.
func (t *Table) nextActionableFrom(from int) int {
	for i := 0; i < len(t.seats); i++ {
		idx := (from + i) % len(t.seats)
		if s := t.seats[idx]; s != nil && s.CanAct() {
			return idx
		}
	}
	return -1
}

// contribute moves chips from the seat's stack into the pot, clamped to
// [0, stack]. Committing the whole stack marks the seat all-in. A negative
// amount can only come from corrupt arithmetic upstream and moves nothing.
func (t *Table) contribute(s *Seat, amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.CurrentBet += amount
	s.TotalContributed += amount
	t.pot += amount
	if s.Chips == 0 {
		s.AllIn = true
	}
	return amount
}

func (t *Table) String() string {
	return fmt.Sprintf("stage=%s pot=%d toCall=%d turn=%d dealer=%d",
		t.stage, t.pot, t.currentBetToCall, t.turnIndex, t.dealerIndex)
}
