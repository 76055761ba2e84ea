package game

import "github.com/lox/holdemd/poker"

// Seat holds one participant's chips and per-hand betting state. Socket
// handles and reclaim deadlines live in the session layer; the game state
// only knows the opaque identity.
type Seat struct {
	Identity         string
	Chips            int
	CurrentBet       int // contributed this betting round
	TotalContributed int // contributed this hand; drives side-pot construction
	Folded           bool
	AllIn            bool
	Acted            bool // acted since the last raise this round
	Hole             []poker.Card
}

// InHand reports whether the seat was dealt into the current hand.
func (s *Seat) InHand() bool {
	return len(s.Hole) == 2
}

// CanAct reports whether the seat can make a betting decision.
func (s *Seat) CanAct() bool {
	return s.InHand() && !s.Folded && !s.AllIn
}

// resetForHand clears the per-hand fields.
func (s *Seat) resetForHand() {
	s.CurrentBet = 0
	s.TotalContributed = 0
	s.Folded = false
	s.AllIn = false
	s.Acted = false
	s.Hole = nil
}
