package server

import (
	"encoding/json"
	"time"

	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/poker"
)

// MessageType identifies a protocol frame.
type MessageType string

const (
	// Client → Server
	MessageTypeAuthenticate MessageType = "authenticate_with_ticket"
	MessageTypeSit          MessageType = "sit"
	MessageTypeAction       MessageType = "action"
	MessageTypeLeave        MessageType = "leave"

	// Server → Client
	MessageTypeAuthOK       MessageType = "auth_ok"
	MessageTypeAuthError    MessageType = "auth_error"
	MessageTypeSat          MessageType = "sat"
	MessageTypeError        MessageType = "error_msg"
	MessageTypeTableState   MessageType = "table_state"
	MessageTypePrivateState MessageType = "private_state"
	MessageTypeAutoFold     MessageType = "auto_fold"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// mustMessage builds a message from a payload the server controls. Payloads
// of our own types cannot fail to marshal.
func mustMessage(messageType MessageType, data interface{}) *Message {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		panic(err)
	}
	return msg
}

// Client → Server Messages

type AuthenticateData struct {
	Ticket string `json:"ticket"`
}

type SitData struct {
	SeatIndex int `json:"seatIndex"`
}

type ActionData struct {
	SeatIndex int          `json:"seatIndex"`
	Action    ActionDetail `json:"action"`
}

type ActionDetail struct {
	Type   string `json:"type"`
	Amount int    `json:"amount,omitempty"`
}

type LeaveData struct{}

// Server → Client Messages

type AuthOKData struct {
	TableID  string `json:"tableId"`
	Identity string `json:"identity"`
}

type AuthErrorData struct {
	Error string `json:"error"`
}

type SatData struct {
	SeatIndex int `json:"seatIndex"`
}

type ErrorData struct {
	Error string `json:"error"`
}

// TableStateData is the public projection broadcast after every mutation.
// The showdown Extras ride along on the completion frame only.
type TableStateData struct {
	ID               string           `json:"id"`
	Seats            []*game.SeatView `json:"seats"`
	Community        []poker.Card     `json:"community"`
	Pot              int              `json:"pot"`
	Stage            game.Stage       `json:"stage"`
	CurrentBetToCall int              `json:"currentBetToCall"`
	CurrentTurnIndex int              `json:"currentTurnIndex"`
	DealerIndex      int              `json:"dealerIndex"`
	LastRaiseAmount  int              `json:"lastRaiseAmount"`
	ActionTimeoutMs  int              `json:"actionTimeoutMs"`
	Extras           *ShowdownExtras  `json:"extras,omitempty"`
}

// ShowdownExtras reports the terminal outcome of a hand.
type ShowdownExtras struct {
	Winners  []PotWinnersData     `json:"winners"`
	Pots     []game.PotResult     `json:"pots"`
	Revealed map[int][]poker.Card `json:"revealed,omitempty"`
}

type PotWinnersData struct {
	PotIndex int   `json:"potIndex"`
	Winners  []int `json:"winners"`
}

type PrivateStateData struct {
	MyIndex int          `json:"myIndex"`
	MyHole  []poker.Card `json:"myHole"`
	TimeMs  int64        `json:"timeMs"`
}

type AutoFoldData struct {
	SeatIndex int `json:"seatIndex"`
}
