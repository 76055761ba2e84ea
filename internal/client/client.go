// Package client implements the WebSocket client side of the table
// protocol, used by the interactive terminal client.
package client

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdemd/internal/server"
)

// Client is a WebSocket connection to a table server. Incoming frames are
// delivered on Messages; outgoing commands are plain method calls.
type Client struct {
	url    string
	logger *log.Logger

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool

	messages chan *server.Message
}

// NewClient creates a client for the given ws:// URL.
func NewClient(url string, logger *log.Logger) *Client {
	return &Client{
		url:      url,
		logger:   logger.WithPrefix("client"),
		messages: make(chan *server.Message, 64),
	}
}

// Messages returns the stream of server frames. Closed when the connection
// drops.
func (c *Client) Messages() <-chan *server.Message {
	return c.messages
}

// Connect dials the server and starts the read loop.
func (c *Client) Connect() error {
	ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	defer close(c.messages)
	for {
		var msg server.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Error("Connection lost", "error", err)
			}
			return
		}
		c.messages <- &msg
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

func (c *Client) send(typ server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(typ, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return fmt.Errorf("not connected")
	}
	return c.ws.WriteJSON(msg)
}

// Authenticate presents a ticket. The server answers auth_ok or auth_error
// on the message stream.
func (c *Client) Authenticate(ticket string) error {
	return c.send(server.MessageTypeAuthenticate, server.AuthenticateData{Ticket: ticket})
}

// Sit requests the given seat.
func (c *Client) Sit(seatIndex int) error {
	return c.send(server.MessageTypeSit, server.SitData{SeatIndex: seatIndex})
}

// Action submits a betting decision for a seat.
func (c *Client) Action(seatIndex int, kind string, amount int) error {
	return c.send(server.MessageTypeAction, server.ActionData{
		SeatIndex: seatIndex,
		Action:    server.ActionDetail{Type: kind, Amount: amount},
	})
}

// Leave gives up the seat.
func (c *Client) Leave() error {
	return c.send(server.MessageTypeLeave, server.LeaveData{})
}
