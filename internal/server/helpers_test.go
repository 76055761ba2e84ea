package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/internal/auth"
	"github.com/lox/holdemd/internal/store"
)

func testConfig(dbPath string) *Config {
	return &Config{
		Server: ServerSettings{
			Listen:   "127.0.0.1:0",
			LogLevel: "error",
			DBPath:   dbPath,
		},
		Table: TableSettings{
			ID:                "test-table",
			Seats:             6,
			SmallBlind:        1,
			BigBlind:          2,
			StartingStack:     1000,
			MinPlayers:        2,
			ActionTimeoutMs:   1000,
			ReconnectWindowMs: 30000,
			NextHandDelayMs:   100,
		},
	}
}

type testServer struct {
	cfg      *Config
	server   *Server
	store    *store.Store
	cancel   context.CancelFunc
	done     chan error
	stopOnce sync.Once
}

// startTestServer boots an engine plus WebSocket front end on a random port
// with a mock clock and a noop ticket validator.
func startTestServer(t *testing.T, clock quartz.Clock, dbPath string, adjust ...func(*Config)) *testServer {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

	cfg := testConfig(dbPath)
	for _, fn := range adjust {
		fn(cfg)
	}
	st, err := store.Open(dbPath)
	require.NoError(t, err)

	engine, err := NewEngine(cfg, logger, clock, st, auth.NewNoopValidator())
	require.NoError(t, err)
	srv := NewServer(cfg.Server.Listen, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start listening")
	}

	ts := &testServer{cfg: cfg, server: srv, store: st, cancel: cancel, done: done}
	t.Cleanup(ts.stop)
	return ts
}

func (ts *testServer) stop() {
	ts.stopOnce.Do(func() {
		ts.cancel()
		select {
		case <-ts.done:
		case <-time.After(5 * time.Second):
		}
		ts.store.Close()
	})
}

type testClient struct {
	t    *testing.T
	ws   *websocket.Conn
	msgs chan *Message
}

func dialTestClient(t *testing.T, ts *testServer) *testClient {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws", ts.server.Addr())
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	c := &testClient{t: t, ws: ws, msgs: make(chan *Message, 256)}
	go func() {
		defer close(c.msgs)
		for {
			var msg Message
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			c.msgs <- &msg
		}
	}()
	t.Cleanup(func() { ws.Close() })
	return c
}

func (c *testClient) close() {
	c.ws.Close()
}

func (c *testClient) send(typ MessageType, data interface{}) {
	c.t.Helper()
	msg, err := NewMessage(typ, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteJSON(msg))
}

// expect reads frames until one of the wanted types arrives, discarding
// everything else.
func (c *testClient) expect(types ...MessageType) *Message {
	c.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %v", types)
			}
			for _, typ := range types {
				if msg.Type == typ {
					return msg
				}
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %v", types)
		}
	}
}

// expectState reads table_state frames until pred accepts one.
func (c *testClient) expectState(pred func(TableStateData) bool) TableStateData {
	c.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatal("connection closed while waiting for table state")
			}
			if msg.Type != MessageTypeTableState {
				continue
			}
			var state TableStateData
			require.NoError(c.t, json.Unmarshal(msg.Data, &state))
			if pred(state) {
				return state
			}
		case <-deadline:
			c.t.Fatal("timed out waiting for table state")
		}
	}
}

// expectPrivate reads private_state frames until pred accepts one.
func (c *testClient) expectPrivate(pred func(PrivateStateData) bool) PrivateStateData {
	c.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatal("connection closed while waiting for private state")
			}
			if msg.Type != MessageTypePrivateState {
				continue
			}
			var state PrivateStateData
			require.NoError(c.t, json.Unmarshal(msg.Data, &state))
			if pred(state) {
				return state
			}
		case <-deadline:
			c.t.Fatal("timed out waiting for private state")
		}
	}
}

func (c *testClient) authenticate(ticket string) {
	c.t.Helper()
	c.send(MessageTypeAuthenticate, AuthenticateData{Ticket: ticket})
	c.expect(MessageTypeAuthOK)
}

func (c *testClient) sit(seat int) {
	c.t.Helper()
	c.send(MessageTypeSit, SitData{SeatIndex: seat})
	c.expect(MessageTypeSat)
}

func (c *testClient) action(seat int, kind string, amount int) {
	c.t.Helper()
	c.send(MessageTypeAction, ActionData{
		SeatIndex: seat,
		Action:    ActionDetail{Type: kind, Amount: amount},
	})
}

func decodeData(t *testing.T, msg *Message, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, v))
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "holdemd.db")
}
