package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemd/internal/auth"
	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/store"
	"github.com/lox/holdemd/poker"
)

// Engine is the session layer for one table: it owns the socket map, the
// timers and the persistence hooks, and serializes every state mutation
// through a single goroutine consuming the command queue. Nothing outside
// that goroutine touches the table.
type Engine struct {
	cfg       *Config
	logger    *log.Logger
	clock     quartz.Clock
	store     *store.Store
	validator auth.Validator

	commands chan func()

	// Everything below is owned by the serializer goroutine.
	table        *game.Table
	conns        map[string]*Connection // conn id → connection
	identityConn map[string]string      // identity → conn id

	actionTimer    *quartz.Timer
	actionGen      uint64
	actionDeadline time.Time

	reclaimTimers map[int]*quartz.Timer
	reclaimGens   map[int]uint64

	nextHandTimer *quartz.Timer
	nextHandGen   uint64

	// Seats to vacate once the live hand releases their chips.
	pendingLeave map[int]bool

	halted bool
}

// NewEngine builds the engine, rehydrating the table from the snapshot
// store when a snapshot exists.
func NewEngine(cfg *Config, logger *log.Logger, clock quartz.Clock, st *store.Store, validator auth.Validator) (*Engine, error) {
	e := &Engine{
		cfg:           cfg,
		logger:        logger.WithPrefix("engine"),
		clock:         clock,
		store:         st,
		validator:     validator,
		commands:      make(chan func(), 256),
		conns:         make(map[string]*Connection),
		identityConn:  make(map[string]string),
		reclaimTimers: make(map[int]*quartz.Timer),
		reclaimGens:   make(map[int]uint64),
		pendingLeave:  make(map[int]bool),
	}

	tbl, err := e.rehydrate()
	if err != nil {
		return nil, err
	}
	e.table = tbl
	return e, nil
}

func (e *Engine) rehydrate() (*game.Table, error) {
	rules := game.Rules{
		SmallBlind: e.cfg.Table.SmallBlind,
		BigBlind:   e.cfg.Table.BigBlind,
		MinPlayers: e.cfg.Table.MinPlayers,
	}

	if e.store != nil {
		data, err := e.store.LoadSnapshot(context.Background(), e.cfg.Table.ID)
		if err != nil {
			return nil, err
		}
		if data != nil {
			var snap game.TableSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return nil, err
			}
			tbl, err := game.RestoreTable(snap)
			if err != nil {
				return nil, err
			}
			e.logger.Info("Restored table from snapshot",
				"table", e.cfg.Table.ID, "stage", tbl.Stage(), "pot", tbl.Pot())
			return tbl, nil
		}
	}

	return game.NewTable(e.cfg.Table.Seats, rules), nil
}

// Run consumes the command queue until ctx is cancelled. Must be called
// exactly once.
func (e *Engine) Run(ctx context.Context) error {
	// A hand restored mid-flight gets a fresh decision budget.
	if e.table.Stage().IsBetting() && e.table.TurnIndex() != -1 {
		e.startActionTimer()
	}

	for {
		select {
		case <-ctx.Done():
			e.stopTimers()
			return ctx.Err()
		case cmd := <-e.commands:
			cmd()
		}
	}
}

// post queues work for the serializer goroutine.
func (e *Engine) post(fn func()) {
	e.commands <- fn
}

func (e *Engine) stopTimers() {
	if e.actionTimer != nil {
		e.actionTimer.Stop()
	}
	if e.nextHandTimer != nil {
		e.nextHandTimer.Stop()
	}
	for _, t := range e.reclaimTimers {
		t.Stop()
	}
}

// HandleMessage dispatches one client frame. Called from the connection's
// read pump; everything that mutates state is posted to the serializer.
func (e *Engine) HandleMessage(c *Connection, msg *Message) {
	switch msg.Type {
	case MessageTypeAuthenticate:
		var data AuthenticateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed authenticate payload")
			return
		}
		e.authenticate(c, data.Ticket)

	case MessageTypeSit:
		var data SitData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed sit payload")
			return
		}
		e.post(func() { e.handleSit(c, data) })

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed action payload")
			return
		}
		e.post(func() { e.handleAction(c, data) })

	case MessageTypeLeave:
		e.post(func() { e.handleLeave(c) })

	default:
		c.sendError("unknown message type")
	}
}

// authenticate validates the ticket against the external collaborator. The
// HTTP round trip happens on the connection's read pump so a slow auth
// service never stalls the serializer; only the binding is serialized.
func (e *Engine) authenticate(c *Connection, ticket string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	identity, err := e.validator.Validate(ctx, ticket)
	if err != nil {
		e.logger.Debug("Authentication rejected", "error", err)
		text := "authentication failed"
		switch {
		case errors.Is(err, auth.ErrBanned):
			text = "identity is banned"
		case errors.Is(err, auth.ErrUnavailable):
			text = "authentication service unavailable"
		}
		_ = c.Send(mustMessage(MessageTypeAuthError, AuthErrorData{Error: text}))
		return
	}

	e.post(func() { e.bindIdentity(c, identity.PlayerKey) })
}

// bindIdentity tags the socket and replaces any previous socket for the
// same identity. Reconnecting within the reclaim window lands here.
func (e *Engine) bindIdentity(c *Connection, identity string) {
	if oldID, ok := e.identityConn[identity]; ok && oldID != c.ID() {
		if old, ok := e.conns[oldID]; ok {
			e.logger.Info("Identity reconnected, closing previous socket", "identity", identity)
			_ = old.Close()
			delete(e.conns, oldID)
		}
	}

	c.SetIdentity(identity)
	e.conns[c.ID()] = c
	e.identityConn[identity] = c.ID()

	if idx := e.table.SeatOf(identity); idx != -1 {
		e.cancelReclaim(idx)
	}

	_ = c.Send(mustMessage(MessageTypeAuthOK, AuthOKData{
		TableID:  e.cfg.Table.ID,
		Identity: identity,
	}))

	// Late joiners and reconnections need the current state immediately.
	_ = c.Send(mustMessage(MessageTypeTableState, e.tableState(nil)))
	e.sendPrivate(identity)
}

// Connected registers a fresh socket before authentication.
func (e *Engine) Connected(c *Connection) {
	e.post(func() { e.conns[c.ID()] = c })
}

// Disconnected unbinds a socket. A seated identity keeps its seat for the
// reclaim window; the seat is folded and released if the window lapses.
func (e *Engine) Disconnected(c *Connection) {
	e.post(func() { e.handleDisconnect(c) })
}

func (e *Engine) handleDisconnect(c *Connection) {
	delete(e.conns, c.ID())

	identity := c.Identity()
	if identity == "" || e.identityConn[identity] != c.ID() {
		return
	}
	delete(e.identityConn, identity)

	idx := e.table.SeatOf(identity)
	if idx == -1 {
		return
	}

	e.logger.Info("Seated player disconnected, starting reclaim window",
		"identity", identity, "seat", idx, "window", e.cfg.Table.ReconnectWindow())
	e.startReclaim(idx)
	e.broadcast(nil)
}

func (e *Engine) startReclaim(idx int) {
	e.cancelReclaim(idx)
	e.reclaimGens[idx]++
	gen := e.reclaimGens[idx]
	e.reclaimTimers[idx] = e.clock.AfterFunc(e.cfg.Table.ReconnectWindow(), func() {
		e.post(func() { e.reclaimExpired(idx, gen) })
	})
}

func (e *Engine) cancelReclaim(idx int) {
	if t, ok := e.reclaimTimers[idx]; ok {
		t.Stop()
		delete(e.reclaimTimers, idx)
	}
}

func (e *Engine) reclaimExpired(idx int, gen uint64) {
	if e.halted || gen != e.reclaimGens[idx] {
		return
	}
	delete(e.reclaimTimers, idx)

	seat := e.table.Seat(idx)
	if seat == nil {
		return
	}
	if id, ok := e.identityConn[seat.Identity]; ok && id != "" {
		// Reconnected after the timer was already in flight.
		return
	}

	e.logger.Info("Reclaim window lapsed, releasing seat", "identity", seat.Identity, "seat", idx)
	e.removeSeat(idx)
}

// removeSeat folds and vacates a seat, deferring the vacate while the hand
// still holds the seat's chips.
func (e *Engine) removeSeat(idx int) {
	if e.table.Seat(idx) == nil {
		return
	}

	turnBefore := e.table.TurnIndex()

	result, err := e.table.ForceFold(idx)
	if err != nil {
		e.logger.Error("Force fold failed", "seat", idx, "error", err)
	}

	if err := e.table.Vacate(idx); err != nil {
		if errors.Is(err, game.ErrSeatInHand) {
			// Dealt-in seats stay on the books until the pot settles.
			e.pendingLeave[idx] = true
		} else if !errors.Is(err, game.ErrSeatEmpty) {
			e.logger.Error("Vacate failed", "seat", idx, "error", err)
		}
	}

	if e.checkInvariants() {
		return
	}
	e.persist()

	if result != nil {
		e.finishHand(result)
		return
	}
	// The fold may have moved the turn, including by closing the round; the
	// running timer belongs to the seat it was armed for.
	if e.table.TurnIndex() != turnBefore {
		e.cancelActionTimer()
		if e.table.TurnIndex() != -1 {
			e.startActionTimer()
		}
	}
	e.broadcast(nil)
	e.maybeStartHand()
}

func (e *Engine) handleSit(c *Connection, data SitData) {
	identity := c.Identity()
	if identity == "" {
		c.sendError("authenticate first")
		return
	}
	if e.halted {
		c.sendError("table halted")
		return
	}

	if err := e.table.Sit(data.SeatIndex, identity, e.cfg.Table.StartingStack); err != nil {
		c.sendError(err.Error())
		return
	}

	e.logger.Info("Player seated", "identity", identity, "seat", data.SeatIndex)
	_ = c.Send(mustMessage(MessageTypeSat, SatData{SeatIndex: data.SeatIndex}))

	e.persist()
	e.broadcast(nil)
	e.maybeStartHand()
}

func (e *Engine) handleLeave(c *Connection) {
	identity := c.Identity()
	if identity == "" {
		c.sendError("authenticate first")
		return
	}
	idx := e.table.SeatOf(identity)
	if idx == -1 {
		c.sendError("not seated")
		return
	}

	e.logger.Info("Player leaving", "identity", identity, "seat", idx)
	e.cancelReclaim(idx)
	e.removeSeat(idx)
}

func (e *Engine) handleAction(c *Connection, data ActionData) {
	identity := c.Identity()
	if identity == "" {
		c.sendError("authenticate first")
		return
	}
	if e.halted {
		c.sendError("table halted")
		return
	}

	seat := e.table.Seat(data.SeatIndex)
	if seat == nil || seat.Identity != identity {
		c.sendError("seat does not belong to you")
		return
	}

	kind, err := game.ParseActionKind(data.Action.Type)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	result, err := e.table.Apply(data.SeatIndex, game.Action{Kind: kind, Amount: data.Action.Amount})
	if err != nil {
		// Illegal semantics: drop the action and keep the seat's remaining
		// decision budget running.
		e.logger.Debug("Rejected action", "identity", identity, "seat", data.SeatIndex,
			"action", data.Action.Type, "error", err)
		c.sendError(err.Error())
		return
	}

	e.afterMutation(result)
}

// afterMutation is the shared post-action path: invariants, persistence,
// broadcast and timer bookkeeping.
func (e *Engine) afterMutation(result *game.HandResult) {
	e.cancelActionTimer()
	if e.checkInvariants() {
		return
	}
	e.persist()

	if result != nil {
		e.finishHand(result)
		return
	}

	// Arm the timer before broadcasting so private views carry the
	// remaining decision budget.
	if e.table.TurnIndex() != -1 {
		e.startActionTimer()
	}
	e.broadcast(nil)
}

// checkInvariants halts the table when the state machine is corrupt. The
// previous snapshot is left untouched for forensics. Returns true if halted.
func (e *Engine) checkInvariants() bool {
	if err := e.table.CheckInvariants(); err != nil {
		e.logger.Error("INVARIANT VIOLATION, halting table", "table", e.cfg.Table.ID, "error", err)
		e.halted = true
		e.stopTimers()
		return true
	}
	return false
}

func (e *Engine) startActionTimer() {
	e.actionGen++
	gen := e.actionGen
	timeout := e.cfg.Table.ActionTimeout()
	e.actionDeadline = e.clock.Now().Add(timeout)
	e.actionTimer = e.clock.AfterFunc(timeout, func() {
		e.post(func() { e.actionTimeout(gen) })
	})
}

func (e *Engine) cancelActionTimer() {
	if e.actionTimer != nil {
		e.actionTimer.Stop()
		e.actionTimer = nil
	}
	e.actionGen++
}

func (e *Engine) actionTimeout(gen uint64) {
	// Stale fires are dropped: the seat acted, or the stage moved on.
	if e.halted || gen != e.actionGen || !e.table.Stage().IsBetting() {
		return
	}
	idx := e.table.TurnIndex()
	if idx == -1 {
		return
	}

	action, result, err := e.table.AutoAction(idx)
	if err != nil {
		e.logger.Error("Auto action failed", "seat", idx, "error", err)
		return
	}

	e.logger.Info("Action timer expired", "seat", idx, "auto", action.Kind.String())
	if action.Kind == game.Fold {
		e.broadcastMessage(mustMessage(MessageTypeAutoFold, AutoFoldData{SeatIndex: idx}))
	}
	e.afterMutation(result)
}

func (e *Engine) maybeStartHand() {
	if e.halted || !e.table.CanStartHand() {
		return
	}
	e.startHand()
}

func (e *Engine) scheduleNextHand() {
	e.nextHandGen++
	gen := e.nextHandGen
	e.nextHandTimer = e.clock.AfterFunc(e.cfg.Table.NextHandDelay(), func() {
		e.post(func() {
			if e.halted || gen != e.nextHandGen {
				return
			}
			e.maybeStartHand()
		})
	})
}

func (e *Engine) startHand() {
	result, err := e.table.StartHand(poker.NewShuffledDeck())
	if err != nil {
		e.logger.Debug("Hand not started", "error", err)
		return
	}

	e.logger.Info("Hand started", "dealer", e.table.DealerIndex(), "pot", e.table.Pot())
	e.afterMutation(result)
}

// finishHand records the completed hand, broadcasts the showdown frame and
// schedules the next hand.
func (e *Engine) finishHand(result *game.HandResult) {
	e.cancelActionTimer()

	extras := &ShowdownExtras{
		Pots:     result.Pots,
		Revealed: result.Revealed,
	}
	for i, p := range result.Pots {
		extras.Winners = append(extras.Winners, PotWinnersData{PotIndex: i, Winners: p.Winners})
	}

	e.appendHandRecord(result)
	e.broadcast(extras)

	// Seats waiting to leave can be released now that the pot is settled.
	for idx := range e.pendingLeave {
		delete(e.pendingLeave, idx)
		e.cancelReclaim(idx)
		if err := e.table.Vacate(idx); err != nil && !errors.Is(err, game.ErrSeatEmpty) {
			e.logger.Error("Deferred vacate failed", "seat", idx, "error", err)
		}
	}
	e.persist()

	e.scheduleNextHand()
}

func (e *Engine) appendHandRecord(result *game.HandResult) {
	if e.store == nil {
		return
	}

	rec := store.HandRecord{
		TableID: e.cfg.Table.ID,
		Dealer:  result.Dealer,
	}
	for _, c := range result.Board {
		rec.Board = append(rec.Board, c.String())
	}
	for i, p := range result.Pots {
		rec.Pot += p.Amount
		rec.Winners = append(rec.Winners, store.PotWinners{PotIndex: i, Winners: p.Winners})
	}

	if err := e.store.AppendHand(context.Background(), rec); err != nil {
		// Log and continue: a lost history row never fails the live table.
		e.logger.Error("Failed to append hand record", "error", err)
	}
}

// HandHistory returns the most recent completed hands for this table,
// newest first. Reads go straight to the store, not through the serializer.
func (e *Engine) HandHistory(ctx context.Context, limit int) ([]store.HandRecord, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.RecentHands(ctx, e.cfg.Table.ID, limit)
}

// persist writes the snapshot synchronously. On failure the table plays on;
// the next mutation retries, and a crash in between loses at most that
// mutation.
func (e *Engine) persist() {
	if e.store == nil {
		return
	}

	// An empty idle table needs no recovery state.
	if e.table.Stage() == game.Waiting && e.table.OccupiedCount() == 0 {
		if err := e.store.DeleteSnapshot(context.Background(), e.cfg.Table.ID); err != nil {
			e.logger.Error("Failed to delete snapshot", "error", err)
		}
		return
	}

	data, err := json.Marshal(e.table.Snapshot())
	if err != nil {
		e.logger.Error("Failed to marshal snapshot", "error", err)
		return
	}
	if err := e.store.SaveSnapshot(context.Background(), e.cfg.Table.ID, data); err != nil {
		e.logger.Error("Failed to save snapshot", "error", err)
	}
}

func (e *Engine) connected(identity string) bool {
	_, ok := e.identityConn[identity]
	return ok
}

func (e *Engine) tableState(extras *ShowdownExtras) TableStateData {
	view := e.table.PublicView(e.connected)
	return TableStateData{
		ID:               e.cfg.Table.ID,
		Seats:            view.Seats,
		Community:        view.Community,
		Pot:              view.Pot,
		Stage:            view.Stage,
		CurrentBetToCall: view.CurrentBetToCall,
		CurrentTurnIndex: view.CurrentTurnIndex,
		DealerIndex:      view.DealerIndex,
		LastRaiseAmount:  view.LastRaiseAmount,
		ActionTimeoutMs:  e.cfg.Table.ActionTimeoutMs,
		Extras:           extras,
	}
}

// broadcast sends the public view to every socket and each seated player its
// private view.
func (e *Engine) broadcast(extras *ShowdownExtras) {
	e.broadcastMessage(mustMessage(MessageTypeTableState, e.tableState(extras)))

	for i := 0; i < e.table.NumSeats(); i++ {
		if seat := e.table.Seat(i); seat != nil {
			e.sendPrivate(seat.Identity)
		}
	}
}

func (e *Engine) broadcastMessage(msg *Message) {
	for _, c := range e.conns {
		if c.Identity() == "" {
			continue
		}
		if err := c.Send(msg); err != nil {
			e.logger.Debug("Failed to send to client", "error", err)
		}
	}
}

func (e *Engine) sendPrivate(identity string) {
	connID, ok := e.identityConn[identity]
	if !ok {
		return
	}
	c, ok := e.conns[connID]
	if !ok {
		return
	}
	idx := e.table.SeatOf(identity)
	if idx == -1 {
		return
	}
	view, ok := e.table.PrivateView(idx)
	if !ok {
		return
	}

	data := PrivateStateData{MyIndex: view.MyIndex, MyHole: view.MyHole}
	if idx == e.table.TurnIndex() && e.actionTimer != nil {
		if remaining := e.actionDeadline.Sub(e.clock.Now()); remaining > 0 {
			data.TimeMs = remaining.Milliseconds()
		}
	}
	_ = c.Send(mustMessage(MessageTypePrivateState, data))
}
