// Package tui implements the Bubble Tea front end for the terminal client.
package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/holdemd/internal/client"
	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/server"
	"github.com/lox/holdemd/poker"
)

// frameMsg carries one server frame into the Bubble Tea loop.
type frameMsg struct {
	msg *server.Message
}

// disconnectedMsg signals that the server connection dropped.
type disconnectedMsg struct{}

// Model is the Bubble Tea model for a single table session.
type Model struct {
	client *client.Client
	logger *log.Logger
	ticket string

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// Session state, driven entirely by server frames.
	tableID      string
	identity     string
	mySeat       int
	myHole       []poker.Card
	timeMs       int64
	table        *server.TableStateData
	gameLog      []string
	disconnected bool

	width    int
	height   int
	quitting bool
}

// NewModel creates the model. The client must already be connected; the
// ticket is presented as the first frame.
func NewModel(c *client.Client, ticket string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "sit <seat> | fold | check | call | raise <amount> | leave | quit"
	ti.Focus()
	ti.CharLimit = 64
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

	return &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		ticket:      ticket,
		logViewport: vp,
		actionInput: ti,
		mySeat:      -1,
	}
}

// Init authenticates and starts listening for server frames.
func (m *Model) Init() tea.Cmd {
	if err := m.client.Authenticate(m.ticket); err != nil {
		m.appendLog(ErrorStyle.Render("authenticate: " + err.Error()))
	}
	return tea.Batch(textinput.Blink, m.nextFrame())
}

// nextFrame blocks on the client's message stream and hands the next frame
// to Update.
func (m *Model) nextFrame() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Messages()
		if !ok {
			return disconnectedMsg{}
		}
		return frameMsg{msg: msg}
	}
}

// Update handles terminal and network events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case disconnectedMsg:
		m.disconnected = true
		m.appendLog(ErrorStyle.Render("Connection to server lost"))

	case frameMsg:
		m.handleFrame(msg.msg)
		cmds = append(cmds, m.nextFrame())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.quit()
		case "enter":
			input := strings.TrimSpace(m.actionInput.Value())
			m.actionInput.SetValue("")
			if input != "" {
				if quitModel, cmd, done := m.processCommand(input); done {
					return quitModel, cmd
				}
			}
		}
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	_ = m.client.Close()
	return m, tea.Sequence(tea.ClearScreen, tea.Quit)
}

// processCommand parses a line of user input and sends the matching frame.
// Returns done=true when the command quits the program.
func (m *Model) processCommand(input string) (tea.Model, tea.Cmd, bool) {
	parts := strings.Fields(strings.ToLower(input))
	verb, args := parts[0], parts[1:]

	var err error
	switch verb {
	case "quit", "exit":
		model, cmd := m.quit()
		return model, cmd, true

	case "sit":
		if len(args) != 1 {
			err = fmt.Errorf("usage: sit <seat>")
			break
		}
		var seat int
		if seat, err = strconv.Atoi(args[0]); err != nil {
			err = fmt.Errorf("usage: sit <seat>")
			break
		}
		err = m.client.Sit(seat)

	case "fold", "check", "call":
		err = m.sendAction(verb, 0)

	case "raise", "bet":
		if len(args) != 1 {
			err = fmt.Errorf("usage: raise <amount>")
			break
		}
		var amount int
		if amount, err = strconv.Atoi(args[0]); err != nil {
			err = fmt.Errorf("usage: raise <amount>")
			break
		}
		err = m.sendAction("raise", amount)

	case "leave":
		err = m.client.Leave()

	default:
		err = fmt.Errorf("unknown command %q", verb)
	}

	if err != nil {
		m.appendLog(ErrorStyle.Render(err.Error()))
	}
	return nil, nil, false
}

func (m *Model) sendAction(kind string, amount int) error {
	if m.mySeat < 0 {
		return fmt.Errorf("not seated")
	}
	return m.client.Action(m.mySeat, kind, amount)
}

// handleFrame folds one server frame into the display state.
func (m *Model) handleFrame(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeAuthOK:
		var data server.AuthOKData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.tableID = data.TableID
		m.identity = data.Identity
		m.appendLog(SuccessStyle.Render(fmt.Sprintf("Joined table %s as %s", data.TableID, data.Identity)))

	case server.MessageTypeAuthError:
		var data server.AuthErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.appendLog(ErrorStyle.Render("Authentication failed: " + data.Error))

	case server.MessageTypeSat:
		var data server.SatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.mySeat = data.SeatIndex
		m.appendLog(SuccessStyle.Render(fmt.Sprintf("Seated at seat %d", data.SeatIndex)))

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.appendLog(ErrorStyle.Render(data.Error))

	case server.MessageTypeTableState:
		var data server.TableStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.logger.Error("Bad table state frame", "error", err)
			return
		}
		m.applyTableState(&data)

	case server.MessageTypePrivateState:
		var data server.PrivateStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.mySeat = data.MyIndex
		m.myHole = data.MyHole
		m.timeMs = data.TimeMs

	case server.MessageTypeAutoFold:
		var data server.AutoFoldData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.appendLog(WarningStyle.Render(fmt.Sprintf("Seat %d timed out and was folded", data.SeatIndex)))
	}
}

func (m *Model) applyTableState(data *server.TableStateData) {
	prev := m.table
	m.table = data
	m.tableID = data.ID

	if prev == nil || prev.Stage != data.Stage {
		if data.Stage.IsBetting() && len(data.Community) > 0 {
			m.appendLog(fmt.Sprintf("%s: %s  pot $%d",
				data.Stage, m.formatCards(data.Community), data.Pot))
		}
	}

	if data.Extras != nil {
		m.logShowdown(data)
	}
}

// logShowdown writes the hand outcome to the game log.
func (m *Model) logShowdown(data *server.TableStateData) {
	for _, pot := range data.Extras.Pots {
		names := make([]string, 0, len(pot.Winners))
		for _, w := range pot.Winners {
			names = append(names, m.seatName(data, w))
		}
		m.appendLog(HandInfoStyle.Render(
			fmt.Sprintf("Pot $%d won by %s", pot.Amount, strings.Join(names, ", "))))
	}
	for seat, hole := range data.Extras.Revealed {
		m.appendLog(fmt.Sprintf("%s shows %s", m.seatName(data, seat), m.formatCards(hole)))
	}
}

func (m *Model) seatName(data *server.TableStateData, idx int) string {
	if idx >= 0 && idx < len(data.Seats) && data.Seats[idx] != nil {
		return data.Seats[idx].Identity
	}
	return fmt.Sprintf("seat %d", idx)
}

func (m *Model) appendLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 {
		m.logViewport.GotoBottom()
	}
}

// View renders the table, the game log and the input line.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Render(" holdem ") + " " + m.renderStatus()
	table := m.renderTable()

	inputPane := m.actionInput.View() + "\n" +
		InfoStyle.Render("Enter to submit • Ctrl+C to quit")

	logHeight := m.height - lipgloss.Height(header) - lipgloss.Height(table) - lipgloss.Height(inputPane) - 2
	if logHeight < 1 {
		logHeight = 1
	}
	m.logViewport.Width = m.width
	m.logViewport.Height = logHeight

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		table,
		m.logViewport.View(),
		inputPane,
	)
}

func (m *Model) renderStatus() string {
	if m.disconnected {
		return ErrorStyle.Render("disconnected")
	}
	if m.table == nil {
		return InfoStyle.Render("connecting to " + m.tableID)
	}
	status := fmt.Sprintf("%s  stage %s  pot $%d", m.tableID, m.table.Stage, m.table.Pot)
	if m.table.CurrentBetToCall > 0 {
		status += fmt.Sprintf("  to call $%d", m.table.CurrentBetToCall)
	}
	return InfoStyle.Render(status)
}

func (m *Model) renderTable() string {
	var b strings.Builder

	if m.table != nil {
		for i, seat := range m.table.Seats {
			b.WriteString(m.renderSeat(i, seat))
			b.WriteString("\n")
		}
		if len(m.table.Community) > 0 {
			b.WriteString("Board: " + m.formatCards(m.table.Community) + "\n")
		}
	}

	if len(m.myHole) > 0 {
		line := "Hand:  " + m.formatCards(m.myHole)
		if m.table != nil && m.table.CurrentTurnIndex == m.mySeat {
			line += ActionsStyle.Render(fmt.Sprintf("  your turn (%.0fs)", float64(m.timeMs)/1000))
		}
		b.WriteString(HandInfoStyle.Render(line) + "\n")
	}

	return b.String()
}

func (m *Model) renderSeat(idx int, seat *game.SeatView) string {
	if seat == nil {
		return InfoStyle.Render(fmt.Sprintf("  seat %d: empty", idx))
	}

	var marks []string
	if idx == m.table.DealerIndex {
		marks = append(marks, "D")
	}
	if seat.Folded {
		marks = append(marks, "folded")
	}
	if seat.AllIn {
		marks = append(marks, "all-in")
	}
	if !seat.Connected {
		marks = append(marks, "away")
	}

	line := fmt.Sprintf("  seat %d: %-12s $%-6d bet $%d", idx, seat.Identity, seat.Chips, seat.CurrentBet)
	if len(marks) > 0 {
		line += "  [" + strings.Join(marks, " ") + "]"
	}
	if m.table.CurrentTurnIndex == idx {
		return ActionsStyle.Render("→" + line[1:])
	}
	return line
}

func (m *Model) formatCards(cards []poker.Card) string {
	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		if card.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}
