package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"outmux/internal/aggregate"
	"outmux/internal/message"
)

// maxRows bounds how many connections the view lists.
const maxRows = 12

const (
	stateOpen   = "open"
	stateClosed = "closed"
	stateError  = "error"
)

type monitorModel struct {
	title   string
	expect  int
	events  <-chan aggregate.Status
	spinner spinner.Model
	prog    progress.Model
	items   []connItem
	index   map[uint64]int
	closed  int
	records int
	failed  int
	width   int
	done    bool
}

type connItem struct {
	conn    uint64
	state   string
	records int
	last    string
	lastDst message.Destination
}

type statusMsg aggregate.Status
type doneMsg struct{}

// NewMonitorModel returns a Bubble Tea model that renders aggregation
// server activity. expect is the number of producers the server waits for;
// zero hides the progress bar. The model quits when events is closed.
func NewMonitorModel(title string, expect int, events <-chan aggregate.Status) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &monitorModel{
		title:   title,
		expect:  expect,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[uint64]int),
		width:   80,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForStatus())
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		cmd := m.apply(aggregate.Status(msg))
		return m, tea.Batch(cmd, m.listenForStatus())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d connections, %d records)", m.title, len(m.items), m.records)
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	lineWidth := m.width - 24
	if lineWidth < 20 {
		lineWidth = 20
	}

	start := 0
	if len(m.items) > maxRows {
		start = len(m.items) - maxRows
		fmt.Fprintf(&b, "  ... %d earlier\n", start)
	}
	for _, item := range m.items[start:] {
		state := styleState(item.state).Render(fmt.Sprintf("%6s", item.state))
		last := truncate(item.last, lineWidth)
		if item.lastDst == message.Diagnostic {
			last = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render(last)
		}
		fmt.Fprintf(&b, "  #%-3d %s %5d  %s\n", item.conn, state, item.records, last)
	}

	if m.expect > 0 {
		b.WriteString("\n")
		if m.done {
			b.WriteString(m.prog.ViewAs(1.0))
		} else {
			b.WriteString(m.prog.View())
		}
		b.WriteString("\n")
	}
	if m.failed > 0 {
		fmt.Fprintf(&b, "%s\n", styleState(stateError).Render(fmt.Sprintf("%d connection(s) dropped", m.failed)))
	}
	return b.String()
}

func (m *monitorModel) listenForStatus() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return statusMsg(st)
	}
}

func (m *monitorModel) item(conn uint64) *connItem {
	idx, ok := m.index[conn]
	if !ok {
		idx = len(m.items)
		m.items = append(m.items, connItem{conn: conn, state: stateOpen})
		m.index[conn] = idx
	}
	return &m.items[idx]
}

func (m *monitorModel) apply(st aggregate.Status) tea.Cmd {
	switch st.Kind {
	case aggregate.StatusConnOpened:
		m.item(st.Conn)
	case aggregate.StatusRecord:
		item := m.item(st.Conn)
		item.records++
		if item.state != stateError {
			item.last = st.Line
			item.lastDst = st.Dest
		}
		m.records++
	case aggregate.StatusConnClosed:
		item := m.item(st.Conn)
		if item.state != stateOpen {
			return nil
		}
		item.state = stateClosed
		if st.Err != nil {
			item.state = stateError
			item.last = st.Err.Error()
			m.failed++
		}
		m.closed++
		if m.expect > 0 {
			return m.prog.SetPercent(float64(m.closed) / float64(m.expect))
		}
	}
	return nil
}

func styleState(state string) lipgloss.Style {
	switch state {
	case stateClosed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case stateError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case stateOpen:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// The tail counts toward width.
	return runewidth.Truncate(value, width, "...")
}
