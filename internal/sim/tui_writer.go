package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"lorawan-sim/internal/config"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// stateMsg updates counters and progress.
type stateMsg struct{ StateRow }

// adminMsg toggles the result server indicator.
type adminMsg struct{ active bool }

// reportMsg carries the final report.
type reportMsg struct{ Report }

const maxLogLines = 1000

// TUIWriter renders run progress using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. When the
// user quits before Close, the process receives an interrupt.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WritePacket logs a send.
func (w *TUIWriter) WritePacket(row PacketRow) error {
	w.program.Send(logMsg{line: fmt.Sprintf("%12s  TX node=%d packet=%#x size=%d", row.SentAt, row.Sender, row.PacketID, row.Size)})
	return nil
}

// WriteReception logs a gateway reception.
func (w *TUIWriter) WriteReception(row ReceptionRow) error {
	w.program.Send(logMsg{line: fmt.Sprintf("%12s  RX gw=%d node=%d packet=%#x %s rx=%.1fdBm",
		row.At, row.Gateway, row.Sender, row.PacketID, outcomeLabel(row), row.RxPowerDbm)})
	return nil
}

// WriteState updates counters and progress.
func (w *TUIWriter) WriteState(row StateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// SetAdminStatus updates the result server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// ShowReport displays the final report in place of the log.
func (w *TUIWriter) ShowReport(r Report) {
	w.program.Send(reportMsg{r})
}

// Wait blocks until the user quits the TUI.
func (w *TUIWriter) Wait() {
	w.sendSignal.Store(false)
	if w.done != nil {
		<-w.done
	}
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.SimulationConfig
	progress   progress.Model
	table      table.Model
	vp         viewport.Model
	logs       []string
	state      StateRow
	report     *Report
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Metric", Width: 14},
		{Title: "Value", Width: 10},
		{Title: "Metric", Width: 14},
		{Title: "Value", Width: 10},
	}
	m := tuiModel{
		cfg:        cfg,
		progress:   progress.New(progress.WithDefaultGradient()),
		table:      table.New(table.WithColumns(cols), table.WithHeight(4)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	m.table.SetRows(m.counterRows())
	return m
}

func (m tuiModel) counterRows() []table.Row {
	s := m.state
	return []table.Row{
		{"Sent", fmt.Sprint(s.Sent), "Failed", fmt.Sprint(s.Failed)},
		{"Delivered", fmt.Sprint(s.Delivered), "Pending", fmt.Sprint(s.Pending)},
		{"Duplicates", fmt.Sprint(s.Duplicates), "Orphans", fmt.Sprint(s.Orphans)},
	}
}

// fraction returns simulated progress in [0, 1].
func (m tuiModel) fraction() float64 {
	if m.cfg == nil || m.cfg.StopTime <= 0 {
		return 0
	}
	f := float64(m.state.SimTime) / float64(m.cfg.StopTime)
	if f > 1 {
		return 1
	}
	return f
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "?", "h":
			m.help = true
		default:
			if !m.autoscroll {
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case stateMsg:
		m.state = msg.StateRow
		m.table.SetRows(m.counterRows())
	case adminMsg:
		m.admin = msg.active
	case reportMsg:
		r := msg.Report
		m.report = &r
		m.state.SimTime = r.End
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderBottom()) + 2
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	if m.report != nil {
		m.vp.SetContent(m.report.Render(true))
		m.vp.GotoTop()
		return
	}
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{m.renderHeader(), divider, m.vp.View(), divider, m.renderBottom()}, "\n")
}

func (m tuiModel) renderHeader() string {
	stop := "?"
	if m.cfg != nil {
		stop = m.cfg.StopTime.String()
	}
	clock := fmt.Sprintf("t=%s / %s", m.state.SimTime, stop)
	return lipgloss.JoinVertical(lipgloss.Left, clock, m.progress.ViewAs(m.fraction()), m.table.View())
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	thr := fmt.Sprintf("%sTHR%s %.4f/s", colorBlue, colorReset, m.state.Throughput)
	return fmt.Sprintf("%s | Results %s | Wrap %s | Scroll %s | Help ?", thr, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle line wrap",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
