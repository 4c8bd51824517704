// Package tui renders live review progress from observability events.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/sdra/pkg/application"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const maxLogLines = 6

type callState int

const (
	callRunning callState = iota
	callDone
	callFailed
)

type modelCall struct {
	id     string
	state  callState
	detail string
}

// DoneMsg ends the program once the review has returned.
type DoneMsg struct{ Err error }

type eventMsg observability.Event

type eventsClosedMsg struct{}

// Model is the bubbletea model of a running review.
type Model struct {
	spinner   spinner.Model
	events    <-chan observability.Event
	phase     string
	round     int
	maxRounds int
	calls     []modelCall
	log       []string
	done      bool
	err       error
	quitting  bool
}

// New creates a model reading from events.
func New(events <-chan observability.Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = warnStyle
	return Model{spinner: s, events: events}
}

// Cancelled reports whether the user quit before the review finished.
func (m Model) Cancelled() bool { return m.quitting && !m.done }

func waitForEvent(events <-chan observability.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case eventMsg:
		m = m.apply(observability.Event(msg))
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) apply(ev observability.Event) Model {
	str := func(k string) string {
		v, _ := ev.Data[k].(string)
		return v
	}
	num := func(k string) int {
		v, _ := ev.Data[k].(int)
		return v
	}

	switch ev.Type {
	case application.EventPhaseStarted:
		m.phase = str("title")
		m.round, m.maxRounds = 0, 0
		m.calls = nil
	case application.EventRoundStarted:
		m.round = num("round")
		m.maxRounds = num("max_rounds")
		m.calls = nil
	case application.EventCallStarted:
		m.calls = append(m.calls, modelCall{id: str("model")})
	case application.EventCallCompleted:
		m.setCall(str("model"), callDone, fmt.Sprintf("%d chars", num("chars")))
	case application.EventCallFailed:
		m.setCall(str("model"), callFailed, str("error"))
	case application.EventConverged:
		m.addLog(okStyle.Render(fmt.Sprintf("%s converged in round %d", str("phase"), num("round"))))
	case application.EventExhausted:
		m.addLog(warnStyle.Render(fmt.Sprintf("%s stopped after %d rounds with %d open suggestions", str("phase"), num("rounds"), num("suggestions"))))
	case application.EventSuggestionsSeen:
		m.addLog(fmt.Sprintf("arbiter returned %d suggestions", num("count")))
	case application.EventMergeFailed:
		m.addLog(errStyle.Render("merge failed: " + str("error")))
	case application.EventReportFallback:
		m.addLog(warnStyle.Render("report generation failed, writing the fallback report"))
	}
	return m
}

func (m *Model) setCall(id string, state callState, detail string) {
	for i := range m.calls {
		if m.calls[i].id == id && m.calls[i].state == callRunning {
			m.calls[i].state = state
			m.calls[i].detail = detail
			return
		}
	}
	m.calls = append(m.calls, modelCall{id: id, state: state, detail: detail})
}

func (m *Model) addLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m Model) View() string {
	var b strings.Builder

	phase := m.phase
	if phase == "" {
		phase = "Parsing design documents"
	}
	b.WriteString(phase)
	if m.round > 0 {
		fmt.Fprintf(&b, "  round %d/%d", m.round, m.maxRounds)
	}
	b.WriteString("\n\n")

	for _, c := range m.calls {
		switch c.state {
		case callRunning:
			fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), c.id)
		case callDone:
			fmt.Fprintf(&b, "%s %s %s\n", okStyle.Render("✓"), c.id, dimStyle.Render(c.detail))
		case callFailed:
			fmt.Fprintf(&b, "%s %s %s\n", errStyle.Render("✗"), c.id, errStyle.Render(c.detail))
		}
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(m.log, "\n"))
		b.WriteString("\n")
	}

	footer := dimStyle.Render("\n[q] Quit")
	if m.done {
		if m.err != nil {
			footer = errStyle.Render("\nReview failed: " + m.err.Error())
		} else {
			footer = okStyle.Render("\nReview complete")
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("sdra security design review"),
		b.String(),
		footer,
	)) + "\n"
}

// Run shows progress from obs while work runs. Quitting the UI cancels the
// context passed to work. The error is the one work returned.
func Run(ctx context.Context, obs *observability.ChannelObserver, work func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(obs.Events()), opts...)

	result := make(chan error, 1)
	go func() {
		err := work(ctx)
		obs.Close()
		result <- err
		p.Send(DoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(Model); ok && m.Cancelled() {
		cancel()
	}
	if runErr != nil {
		cancel()
	}

	err := <-result
	if err == nil && runErr != nil {
		return fmt.Errorf("progress display failed: %w", runErr)
	}
	return err
}
