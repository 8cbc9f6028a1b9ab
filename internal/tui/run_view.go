// Package tui provides the terminal view of a workflow run.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/maestro/internal/orchestrator"
)

type stepPhase int

const (
	phasePending stepPhase = iota
	phaseRunning
	phaseDone
	phaseFailed
)

type stepRow struct {
	name     string
	target   string
	phase    stepPhase
	duration time.Duration
	detail   string
}

// eventMsg carries one orchestrator event into the update loop.
type eventMsg struct{ event orchestrator.Event }

// streamClosedMsg is sent once the event channel is closed.
type streamClosedMsg struct{}

// RunView renders the steps of one workflow run as they progress.
type RunView struct {
	events  <-chan orchestrator.Event
	cancel  context.CancelFunc
	spinner spinner.Model

	runID    string
	workflow string
	steps    []*stepRow
	index    map[string]*stepRow
	started  time.Time
	finished bool
	summary  string
	failed   bool

	headerStyle  lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	dimStyle     lipgloss.Style
}

// NewRunView creates a view fed by events. cancel is called when the user
// interrupts; it may be nil.
func NewRunView(events <-chan orchestrator.Event, cancel context.CancelFunc) *RunView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &RunView{
		events:  events,
		cancel:  cancel,
		spinner: s,
		index:   make(map[string]*stepRow),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// waitForEvent reads the next event as a tea message.
func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

// Init implements tea.Model.
func (v *RunView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, waitForEvent(v.events))
}

// Update implements tea.Model.
func (v *RunView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if v.cancel != nil {
				v.cancel()
			}
			return v, tea.Quit
		}
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case streamClosedMsg:
		v.finished = true
		return v, tea.Quit

	case eventMsg:
		v.apply(msg.event)
		if v.finished {
			return v, tea.Quit
		}
		return v, waitForEvent(v.events)
	}
	return v, nil
}

// apply folds an event into the view state. Events of other runs are ignored.
func (v *RunView) apply(ev orchestrator.Event) {
	switch e := ev.(type) {
	case orchestrator.WorkflowStarted:
		if v.runID != "" {
			return
		}
		v.runID = e.WorkflowID
		v.workflow = e.WorkflowName
		v.started = e.Timestamp
		for _, name := range e.Steps {
			row := &stepRow{name: name}
			v.steps = append(v.steps, row)
			v.index[name] = row
		}
	case orchestrator.StepStarted:
		if row := v.row(e.WorkflowID, e.StepName); row != nil {
			row.phase = phaseRunning
			row.target = e.Agent + "." + e.Method
		}
	case orchestrator.StepCompleted:
		if row := v.row(e.WorkflowID, e.StepName); row != nil {
			row.phase = phaseDone
			row.duration = e.Duration
		}
	case orchestrator.StepFailed:
		if row := v.row(e.WorkflowID, e.StepName); row != nil {
			row.phase = phaseFailed
			row.duration = e.Duration
			row.detail = fmt.Sprintf("%s: %s", e.ErrorKind, e.Error)
		}
	case orchestrator.WorkflowCompleted:
		if e.WorkflowID == v.runID {
			v.finished = true
			v.summary = fmt.Sprintf("completed in %s", e.Duration.Round(time.Millisecond))
		}
	case orchestrator.WorkflowFailed:
		if e.WorkflowID == v.runID {
			v.finished = true
			v.failed = true
			v.summary = "failed: " + e.Error
		}
	}
}

func (v *RunView) row(runID, step string) *stepRow {
	if runID != v.runID {
		return nil
	}
	return v.index[step]
}

// View implements tea.Model.
func (v *RunView) View() string {
	var sb strings.Builder
	if v.runID == "" {
		sb.WriteString(v.spinner.View() + " waiting for run to start\n")
		return sb.String()
	}

	sb.WriteString(v.headerStyle.Render(fmt.Sprintf("%s  %s", v.workflow, v.dimStyle.Render(v.runID))))
	sb.WriteString("\n")

	for _, row := range v.steps {
		var icon string
		style := v.pendingStyle
		switch row.phase {
		case phasePending:
			icon = "·"
		case phaseRunning:
			icon = v.spinner.View()
			style = v.runningStyle
		case phaseDone:
			icon = "✓"
			style = v.doneStyle
		case phaseFailed:
			icon = "✗"
			style = v.failedStyle
		}

		line := fmt.Sprintf("%s %-20s", icon, row.name)
		if row.target != "" {
			line += " " + row.target
		}
		if row.duration > 0 {
			line += " " + v.dimStyle.Render(row.duration.Round(time.Millisecond).String())
		}
		sb.WriteString(style.Render(line))
		if row.detail != "" {
			sb.WriteString("\n    " + v.failedStyle.Render(row.detail))
		}
		sb.WriteString("\n")
	}

	if v.summary != "" {
		style := v.doneStyle
		if v.failed {
			style = v.failedStyle
		}
		sb.WriteString("\n" + style.Render(v.summary) + "\n")
	} else {
		sb.WriteString("\n" + v.dimStyle.Render("q to cancel") + "\n")
	}
	return sb.String()
}

// Run runs the view until the workflow finishes or the user cancels.
func (v *RunView) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	_, err := tea.NewProgram(v, opts...).Run()
	return err
}
