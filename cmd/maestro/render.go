package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("34"))
	failStyle   = cellStyle.Foreground(lipgloss.Color("196"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printStatus prints a colored symbol followed by a message.
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderResults renders step results as a table, with the status column
// colored by outcome.
func renderResults(results []models.StepResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		detail := summarizeOutput(r.Output)
		if !r.Success {
			status = string(r.Kind)
			detail = r.Error
		}
		rows = append(rows, []string{r.StepName, r.Agent, status, formatDuration(r.Duration()), truncate(detail, 60)})
	}

	t := newTable("STEP", "AGENT", "STATUS", "DURATION", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(results) {
				if results[row].Success {
					return okStyle
				}
				return failStyle
			}
			return cellStyle
		})
	return t.String()
}

func renderWorkflows(workflows []models.WorkflowSummary) string {
	rows := make([][]string, 0, len(workflows))
	for _, wf := range workflows {
		rows = append(rows, []string{wf.Name, fmt.Sprintf("%d", wf.StepCount), wf.Description})
	}
	return newTable("NAME", "STEPS", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

func renderAgents(agents []models.AgentInfo) string {
	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, []string{a.Name, string(a.Kind), string(a.Status), strings.Join(a.Capabilities, ", "), a.Description})
	}
	return newTable("NAME", "KIND", "STATUS", "METHODS", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

func plainStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

// eventLine formats an event as one colored line. Returns "" for events not
// worth showing on a terminal.
func eventLine(ev orchestrator.Event) string {
	switch e := ev.(type) {
	case orchestrator.WorkflowStarted:
		return fmt.Sprintf("%s %s (%d steps, run %s)", color.CyanString("▶"), e.WorkflowName, len(e.Steps), e.WorkflowID)
	case orchestrator.StepStarted:
		return fmt.Sprintf("  %s %s → %s.%s", color.BlueString("…"), e.StepName, e.Agent, e.Method)
	case orchestrator.StepCompleted:
		return fmt.Sprintf("  %s %s %s", color.GreenString("✓"), e.StepName, color.HiBlackString(formatDuration(e.Duration)))
	case orchestrator.StepFailed:
		return fmt.Sprintf("  %s %s %s: %s", color.RedString("✗"), e.StepName, color.YellowString(string(e.ErrorKind)), e.Error)
	case orchestrator.WorkflowCompleted:
		return fmt.Sprintf("%s %s completed in %s", color.GreenString("✓"), e.WorkflowName, formatDuration(e.Duration))
	case orchestrator.WorkflowFailed:
		return fmt.Sprintf("%s %s failed: %s", color.RedString("✗"), e.WorkflowName, e.Error)
	case orchestrator.OrchestratorError:
		return fmt.Sprintf("%s %v", color.RedString("!"), e.Err)
	default:
		return ""
	}
}

func summarizeOutput(out map[string]any) string {
	if len(out) == 0 {
		return ""
	}
	if text, ok := out["text"].(string); ok {
		return strings.Join(strings.Fields(text), " ")
	}
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "keys: " + strings.Join(keys, ", ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
