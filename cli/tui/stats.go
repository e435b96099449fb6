package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/placeback/cli/reader"
)

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// StatsModel is a Bubble Tea model for the stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsRuns:
		content = m.renderRuns()
	case ViewStatsLatest:
		content = m.renderLatest()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render(fmt.Sprintf("Press %s to quit", keys.Quit.Help().Key))
	return content + "\n" + help
}

func (m StatsModel) renderRuns() string {
	data, ok := m.data.(*reader.RunStats)
	if !ok {
		return "Invalid data type for " + ViewStatsRuns
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Statistics"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Total", int64(data.Total), highlightColor),
		statBox("Succeeded", int64(data.Succeeded), successColor),
		statBox("Failed", int64(data.Failed), errorColor),
		statBox("Canceled", int64(data.Canceled), warningColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Accepted", data.Accepted, highlightColor),
		statBox("Frames", data.Frames, primaryColor),
	))

	if len(data.ByMode) > 0 {
		b.WriteString("\n\n")
		modes := make([]string, 0, len(data.ByMode))
		for mode := range data.ByMode {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			b.WriteString(field(mode, fmt.Sprintf("%d", data.ByMode[mode]), ValueStyle))
		}
	}
	return b.String()
}

func (m StatsModel) renderLatest() string {
	v, ok := m.data.(*reader.RunView)
	if !ok {
		return "Invalid data type for " + ViewStatsLatest
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run " + v.RunID))
	b.WriteString("\n\n")
	b.WriteString(field("Mode", v.Mode, ValueStyle))
	b.WriteString(field("Dataset", v.Dataset, ValueStyle))
	b.WriteString(field("Outcome", v.Outcome, OutcomeStyle(v.Outcome)))
	if v.Message != "" {
		b.WriteString(field("Message", v.Message, ValueStyle))
	}
	b.WriteString(field("Shards", fmt.Sprintf("%d / %d", v.ShardsRead, v.ShardCount), ValueStyle))
	b.WriteString(field("Duration", (time.Duration(v.DurationMs) * time.Millisecond).String(), ValueStyle))
	if !v.CompletedAt.IsZero() {
		b.WriteString(field("Completed", v.CompletedAt.UTC().Format("2006-01-02 15:04:05"), ValueStyle))
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Lines", v.Lines, highlightColor),
		statBox("Accepted", v.Accepted, successColor),
		statBox("Frames", v.Frames, primaryColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Out of bounds", v.OutOfBounds, mutedColor),
		statBox("Rects skipped", v.RectsSkipped, mutedColor),
		statBox("Regressions", v.Regressions, warningColor),
	))
	if v.Mode == "agent" || v.Mode == "find" {
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			statBox("Filtered", v.AgentFiltered, mutedColor),
			statBox("Duplicates", v.Duplicates, warningColor),
		))
	}
	return b.String()
}

func field(label, value string, style lipgloss.Style) string {
	return LabelStyle.Render(label+":") + " " + style.Render(value) + "\n"
}

func statBox(label string, value int64, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(
		lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	p := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders a stats view once, without an interactive
// program.
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
