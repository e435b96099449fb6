package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/placeback/cli/reader"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{ViewStatsRuns, true},
		{ViewStatsLatest, true},
		{"stats_list", false},
		{"order", false},
		{"check", false},
		{"version", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	if err := Run("order", nil); err == nil {
		t.Error("expected error for unsupported view type")
	}
}

func TestStatsModel_Runs(t *testing.T) {
	out := RenderStatsStatic(ViewStatsRuns, &reader.RunStats{
		Total:     3,
		Succeeded: 2,
		Failed:    1,
		Frames:    42,
		ByMode:    map[string]int{"timelapse": 2, "count": 1},
	})
	for _, want := range []string{"Run Statistics", "Succeeded", "42", "timelapse", "count"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestStatsModel_Latest(t *testing.T) {
	out := RenderStatsStatic(ViewStatsLatest, &reader.RunView{
		RunID:         "run-7",
		Mode:          "agent",
		Outcome:       "success",
		ShardsRead:    79,
		ShardCount:    79,
		Duplicates:    5,
		AgentFiltered: 1000,
		DurationMs:    1500,
	})
	for _, want := range []string{"run-7", "79 / 79", "1.5s", "Duplicates"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestStatsModel_WrongPayload(t *testing.T) {
	out := NewStatsModel(ViewStatsLatest, &reader.RunStats{}).View()
	if !strings.Contains(out, "Invalid data type") {
		t.Errorf("expected invalid payload message, got:\n%s", out)
	}
}

func TestStatsModel_Quit(t *testing.T) {
	m := NewStatsModel(ViewStatsRuns, &reader.RunStats{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if got := next.View(); got != "" {
		t.Errorf("expected empty view after quit, got %q", got)
	}
}
