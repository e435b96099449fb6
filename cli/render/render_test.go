package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/placeback/canvas"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
		{"csv", "csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

type shardRow struct {
	Shard      int       `json:"shard"`
	Lines      int64     `json:"lines"`
	OutOfOrder int64     `json:"out_of_order"`
	First      time.Time `json:"first"`
	internal   string
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	if err := r.Render(shardRow{Shard: 3, Lines: 10}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, `"shard": 3`) || !strings.Contains(got, `"lines": 10`) {
		t.Errorf("JSON output missing expected content: %s", got)
	}
}

func TestRenderer_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, false, &buf)

	if err := r.Render(map[string]any{"order": []int{2, 0, 1}}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "order:") || !strings.Contains(got, "- 2") {
		t.Errorf("YAML output missing expected content: %s", got)
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	first := time.Date(2022, 4, 1, 12, 44, 10, 315000000, time.UTC)
	if err := r.Render(&shardRow{Shard: 7, Lines: 42, First: first, internal: "x"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"shard:", "7", "out_of_order:", "2022-04-01T12:44:10.315Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %s", want, got)
		}
	}
	if strings.Contains(got, "internal") {
		t.Errorf("unexported fields should be skipped: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	rows := []shardRow{{Shard: 0, Lines: 5}, {Shard: 1, Lines: 8, OutOfOrder: 2}}
	if err := r.Render(rows); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if fields := strings.Fields(lines[0]); fields[0] != "shard" || fields[2] != "out_of_order" {
		t.Errorf("unexpected header row: %q", lines[0])
	}
	if fields := strings.Fields(lines[2]); fields[0] != "1" || fields[2] != "2" {
		t.Errorf("unexpected data row: %q", lines[2])
	}
}

func TestRenderer_Table_MapKeysSorted(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	if err := r.Render(map[string]int{"lines": 3, "accepted": 2, "frames": 1}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	a, f, l := strings.Index(got, "accepted"), strings.Index(got, "frames"), strings.Index(got, "lines")
	if a >= f || f >= l {
		t.Errorf("map rows should be sorted by key: %s", got)
	}
}

func TestRenderer_Table_Stringer(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	data := struct {
		Bounds canvas.Bounds `json:"bounds"`
	}{Bounds: canvas.Bounds{X1: 1, Y1: 2, X2: 3, Y2: 4}}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), data.Bounds.String()) {
		t.Errorf("expected Stringer output %q, got %s", data.Bounds.String(), buf.String())
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	if err := r.Render([]shardRow{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("Empty slice should show '(no results)', got: %s", buf.String())
	}
}

func TestRenderer_NoColor_DoesNotAffectJSON(t *testing.T) {
	var bufColor, bufNoColor bytes.Buffer

	data := map[string]string{"mode": "timelapse"}
	if err := NewRendererWithWriter(FormatJSON, false, &bufColor).Render(data); err != nil {
		t.Fatalf("Render with color failed: %v", err)
	}
	if err := NewRendererWithWriter(FormatJSON, true, &bufNoColor).Render(data); err != nil {
		t.Fatalf("Render without color failed: %v", err)
	}
	if bufColor.String() != bufNoColor.String() {
		t.Errorf("--no-color should not affect JSON output")
	}
}

func TestRenderTUI_Unsupported(t *testing.T) {
	r := NewRendererWithWriter(FormatTable, true, &bytes.Buffer{})
	if err := r.RenderTUI("order", nil); err == nil {
		t.Fatal("expected error for view without TUI support")
	}
}
