package reader

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lodelibrary "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/placeback/lode"
)

type storedRun struct {
	runID   string
	mode    string
	outcome string
	frames  int64
}

func seed(t *testing.T, runs ...storedRun) *LodeReader {
	t.Helper()
	store := lodelibrary.NewMemory()
	factory := func() (lodelibrary.Store, error) { return store, nil }

	for i, r := range runs {
		client, err := lode.NewLodeClientWithFactory(lode.Config{
			Dataset: lode.DefaultDataset,
			Mode:    r.mode,
			Day:     "2022-04-04",
			RunID:   r.runID,
		}, factory)
		if err != nil {
			t.Fatalf("NewLodeClientWithFactory failed: %v", err)
		}
		err = client.WriteSummary(t.Context(), lode.RunSummary{
			Dataset:     "2022_place_canvas_history",
			Outcome:     r.outcome,
			Accepted:    int64(10 * (i + 1)),
			Frames:      r.frames,
			DurationMs:  int64(100 * (i + 1)),
			CompletedAt: time.Date(2022, 4, 4, 12, i, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("WriteSummary failed: %v", err)
		}
	}

	ds, err := lode.NewReadDataset(lode.DefaultDataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	return NewLodeReader(ds)
}

func TestLodeReader_LatestRun(t *testing.T) {
	r := seed(t,
		storedRun{"run-a", "timelapse", "success", 3},
		storedRun{"run-b", "count", "format_error", 0},
	)

	got, err := r.LatestRun(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if got.RunID != "run-b" || got.Outcome != "format_error" {
		t.Errorf("expected run-b format_error, got %s %s", got.RunID, got.Outcome)
	}
	if got.Succeeded() {
		t.Error("format_error run should not report success")
	}

	got, err = r.LatestRun(t.Context(), Filter{Mode: "timelapse"})
	if err != nil {
		t.Fatalf("LatestRun(mode) failed: %v", err)
	}
	want := &RunView{
		RunID:       "run-a",
		Mode:        "timelapse",
		Dataset:     "2022_place_canvas_history",
		Outcome:     "success",
		Accepted:    10,
		Frames:      3,
		DurationMs:  100,
		CompletedAt: time.Date(2022, 4, 4, 12, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run view mismatch (-want +got):\n%s", diff)
	}
}

func TestLodeReader_LatestRun_NotFound(t *testing.T) {
	r := seed(t, storedRun{"run-a", "timelapse", "success", 1})

	_, err := r.LatestRun(t.Context(), Filter{RunID: "run-z"})
	if !errors.Is(err, lode.ErrNoSummaryFound) {
		t.Fatalf("expected ErrNoSummaryFound, got %v", err)
	}
}

func TestLodeReader_ListRuns(t *testing.T) {
	r := seed(t,
		storedRun{"run-a", "timelapse", "success", 3},
		storedRun{"run-b", "count", "success", 0},
		storedRun{"run-c", "timelapse", "canceled", 1},
	)

	items, err := r.ListRuns(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.RunID)
	}
	if diff := cmp.Diff([]string{"run-c", "run-b", "run-a"}, ids); diff != "" {
		t.Errorf("expected most recent first (-want +got):\n%s", diff)
	}
}

func TestLodeReader_Stats(t *testing.T) {
	r := seed(t,
		storedRun{"run-a", "timelapse", "success", 3},
		storedRun{"run-b", "count", "resource_error", 0},
		storedRun{"run-c", "timelapse", "canceled", 1},
		storedRun{"run-d", "agent", "success", 2},
	)

	got, err := r.Stats(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := &RunStats{
		Total:     4,
		Succeeded: 2,
		Failed:    1,
		Canceled:  1,
		Accepted:  100,
		Frames:    6,
		ByOutcome: map[string]int{"success": 2, "resource_error": 1, "canceled": 1},
		ByMode:    map[string]int{"timelapse": 2, "count": 1, "agent": 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestLodeReader_Stats_Empty(t *testing.T) {
	r := seed(t)

	got, err := r.Stats(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got.Total != 0 || len(got.ByOutcome) != 0 {
		t.Errorf("expected empty stats, got %+v", got)
	}
}
