package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/placeback/normalize"
	"github.com/pithecene-io/placeback/runtime"
)

func unsortedDataset(t *testing.T) []string {
	return writeDataset(t,
		[]string{rec(100, "a", "#000000", 0, 0), rec(200, "b", "#000000", 1, 1)},
		[]string{rec(300, "c", "#000000", 0, 0), rec(100, "d", "#000000", 1, 1), rec(200, "e", "#000000", 2, 2)},
	)
}

func TestCheck_ReportsUnsortedShards(t *testing.T) {
	args := append([]string{"check", "--format", "json"}, unsortedDataset(t)...)

	stdout, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeFormatError {
		t.Fatalf("exit code = %d (%v), want %d", code, err, runtime.ExitCodeFormatError)
	}

	var results []normalize.CheckResult
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	want := []normalize.CheckResult{
		{Shard: 0, Lines: 2},
		{Shard: 1, Lines: 3, OutOfOrder: 1, FirstViolation: 2},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_ThenCheckPasses(t *testing.T) {
	dataset := unsortedDataset(t)

	stdout, _, err := runApp(t, append([]string{"sort", "--format", "json", "--parallel", "2"}, dataset...)...)
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	var stats []normalize.Stats
	if err := json.Unmarshal([]byte(stdout), &stats); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(stats) != 2 || stats[1].Records != 3 || stats[1].Inversions != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, _, err := runApp(t, append([]string{"check", "--format", "json"}, dataset...)...); err != nil {
		t.Errorf("check after sort: %v", err)
	}
}

func TestSort_SelectedShardsToOutDir(t *testing.T) {
	dataset := unsortedDataset(t)
	out := t.TempDir()

	args := append([]string{"sort", "--format", "json", "--out-dir", out}, dataset...)
	if _, _, err := runApp(t, append(args, "1")...); err != nil {
		t.Fatalf("sort failed: %v", err)
	}

	// The sorted copy checks clean; the original is untouched.
	sorted := []string{"check", "--format", "json", "--dir", out, "--prefix", "place", "--shards", "2", "--pad", "2", "1"}
	if _, _, err := runApp(t, sorted...); err != nil {
		t.Errorf("check sorted copy: %v", err)
	}
	original := append(append([]string{"check", "--format", "json"}, dataset...), "1")
	if _, _, err := runApp(t, original...); exitCode(err) != runtime.ExitCodeFormatError {
		t.Errorf("original shard should still be unsorted, got %v", err)
	}
}

func TestCheck_MissingShard(t *testing.T) {
	dataset := writeDataset(t, []string{rec(0, "a", "#000000", 0, 0)})
	dataset[5] = "2"

	_, _, err := runApp(t, append([]string{"check", "--format", "json"}, dataset...)...)
	if code := exitCode(err); code != runtime.ExitCodeResourceError {
		t.Errorf("exit code = %d (%v), want %d", code, err, runtime.ExitCodeResourceError)
	}
}

func TestParseShardIndices(t *testing.T) {
	got, err := parseShardIndices(nil, 3)
	if err != nil || !cmp.Equal(got, []int{0, 1, 2}) {
		t.Errorf("parseShardIndices(nil) = %v, %v", got, err)
	}
	got, err = parseShardIndices([]string{"2", "0"}, 3)
	if err != nil || !cmp.Equal(got, []int{2, 0}) {
		t.Errorf("parseShardIndices(2 0) = %v, %v", got, err)
	}
	for _, bad := range [][]string{{"x"}, {"3"}, {"-1"}} {
		if _, err := parseShardIndices(bad, 3); err == nil {
			t.Errorf("parseShardIndices(%v) should fail", bad)
		}
	}
}

func TestSort_RejectsTUI(t *testing.T) {
	_, _, err := runApp(t, "sort", "--tui", "--shards", "1")
	if err == nil || !strings.Contains(err.Error(), "--tui is not supported for sort command") {
		t.Errorf("expected --tui rejection, got %v", err)
	}
}
