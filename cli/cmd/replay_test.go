package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/adapter"
	"github.com/pithecene-io/placeback/artifact"
	"github.com/pithecene-io/placeback/lode"
	"github.com/pithecene-io/placeback/metrics"
	"github.com/pithecene-io/placeback/runtime"
	"github.com/pithecene-io/placeback/shard"
	"github.com/pithecene-io/placeback/types"
)

func rec(ms int, agent, colour string, x, y int) string {
	return fmt.Sprintf(`2022-04-01 12:00:00.%03d UTC,%s,%s,"%d,%d"`, ms, agent, colour, x, y)
}

// writeDataset writes gzip shards named place-NN.csv.gzip into a temp dir
// and returns the dataset flags that locate them.
func writeDataset(t *testing.T, shards ...[]string) []string {
	t.Helper()
	ds := shard.Dataset{Dir: t.TempDir(), Prefix: "place", Count: len(shards), Pad: 2}
	for i, lines := range shards {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(shard.Header + strings.Join(lines, "\n") + "\n"))
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(ds.Path(i), buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return []string{"--dir", ds.Dir, "--prefix", ds.Prefix, "--shards", fmt.Sprint(ds.Count), "--pad", "2"}
}

// sampleDataset holds two shards. Shard 1 is older than shard 0.
func sampleDataset(t *testing.T) []string {
	return writeDataset(t,
		[]string{
			rec(500, "alice", "#FF4500", 1, 1),
			rec(600, "bob", "#000000", 2, 2),
			rec(700, "alice", "#FFFFFF", 1, 1),
		},
		[]string{
			rec(100, "alice", "#000000", 0, 0),
			rec(200, "carol", "#000000", 9, 9),
			`2022-04-01 12:00:00.300 UTC,alice,#000000,"0,0,3,3"`,
		},
	)
}

// newTestApp creates an app with every command wired up and ExitErrHandler
// suppressed so errors are returned instead of calling os.Exit.
func newTestApp(stdout, stderr *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Commands = append(ReplayCommands(), OrderCommand(), SortCommand(), CheckCommand(), StatsCommand(), VersionCommand("test"))
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Writer = stdout
	app.ErrWriter = stderr
	return app
}

func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	err = newTestApp(&out, &errOut).Run(append([]string{"placeback"}, args...))
	return out.String(), errOut.String(), err
}

// exitCode returns the code a cli.Exit error carries, 0 for nil and -1
// for plain errors.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestCount_UsesOrderAndBounds(t *testing.T) {
	args := append([]string{"count"}, sampleDataset(t)...)
	args = append(args, "--quiet", "0", "0", "3", "3")

	stdout, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	// (9,9) is out of bounds and the rect is skipped.
	if !strings.Contains(stdout, "Count: 4\n") {
		t.Errorf("stdout = %q, want Count: 4", stdout)
	}
}

func TestPrint_WritesRecords(t *testing.T) {
	args := append([]string{"print"}, sampleDataset(t)...)
	args = append(args, "--quiet", "1", "1", "2", "2")

	stdout, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), stdout)
	}
	for _, l := range lines {
		if !strings.Contains(l, "Point(1, 1)") {
			t.Errorf("unexpected record %q", l)
		}
	}
}

func TestFind_PrintsAgentRecordsAndTotal(t *testing.T) {
	args := append([]string{"find"}, sampleDataset(t)...)
	args = append(args, "--quiet", "--agent", "alice")

	stdout, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if !strings.Contains(stdout, "Total: 4\n") {
		t.Errorf("stdout = %q, want Total: 4", stdout)
	}
	if strings.Contains(stdout, "bob") || strings.Contains(stdout, "carol") {
		t.Errorf("find printed another agent: %q", stdout)
	}
}

func TestFind_RejectsBounds(t *testing.T) {
	args := append([]string{"find"}, sampleDataset(t)...)
	args = append(args, "--agent", "alice", "0", "0", "3", "3")

	_, _, err := runApp(t, args...)
	if err == nil || !strings.Contains(err.Error(), "does not take bounds") {
		t.Errorf("expected bounds error, got %v", err)
	}
}

func TestAgent_WritesImageAndDuplicates(t *testing.T) {
	out := filepath.Join(t.TempDir(), "images")
	agentFile := filepath.Join(t.TempDir(), "user_id.txt")
	if err := os.WriteFile(agentFile, []byte("alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	args := append([]string{"agent"}, sampleDataset(t)...)
	args = append(args, "--quiet", "--agent-file", agentFile, "--storage-path", out)

	stdout, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	// alice places (0,0), (1,1), (1,1) again.
	if !strings.Contains(stdout, "Duplicate Positions: 1\n") {
		t.Errorf("stdout = %q, want Duplicate Positions: 1", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, artifact.AgentImageName)); err != nil {
		t.Errorf("agent image missing: %v", err)
	}
}

func TestAgent_MissingAgent(t *testing.T) {
	args := append([]string{"agent"}, sampleDataset(t)...)

	_, _, err := runApp(t, args...)
	if err == nil || !strings.Contains(err.Error(), "--agent is required") {
		t.Errorf("expected agent error, got %v", err)
	}
}

func TestTimelapse_WritesCadenceFrames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames")
	args := append([]string{"timelapse"}, sampleDataset(t)...)
	args = append(args, "--quiet", "--spacing", "2", "--storage-path", out, "0", "0", "3", "3")

	_, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	// Four accepted records at spacing 2: frames after records 0 and 2,
	// plus a final frame for record 3.
	for tag := range int64(3) {
		if _, err := os.Stat(filepath.Join(out, artifact.FrameName(tag))); err != nil {
			t.Errorf("frame %d missing: %v", tag, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, artifact.FrameName(3))); !os.IsNotExist(err) {
		t.Errorf("unexpected frame 3: %v", err)
	}
}

func TestTimelapse_NoFinalFrame(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames")
	args := append([]string{"timelapse"}, sampleDataset(t)...)
	args = append(args, "--quiet", "--spacing", "2", "--final-frame=false", "--storage-path", out, "0", "0", "3", "3")

	_, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if _, err := os.Stat(filepath.Join(out, artifact.FrameName(2))); !os.IsNotExist(err) {
		t.Errorf("final frame written with --final-frame=false: %v", err)
	}
}

func TestReplay_MissingShardIsResourceError(t *testing.T) {
	dataset := writeDataset(t, []string{rec(0, "a", "#000000", 0, 0)})
	// Claim two shards; only one exists.
	dataset[5] = "2"
	args := append(append([]string{"count"}, dataset...), "--quiet")

	_, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeResourceError {
		t.Errorf("exit code = %d (%v), want %d", code, err, runtime.ExitCodeResourceError)
	}
}

func TestReplay_MalformedRecordIsFormatError(t *testing.T) {
	dataset := writeDataset(t, []string{rec(0, "a", "#000000", 0, 0), "not,a,record"})
	args := append(append([]string{"count"}, dataset...), "--quiet")

	_, _, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeFormatError {
		t.Errorf("exit code = %d (%v), want %d", code, err, runtime.ExitCodeFormatError)
	}
}

func TestReplay_ArgumentErrors(t *testing.T) {
	dataset := []string{"--prefix", "place", "--shards", "1"}
	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"missing shards", []string{"count"}, "--shards is required"},
		{"partial bounds", append(append([]string{"count"}, dataset...), "0", "0"), "expected 0 or 4 bound coordinates"},
		{"bad bounds", append(append([]string{"count"}, dataset...), "0", "0", "x", "3"), "invalid bounds"},
		{"empty bounds", append(append([]string{"count"}, dataset...), "3", "3", "3", "3"), ""},
		{"bad background", append(append([]string{"timelapse"}, dataset...), "--background", "white"), "invalid --background"},
		{"negative prefetch", append(append([]string{"count"}, dataset...), "--prefetch", "-1"), "--prefetch must be >= 0"},
		{"bad backend", append(append([]string{"count"}, dataset...), "--storage-backend", "gcs"), "--storage-backend must be dir, fs or s3"},
		{"s3 without bucket", append(append([]string{"count"}, dataset...), "--storage-backend", "s3", "--storage-path", "/x"), "must name a bucket"},
		{"bad adapter", append(append([]string{"count"}, dataset...), "--adapter", "kafka"), "--adapter must be redis or webhook"},
		{"adapter without url", append(append([]string{"count"}, dataset...), "--adapter", "webhook"), "--adapter-url is required"},
		{"bad header", append(append([]string{"count"}, dataset...), "--adapter", "webhook", "--adapter-url", "http://x", "--adapter-header", "nope"), "invalid --adapter-header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runApp(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if exitCode(err) != -1 {
				t.Errorf("argument errors must not carry a run exit code, got %v", err)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestReplay_ConfigFile(t *testing.T) {
	dataset := writeDataset(t,
		[]string{rec(500, "alice", "#000000", 1, 1)},
		[]string{rec(100, "alice", "#000000", 900, 900)},
	)

	cfgPath := filepath.Join(t.TempDir(), "placeback.yaml")
	cfg := fmt.Sprintf(`dataset:
  dir: %s
  prefix: place
  pad: 2
order: [1, 0]
bounds: {x1: 0, y1: 0, x2: 2, y2: 2}
`, dataset[1])
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := runApp(t, "count", "--config", cfgPath, "--verbose")
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if !strings.Contains(stdout, "Count: 1\n") {
		t.Errorf("stdout = %q, want Count: 1", stdout)
	}
	// Shard 1 replays first, so no regression is logged.
	if strings.Contains(stderr, "timestamp regression") {
		t.Errorf("unexpected regression warning:\n%s", stderr)
	}
	if strings.Contains(stderr, "no order table configured") {
		t.Errorf("unexpected order table warning:\n%s", stderr)
	}
}

func TestReplay_WarnsWithoutOrderTable(t *testing.T) {
	args := append([]string{"count"}, sampleDataset(t)...)
	args = append(args, "--quiet", "0", "0", "3", "3")

	_, stderr, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	var found bool
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, `"message":"no order table configured, replaying shards in index order"`) {
			found = true
			if !strings.Contains(line, `"level":"warn"`) || !strings.Contains(line, `"shards":2`) {
				t.Errorf("order table warning = %s", line)
			}
		}
	}
	if !found {
		t.Errorf("stderr missing order table warning:\n%s", stderr)
	}
}

func TestReplay_SingleShardNeedsNoOrderTable(t *testing.T) {
	dataset := writeDataset(t, []string{rec(0, "a", "#000000", 0, 0)})
	args := append([]string{"count"}, dataset...)
	args = append(args, "--quiet", "0", "0", "3", "3")

	_, stderr, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if strings.Contains(stderr, "no order table configured") {
		t.Errorf("unexpected order table warning:\n%s", stderr)
	}
}

func TestReplay_ResultSummaryOnStderr(t *testing.T) {
	args := append([]string{"count"}, sampleDataset(t)...)
	args = append(args, "--run-id", "run-001", "0", "0", "3", "3")

	_, stderr, err := runApp(t, args...)
	if code := exitCode(err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	for _, want := range []string{"=== Run Result ===", "Run ID:         run-001", "Accepted:       4", "Out of bounds:  1", "Rects skipped:  1"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestReplay_WritesReport(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.json")
	args := append([]string{"count"}, sampleDataset(t)...)
	args = append(args, "--quiet", "--report", report)

	if _, _, err := runApp(t, args...); exitCode(err) != runtime.ExitCodeSuccess {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if !strings.Contains(string(data), `"outcome"`) {
		t.Errorf("report = %s", data)
	}
}

func TestBuildStoragePath(t *testing.T) {
	cfg := lode.Config{Dataset: "placeback", Mode: "timelapse", Day: "2026-02-03", RunID: "run-001"}
	absImages, err := filepath.Abs("images")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		sc   storageChoice
		want string
	}{
		{
			name: "dir",
			sc:   storageChoice{backend: backendDir, path: "images"},
			want: "file://" + absImages,
		},
		{
			name: "fs",
			sc:   storageChoice{backend: backendFS, path: "/data/place"},
			want: "file:///data/place/datasets/placeback/partitions/mode=timelapse/day=2026-02-03/run_id=run-001/files",
		},
		{
			name: "s3 with prefix",
			sc:   storageChoice{backend: backendS3, path: "bucket/frames/"},
			want: "s3://bucket/frames/datasets/placeback/partitions/mode=timelapse/day=2026-02-03/run_id=run-001/files",
		},
		{
			name: "s3 bucket only",
			sc:   storageChoice{backend: backendS3, path: "bucket"},
			want: "s3://bucket/datasets/placeback/partitions/mode=timelapse/day=2026-02-03/run_id=run-001/files",
		},
		{
			name: "unknown backend",
			sc:   storageChoice{backend: "other", path: "x"},
			want: "datasets/placeback/partitions/mode=timelapse/day=2026-02-03/run_id=run-001/files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildStoragePath(tt.sc, cfg); got != tt.want {
				t.Errorf("buildStoragePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRunCompletedEvent(t *testing.T) {
	started := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	result := &runtime.RunResult{
		RunMeta:   &types.RunMeta{RunID: "run-001", Mode: types.ModeAgent, Dataset: "place"},
		Outcome:   &types.RunOutcome{Status: types.OutcomeSuccess},
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Counts:    metrics.ReplayCounts{Accepted: 10, Duplicates: 3, Frames: 1},
	}

	event := buildRunCompletedEvent(result, "file:///tmp/images")

	want := adapter.RunCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeRunCompleted,
		RunID:           "run-001",
		Mode:            "agent",
		Dataset:         "place",
		Outcome:         "success",
		Accepted:        10,
		Duplicates:      3,
		Frames:          1,
		StoragePath:     "file:///tmp/images",
		Timestamp:       "2026-02-03T10:00:01Z",
		DurationMs:      1500,
	}
	if *event != want {
		t.Errorf("event = %+v, want %+v", *event, want)
	}
}

func TestPrintModeTotal(t *testing.T) {
	counts := metrics.ReplayCounts{Accepted: 7, Duplicates: 2}
	tests := []struct {
		mode types.Mode
		want string
	}{
		{types.ModeCount, "Count: 7\n"},
		{types.ModeFind, "Total: 7\n"},
		{types.ModeAgent, "Duplicate Positions: 2\n"},
		{types.ModePrint, ""},
		{types.ModeTimelapse, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var buf bytes.Buffer
			printModeTotal(&buf, tt.mode, counts)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
