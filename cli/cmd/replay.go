package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/placeback/canvas"
	"github.com/pithecene-io/placeback/cli/config"
	"github.com/pithecene-io/placeback/log"
	"github.com/pithecene-io/placeback/metrics"
	"github.com/pithecene-io/placeback/order"
	"github.com/pithecene-io/placeback/runtime"
	"github.com/pithecene-io/placeback/shard"
	"github.com/pithecene-io/placeback/types"
)

// Default canvas backgrounds. The agent overlay uses dark gray so
// placements stand out.
const (
	defaultBackground      = "#FFFFFF"
	defaultAgentBackground = "#333333"
	defaultSpacing         = 100
)

// ReplayCommands returns one reconstruction command per mode.
func ReplayCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      string(types.ModeTimelapse),
			Usage:     "Render cadence frames of a canvas window",
			ArgsUsage: "[x1 y1 x2 y2]",
			Flags: append(replayFlags(),
				spacingFlag(defaultSpacing),
				&cli.BoolFlag{Name: "final-frame", Usage: "Emit a last frame for records accepted after the last cadence frame", Value: true},
			),
			Action: replayAction(types.ModeTimelapse),
		},
		{
			Name:      string(types.ModeCount),
			Usage:     "Count placements inside a canvas window",
			ArgsUsage: "[x1 y1 x2 y2]",
			Flags:     replayFlags(),
			Action:    replayAction(types.ModeCount),
		},
		{
			Name:      string(types.ModePrint),
			Usage:     "Print every placement inside a canvas window",
			ArgsUsage: "[x1 y1 x2 y2]",
			Flags:     replayFlags(),
			Action:    replayAction(types.ModePrint),
		},
		{
			Name:      string(types.ModeAgent),
			Usage:     "Render the placements of one agent and count overwrites",
			ArgsUsage: "[x1 y1 x2 y2]",
			Flags:     append(append(replayFlags(), agentFlags()...), spacingFlag(0)),
			Action:    replayAction(types.ModeAgent),
		},
		{
			Name:   string(types.ModeFind),
			Usage:  "Print every record placed by one agent, rects included",
			Flags:  append(replayFlags(), agentFlags()...),
			Action: replayAction(types.ModeFind),
		},
	}
}

func spacingFlag(value int64) cli.Flag {
	return &cli.Int64Flag{Name: "spacing", Aliases: []string{"s"}, Usage: "Accepted records between frames (0 disables cadence frames)", Value: value}
}

func agentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent id (hashed user id) to follow"},
		&cli.StringFlag{Name: "agent-file", Usage: "Read the agent id from this file"},
	}
}

// replayChoice holds the resolved inputs of one reconstruction run.
type replayChoice struct {
	meta    *types.RunMeta
	dataset shard.Dataset
	table   order.Table
	// unordered is set when the table was defaulted to index order.
	unordered bool
	engine    runtime.EngineConfig
	prefetch  int
	storage   storageChoice
	adapter   adapterChoice
	report    string
	quiet     bool
	verbose   bool
}

func replayAction(mode types.Mode) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		choice, err := resolveReplayChoice(c, cfg, mode)
		if err != nil {
			return err
		}
		return executeReplay(c.Context, choice, c.App.Writer, c.App.ErrWriter)
	}
}

// resolveReplayChoice merges flags, positional bounds and the config file.
// cfg may be nil.
func resolveReplayChoice(c *cli.Context, cfg *config.Config, mode types.Mode) (*replayChoice, error) {
	ds, err := resolveDataset(c, cfg)
	if err != nil {
		return nil, err
	}

	table := order.Identity(ds.Count)
	unordered := ds.Count > 1
	if cfg != nil {
		unordered = unordered && len(cfg.Order) == 0
		t, err := cfg.OrderTable(ds.Count)
		if err != nil {
			return nil, fmt.Errorf("config order: %w", err)
		}
		table = t
	}

	bounds, err := resolveBounds(c, cfg, mode)
	if err != nil {
		return nil, err
	}

	palette := canvas.Palette2022()
	if cfg != nil {
		if palette, err = cfg.ColourPalette(); err != nil {
			return nil, err
		}
	}

	background, err := resolveBackground(c, cfg, mode)
	if err != nil {
		return nil, err
	}

	engine := runtime.EngineConfig{
		Mode:       mode,
		Bounds:     bounds,
		Background: background,
		Palette:    palette,
	}
	if mode.RequiresAgent() {
		if engine.Agent, err = resolveAgent(c, cfg); err != nil {
			return nil, err
		}
	}
	// Configured spacing is the timelapse cadence; agent cadence is opt-in per run.
	switch mode {
	case types.ModeTimelapse:
		engine.Spacing = resolveInt64(c, "spacing", configVal(cfg, func(c *config.Config) int64 { return c.Spacing }))
		engine.FlushFinal = c.Bool("final-frame")
	case types.ModeAgent:
		engine.Spacing = c.Int64("spacing")
	}
	if err := engine.Validate(); err != nil {
		return nil, err
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	storage := resolveStorageChoice(c, cfg)
	if err := validateStorageChoice(storage); err != nil {
		return nil, err
	}
	ac, err := resolveAdapterChoice(c, cfg)
	if err != nil {
		return nil, err
	}

	prefetch := resolveInt(c, "prefetch", configVal(cfg, func(c *config.Config) int { return c.Prefetch }))
	if prefetch < 0 {
		return nil, fmt.Errorf("--prefetch must be >= 0, got %d", prefetch)
	}

	return &replayChoice{
		meta:      &types.RunMeta{RunID: runID, Mode: mode, Dataset: ds.Prefix},
		dataset:   ds,
		table:     table,
		unordered: unordered,
		engine:    engine,
		prefetch:  prefetch,
		storage:   storage,
		adapter:   ac,
		report:    c.String("report"),
		quiet:     c.Bool("quiet"),
		verbose:   c.Bool("verbose"),
	}, nil
}

// resolveBounds takes four positional coordinates, then config bounds,
// then the mode default.
func resolveBounds(c *cli.Context, cfg *config.Config, mode types.Mode) (canvas.Bounds, error) {
	switch c.NArg() {
	case 0:
	case 4:
		if !mode.UsesBounds() {
			return canvas.Bounds{}, fmt.Errorf("%s does not take bounds", mode)
		}
		b, err := canvas.BoundsFromStrings(c.Args().Slice())
		if err != nil {
			return canvas.Bounds{}, fmt.Errorf("invalid bounds: %w", err)
		}
		return b, nil
	default:
		return canvas.Bounds{}, fmt.Errorf("expected 0 or 4 bound coordinates (x1 y1 x2 y2), got %d", c.NArg())
	}

	if b := configVal(cfg, func(c *config.Config) *canvas.Bounds { return c.Bounds }); b != nil {
		return *b, nil
	}
	if mode == types.ModeAgent {
		return canvas.FullCanvas2022(), nil
	}
	return canvas.DefaultBounds(), nil
}

// resolveBackground prefers --background, then the config file, then the
// mode default.
func resolveBackground(c *cli.Context, cfg *config.Config, mode types.Mode) (canvas.RGB, error) {
	if c.IsSet("background") {
		rgb, err := canvas.ParseHex(c.String("background"))
		if err != nil {
			return canvas.RGB{}, fmt.Errorf("invalid --background: %w", err)
		}
		return rgb, nil
	}
	if cfg != nil && cfg.Background != "" {
		return cfg.BackgroundColour()
	}
	if mode == types.ModeAgent {
		return canvas.ParseHex(defaultAgentBackground)
	}
	return canvas.ParseHex(defaultBackground)
}

func resolveAgent(c *cli.Context, cfg *config.Config) (string, error) {
	if c.IsSet("agent") {
		return c.String("agent"), nil
	}
	if path := c.String("agent-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cannot read agent file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if agent := configVal(cfg, func(c *config.Config) string { return c.Agent }); agent != "" {
		return agent, nil
	}
	return "", errors.New("--agent is required (or --agent-file, or agent in the config file)")
}

// executeReplay runs one reconstruction and maps the outcome to an exit
// code. Records go to stdout; logs and the result summary go to stderr.
func executeReplay(parent context.Context, choice *replayChoice, stdout, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level := zapcore.InfoLevel
	if choice.verbose {
		level = zapcore.DebugLevel
	}
	logger := log.NewLoggerWithWriter(choice.meta, stderr, level)
	defer func() { _ = logger.Sync() }()

	if choice.unordered {
		logger.Warn("no order table configured, replaying shards in index order", map[string]any{
			"shards": choice.dataset.Count,
		})
	}

	sink, err := buildSink(ctx, choice.storage, choice.meta, time.Now(), choice.engine.Mode.Rasterizes())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize output: %v", err), runtime.ExitCodeSinkError)
	}
	defer func() { _ = sink.Close() }()

	collector := metrics.NewCollector(string(choice.meta.Mode), choice.meta.Dataset, choice.storage.backend, choice.meta.RunID)

	orchestrator, err := runtime.NewRunOrchestrator(&runtime.RunConfig{
		RunMeta:   choice.meta,
		Dataset:   choice.dataset,
		Table:     choice.table,
		Engine:    choice.engine,
		Writer:    sink.writer,
		Out:       stdout,
		Prefetch:  choice.prefetch,
		Summary:   sink.summary,
		Collector: collector,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	orchestrator.WithLogger(logger)

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if result.Outcome.Status == types.OutcomeSuccess {
		printModeTotal(stdout, choice.meta.Mode, result.Counts)
	}

	sugar := logger.Sugar()
	if choice.report != "" {
		report := runtime.BuildRunReport(result, collector.Snapshot())
		if err := runtime.WriteRunReport(report, choice.report); err != nil {
			sugar.Warnf("run report write failed: %v", err)
		}
	}

	if choice.adapter.typ != "" {
		event := buildRunCompletedEvent(result, sink.storagePath)
		if err := publishRunCompleted(ctx, choice.adapter, event); err != nil {
			sugar.With("adapter", choice.adapter.typ).Warnf("adapter publish failed (best effort): %v", err)
		}
	}

	if !choice.quiet {
		printRunResult(stderr, result, sink.storagePath)
	}

	return cli.Exit("", runtime.ExitCode(result.Outcome.Status))
}

// printModeTotal writes the closing line each mode reports on stdout.
func printModeTotal(w io.Writer, mode types.Mode, counts metrics.ReplayCounts) {
	switch mode {
	case types.ModeCount:
		fmt.Fprintf(w, "Count: %d\n", counts.Accepted)
	case types.ModeFind:
		fmt.Fprintf(w, "Total: %d\n", counts.Accepted)
	case types.ModeAgent:
		fmt.Fprintf(w, "Duplicate Positions: %d\n", counts.Duplicates)
	}
}

func printRunResult(w io.Writer, result *runtime.RunResult, storagePath string) {
	fmt.Fprintf(w, "\nrun_id=%s, mode=%s, outcome=%s, duration=%s\n",
		result.RunMeta.RunID,
		result.RunMeta.Mode,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Fprintf(w, "\n=== Run Result ===\n")
	fmt.Fprintf(w, "Run ID:         %s\n", result.RunMeta.RunID)
	fmt.Fprintf(w, "Dataset:        %s\n", result.RunMeta.Dataset)
	fmt.Fprintf(w, "Outcome:        %s\n", result.Outcome.Status)
	fmt.Fprintf(w, "Message:        %s\n", result.Outcome.Message)
	fmt.Fprintf(w, "Shards:         %d\n", result.Shards)
	if storagePath != "" {
		fmt.Fprintf(w, "Storage:        %s\n", storagePath)
	}

	counts := result.Counts
	fmt.Fprintf(w, "\n=== Replay ===\n")
	fmt.Fprintf(w, "Lines:          %d\n", counts.Lines)
	fmt.Fprintf(w, "Accepted:       %d\n", counts.Accepted)
	fmt.Fprintf(w, "Out of bounds:  %d\n", counts.OutOfBounds)
	fmt.Fprintf(w, "Rects skipped:  %d\n", counts.RectsSkipped)
	if result.RunMeta.Mode.RequiresAgent() {
		fmt.Fprintf(w, "Agent filtered: %d\n", counts.AgentFiltered)
		fmt.Fprintf(w, "Duplicates:     %d\n", counts.Duplicates)
	}
	if result.RunMeta.Mode.Rasterizes() {
		fmt.Fprintf(w, "Frames:         %d\n", counts.Frames)
	}
	if counts.Regressions > 0 {
		fmt.Fprintf(w, "Regressions:    %d\n", counts.Regressions)
	}
}
