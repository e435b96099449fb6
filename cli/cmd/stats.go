package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/cli/reader"
	"github.com/pithecene-io/placeback/cli/render"
	"github.com/pithecene-io/placeback/cli/tui"
	"github.com/pithecene-io/placeback/lode"
)

// listWarningThreshold is the number of runs above which we suggest --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// StatsCommand returns the stats command with subcommands. Stats read
// run summaries written by the fs and s3 backends.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show stored run summaries (latest, runs, list)",
		Subcommands: []*cli.Command{
			statsLatestCommand(),
			statsRunsCommand(),
			statsListCommand(),
		},
	}
}

func summaryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3", Value: backendFS},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)", Required: true},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Use path-style S3 addressing"},
		&cli.StringFlag{Name: "run-id", Usage: "Only runs with this run ID"},
		&cli.StringFlag{Name: "mode", Usage: "Only runs of this mode"},
	}
}

func statsLatestCommand() *cli.Command {
	return &cli.Command{
		Name:   "latest",
		Usage:  "Show the most recent run",
		Flags:  append(TUIReadOnlyFlags(), summaryFlags()...),
		Action: statsLatestAction,
	}
}

func statsLatestAction(c *cli.Context) error {
	return withSummaryReader(c, func(ctx context.Context, rd reader.Reader, r *render.Renderer) error {
		view, err := rd.LatestRun(ctx, summaryFilter(c))
		if errors.Is(err, lode.ErrNoSummaryFound) {
			return cli.Exit("no matching run summary found", 1)
		}
		if err != nil {
			return fmt.Errorf("failed to read run summary: %w", err)
		}
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewStatsLatest, view)
		}
		return r.Render(view)
	})
}

func statsRunsCommand() *cli.Command {
	return &cli.Command{
		Name:   "runs",
		Usage:  "Show aggregated run statistics",
		Flags:  append(TUIReadOnlyFlags(), summaryFlags()...),
		Action: statsRunsAction,
	}
}

func statsRunsAction(c *cli.Context) error {
	return withSummaryReader(c, func(ctx context.Context, rd reader.Reader, r *render.Renderer) error {
		stats, err := rd.Stats(ctx, summaryFilter(c))
		if err != nil {
			return fmt.Errorf("failed to read run summaries: %w", err)
		}
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewStatsRuns, stats)
		}
		return r.Render(stats)
	})
}

func statsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored runs, most recent first",
		Flags: append(append(ReadOnlyFlags(), summaryFlags()...),
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs to list"},
		),
		Action: statsListAction,
	}
}

func statsListAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for stats list command", 1)
	}
	if c.Int("limit") < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", c.Int("limit"))
	}
	return withSummaryReader(c, func(ctx context.Context, rd reader.Reader, r *render.Renderer) error {
		items, err := rd.ListRuns(ctx, summaryFilter(c))
		if err != nil {
			return fmt.Errorf("failed to read run summaries: %w", err)
		}
		limit := c.Int("limit")
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		if len(items) > listWarningThreshold && limit == 0 && isStderrTTY() {
			fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(items))
		}
		return r.Render(items)
	})
}

func summaryFilter(c *cli.Context) reader.Filter {
	return reader.Filter{RunID: c.String("run-id"), Mode: c.String("mode")}
}

// withSummaryReader opens the summary dataset and runs fn under
// defaultSummaryTimeout.
func withSummaryReader(c *cli.Context, fn func(context.Context, reader.Reader, *render.Renderer) error) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, defaultSummaryTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, storageChoice{
		dataset:     c.String("storage-dataset"),
		backend:     c.String("storage-backend"),
		path:        c.String("storage-path"),
		region:      c.String("storage-region"),
		endpoint:    c.String("storage-endpoint"),
		s3PathStyle: c.Bool("storage-s3-path-style"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage reader: %w", err)
	}
	return fn(ctx, reader.NewLodeReader(ds), r)
}

// buildReadDataset creates a Lode Dataset for reading stored summaries.
func buildReadDataset(ctx context.Context, sc storageChoice) (lodelibrary.Dataset, error) {
	switch sc.backend {
	case backendFS:
		return lode.NewReadDatasetFS(sc.dataset, sc.path)
	case backendS3:
		bucket, prefix := lode.ParseS3Path(sc.path)
		return lode.NewReadDatasetS3(ctx, sc.dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.region,
			Endpoint:     sc.endpoint,
			UsePathStyle: sc.s3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage-backend: %s (must be fs or s3)", sc.backend)
	}
}
