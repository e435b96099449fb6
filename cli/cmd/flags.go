// Package cmd provides the placeback CLI commands.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode (stats only).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (stats only)",
	}

	// ConfigFlag points at a placeback.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./placeback.yaml when present)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// --tui is registered everywhere so unsupported commands can reject it
// with a clear message instead of "flag provided but not defined".
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// TUIReadOnlyFlags returns flags for commands that support TUI mode.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// datasetFlags locate the shard files.
func datasetFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory holding the shard files", Value: "."},
		&cli.StringFlag{Name: "prefix", Usage: "Shard file name prefix", Value: "2022_place_canvas_history"},
		&cli.IntFlag{Name: "shards", Usage: "Number of shards (default: length of the configured order table)"},
		&cli.IntFlag{Name: "pad", Usage: "Zero-padded width of shard indices in file names", Value: 12},
	}
}

// storageFlags select where frames and summaries are stored.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Lode dataset ID", Value: "placeback"},
		&cli.StringFlag{Name: "storage-backend", Usage: "Output backend: dir, fs or s3", Value: "dir"},
		&cli.StringFlag{Name: "storage-path", Usage: "Output path (dir/fs: directory, s3: bucket/prefix)", Value: "images"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for the s3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Use path-style S3 addressing"},
	}
}

// adapterFlags configure the run-completed notification.
func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "adapter", Usage: "Run-completed adapter: redis or webhook"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Adapter endpoint (redis:// URL or webhook URL)"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis channel name"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as key=value (repeatable)"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt adapter timeout (default: 5s redis, 10s webhook)"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Adapter retry attempts (default 3)"},
	}
}

// replayFlags are shared by every reconstruction command.
func replayFlags() []cli.Flag {
	flags := datasetFlags()
	flags = append(flags,
		&cli.StringFlag{Name: "run-id", Usage: "Run ID (default: random UUID)"},
		&cli.IntFlag{Name: "prefetch", Usage: "Shards decoded ahead of the replay (0 reads serially)"},
		&cli.StringFlag{Name: "background", Usage: "Canvas background colour as #RRGGBB", Value: defaultBackground},
		&cli.StringFlag{Name: "report", Usage: "Write a JSON run report to this path (- for stderr)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress the result summary on stderr"},
		&cli.BoolFlag{Name: "verbose", Usage: "Log per-shard progress"},
	)
	flags = append(flags, storageFlags()...)
	return append(flags, adapterFlags()...)
}

// defaultSummaryTimeout bounds reads of stored summaries.
const defaultSummaryTimeout = 30 * time.Second
