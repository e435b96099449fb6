package cmd

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/placeback/cli/render"
	"github.com/pithecene-io/placeback/normalize"
	"github.com/pithecene-io/placeback/runtime"
	"github.com/pithecene-io/placeback/shard"
)

// SortCommand returns the sort command, which rewrites shards in
// chronological order.
func SortCommand() *cli.Command {
	return &cli.Command{
		Name:      "sort",
		Usage:     "Rewrite shards with records in chronological order",
		ArgsUsage: "[INDEX...]",
		Flags: append(append(datasetFlags(), ReadOnlyFlags()...),
			&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Usage: "Directory for sorted shards (default: replace in place)"},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Shards sorted concurrently", Value: 1},
		),
		Action: sortAction,
	}
}

// CheckCommand returns the check command, which reports shards whose
// records are out of chronological order.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report shards whose records are out of chronological order",
		ArgsUsage: "[INDEX...]",
		Flags: append(append(datasetFlags(), ReadOnlyFlags()...),
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Shards checked concurrently", Value: 1},
		),
		Action: checkAction,
	}
}

func sortAction(c *cli.Context) error {
	ds, indices, r, err := shardCommandSetup(c)
	if err != nil {
		return err
	}
	outDir := c.String("out-dir")
	if outDir == "" {
		outDir = ds.Dir
	}

	stats := make([]normalize.Stats, len(indices))
	err = eachShard(c, indices, func(i, index int) error {
		s, err := normalize.NormalizeFile(ds, index, outDir)
		stats[i] = s
		return err
	})
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}
	return r.Render(stats)
}

func checkAction(c *cli.Context) error {
	ds, indices, r, err := shardCommandSetup(c)
	if err != nil {
		return err
	}

	results := make([]normalize.CheckResult, len(indices))
	err = eachShard(c, indices, func(i, index int) error {
		lines, err := ds.Open(index)
		if err != nil {
			return err
		}
		defer func() { _ = lines.Close() }()
		results[i], err = normalize.Check(index, lines)
		return err
	})
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}
	if err := r.Render(results); err != nil {
		return err
	}
	for _, res := range results {
		if !res.Sorted() {
			return cli.Exit("", runtime.ExitCodeFormatError)
		}
	}
	return nil
}

func shardCommandSetup(c *cli.Context) (shard.Dataset, []int, *render.Renderer, error) {
	if c.Bool("tui") {
		return shard.Dataset{}, nil, nil, cli.Exit(fmt.Sprintf("--tui is not supported for %s command", c.Command.Name), 1)
	}
	if c.Int("parallel") < 1 {
		return shard.Dataset{}, nil, nil, fmt.Errorf("--parallel must be >= 1, got %d", c.Int("parallel"))
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return shard.Dataset{}, nil, nil, err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return shard.Dataset{}, nil, nil, err
	}
	ds, err := resolveDataset(c, cfg)
	if err != nil {
		return shard.Dataset{}, nil, nil, err
	}
	indices, err := parseShardIndices(c.Args().Slice(), ds.Count)
	if err != nil {
		return shard.Dataset{}, nil, nil, err
	}
	return ds, indices, r, nil
}

// parseShardIndices parses positional shard indices. No arguments selects
// every shard.
func parseShardIndices(args []string, count int) ([]int, error) {
	if len(args) == 0 {
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	indices := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid shard index %q", a)
		}
		if n < 0 || n >= count {
			return nil, fmt.Errorf("shard index %d out of range [0, %d)", n, count)
		}
		indices = append(indices, n)
	}
	return indices, nil
}

// eachShard runs fn for every index with at most --parallel in flight.
// The first error cancels the remaining shards.
func eachShard(c *cli.Context, indices []int, fn func(i, index int) error) error {
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(c.Int("parallel"))
	for i, index := range indices {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error { return fn(i, index) })
	}
	return g.Wait()
}

// exitCodeFor maps shard errors to the run exit codes.
func exitCodeFor(err error) int {
	if shard.IsResourceError(err) {
		return runtime.ExitCodeResourceError
	}
	return runtime.ExitCodeFormatError
}
