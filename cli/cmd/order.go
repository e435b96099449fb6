package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/cli/render"
	"github.com/pithecene-io/placeback/iox"
	"github.com/pithecene-io/placeback/order"
)

// OrderCommand returns the order command, which derives the replay order
// table from shard time ranges.
func OrderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "Scan shard time ranges and print the replay order table",
		Flags: append(append(datasetFlags(), ReadOnlyFlags()...),
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Shards scanned concurrently (0 = one per CPU)"},
			&cli.StringFlag{Name: "index-out", Usage: "Save scanned intervals to this msgpack index file"},
			&cli.StringFlag{Name: "index-in", Usage: "Resolve from a saved index instead of scanning"},
		),
		Action: orderAction,
	}
}

// orderResult is the rendered output of the order command.
type orderResult struct {
	Dataset   string           `json:"dataset" yaml:"dataset"`
	Order     order.Table      `json:"order" yaml:"order,flow"`
	Intervals []order.Interval `json:"intervals" yaml:"intervals"`
	Warnings  []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func orderAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for order command", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var intervals []order.Interval
	var dataset string
	if path := c.String("index-in"); path != "" {
		idx, err := readIndexFile(path)
		if err != nil {
			return err
		}
		intervals, dataset = idx.Intervals, idx.Dataset
	} else {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ds, err := resolveDataset(c, cfg)
		if err != nil {
			return err
		}
		if c.Int("parallel") < 0 {
			return fmt.Errorf("--parallel must be >= 0, got %d", c.Int("parallel"))
		}
		intervals, err = order.Scan(c.Context, ds, c.Int("parallel"))
		if err != nil {
			return err
		}
		dataset = ds.Prefix
	}

	if path := c.String("index-out"); path != "" {
		if err := writeIndexFile(path, order.Index{Dataset: dataset, Intervals: intervals}); err != nil {
			return err
		}
	}

	table, warnings := order.Resolve(intervals)
	res := orderResult{Dataset: dataset, Order: table, Intervals: intervals}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.String())
	}

	if r.Format() == render.FormatTable {
		for _, w := range res.Warnings {
			fmt.Fprintln(c.App.ErrWriter, "warning:", w)
		}
		fmt.Fprintf(c.App.Writer, "order: %v\n\n", []int(table))
		return r.Render(intervals)
	}
	return r.Render(res)
}

func readIndexFile(path string) (order.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return order.Index{}, fmt.Errorf("cannot open index: %w", err)
	}
	defer iox.DiscardClose(f)
	return order.ReadIndex(f)
}

func writeIndexFile(path string, idx order.Index) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create index: %w", err)
	}
	defer iox.CloseInto(&err, f)
	return order.WriteIndex(f, idx)
}
