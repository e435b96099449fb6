package cmd

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/cli/config"
	"github.com/pithecene-io/placeback/shard"
)

// Flag precedence: an explicitly set flag wins, then a non-zero config
// value, then the flag's own default.

func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveInt64(c *cli.Context, name string, cfgVal int64) int64 {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int64(name)
	}
	return cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// configVal reads a field from a possibly nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

// loadConfig loads --config, or placeback.yaml from the working directory
// when it exists.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.LoadDefault(c.String("config"))
}

// resolveDataset resolves the dataset flags. The shard count falls back
// to the config file, then to the length of its order table.
func resolveDataset(c *cli.Context, cfg *config.Config) (shard.Dataset, error) {
	ds := shard.Dataset{
		Dir:    resolveString(c, "dir", configVal(cfg, func(c *config.Config) string { return c.Dataset.Dir })),
		Prefix: resolveString(c, "prefix", configVal(cfg, func(c *config.Config) string { return c.Dataset.Prefix })),
		Count:  resolveInt(c, "shards", configVal(cfg, func(c *config.Config) int { return c.ShardDataset().Count })),
		Pad:    resolveInt(c, "pad", configVal(cfg, func(c *config.Config) int { return c.Dataset.Pad })),
	}
	if ds.Count == 0 {
		return ds, errors.New("--shards is required (or set dataset.shards or order in the config file)")
	}
	return ds, ds.Validate()
}
