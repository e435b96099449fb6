package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/placeback/canvas"
	"github.com/pithecene-io/placeback/order"
	"github.com/pithecene-io/placeback/shard"
)

// DefaultPath is the config file picked up when --config is not given.
const DefaultPath = "placeback.yaml"

// Config represents a placeback.yaml configuration file.
// All values are optional and act as defaults for the replay command flags.
// CLI flags always override config values.
type Config struct {
	Dataset    DatasetConfig  `yaml:"dataset"`
	Order      []int          `yaml:"order,omitempty"`
	Bounds     *canvas.Bounds `yaml:"bounds,omitempty"`
	Spacing    int64          `yaml:"spacing"`
	Agent      string         `yaml:"agent"`
	Background string         `yaml:"background"`
	Palette    []string       `yaml:"palette,omitempty"`
	Prefetch   int            `yaml:"prefetch"`
	Output     OutputConfig   `yaml:"output"`
	Adapter    AdapterConfig  `yaml:"adapter"`
}

// DatasetConfig locates the shard files.
type DatasetConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
	Shards int    `yaml:"shards"`
	Pad    int    `yaml:"pad"`
}

// OutputConfig selects where raster frames and run summaries go.
type OutputConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ShardDataset converts the dataset section. A zero shard count is left
// for the caller to fill from the order table.
func (c *Config) ShardDataset() shard.Dataset {
	ds := shard.Dataset{
		Dir:    c.Dataset.Dir,
		Prefix: c.Dataset.Prefix,
		Count:  c.Dataset.Shards,
		Pad:    c.Dataset.Pad,
	}
	if ds.Count == 0 {
		ds.Count = len(c.Order)
	}
	return ds
}

// OrderTable returns the configured table, or the identity table over n
// shards when none is configured.
func (c *Config) OrderTable(n int) (order.Table, error) {
	if len(c.Order) == 0 {
		return order.Identity(n), nil
	}
	t := order.Table(c.Order)
	if err := t.Validate(n); err != nil {
		return nil, err
	}
	return t, nil
}

// ColourPalette returns the configured palette, or the 2022 palette.
func (c *Config) ColourPalette() (*canvas.Palette, error) {
	if len(c.Palette) == 0 {
		return canvas.Palette2022(), nil
	}
	p, err := canvas.NewPalette(canvas.ParseKeys(c.Palette))
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	return p, nil
}

// BackgroundColour parses the background, defaulting to white.
func (c *Config) BackgroundColour() (canvas.RGB, error) {
	if c.Background == "" {
		return canvas.Gray(0xFF), nil
	}
	col, err := canvas.ParseHex(c.Background)
	if err != nil {
		return canvas.RGB{}, fmt.Errorf("background: %w", err)
	}
	return col, nil
}

// Validate checks the values that can be judged without flags.
func (c *Config) Validate() error {
	if c.Dataset.Shards < 0 {
		return fmt.Errorf("dataset.shards must be >= 0, got %d", c.Dataset.Shards)
	}
	if c.Dataset.Shards > 0 && len(c.Order) > 0 && len(c.Order) != c.Dataset.Shards {
		return fmt.Errorf("order lists %d shards, dataset.shards is %d", len(c.Order), c.Dataset.Shards)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("spacing must be >= 0, got %d", c.Spacing)
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must be >= 0, got %d", c.Prefetch)
	}
	if c.Bounds != nil {
		if err := c.Bounds.Validate(); err != nil {
			return err
		}
	}
	switch c.Output.Backend {
	case "", "dir", "fs", "s3":
	default:
		return fmt.Errorf("output.backend must be dir, fs or s3, got %q", c.Output.Backend)
	}
	switch c.Adapter.Type {
	case "", "redis", "webhook":
	default:
		return fmt.Errorf("adapter.type must be redis or webhook, got %q", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return errors.New("adapter.retries must be >= 0")
	}
	return nil
}
