package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/cli/config"
)

// newTestCLIContext builds a context with string flags. Only flagValues
// count as explicitly set.
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"prefix": "cli-val"}, nil)
	if got := resolveString(c, "prefix", "config-val"); got != "cli-val" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"prefix": "flag-default"})
	if got := resolveString(c, "prefix", "config-val"); got != "config-val" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveString_FlagDefault(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"storage-backend": "dir"})
	if got := resolveString(c, "storage-backend", ""); got != "dir" {
		t.Errorf("expected flag default, got %q", got)
	}
}

func TestConfigVal_NilConfig(t *testing.T) {
	if got := configVal(nil, func(c *config.Config) string { return c.Agent }); got != "" {
		t.Errorf("expected empty for nil config, got %q", got)
	}
}

func TestConfigVal_NonNil(t *testing.T) {
	cfg := &config.Config{Agent: "from-config"}
	if got := configVal(cfg, func(c *config.Config) string { return c.Agent }); got != "from-config" {
		t.Errorf("expected from-config, got %q", got)
	}
}

func TestResolveInt_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "prefetch"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("prefetch", 0, "")
	_ = fs.Set("prefetch", "0")
	c := cli.NewContext(app, fs, nil)

	// An explicit zero beats the config value.
	if got := resolveInt(c, "prefetch", 4); got != 0 {
		t.Errorf("expected CLI to win with 0, got %d", got)
	}
}

func TestResolveInt_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "prefetch"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("prefetch", 0, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt(c, "prefetch", 4); got != 4 {
		t.Errorf("expected config fallback 4, got %d", got)
	}
}

func TestResolveInt64_FlagDefault(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.Int64Flag{Name: "spacing", Value: 100}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int64("spacing", 100, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt64(c, "spacing", 0); got != 100 {
		t.Errorf("expected flag default 100, got %d", got)
	}
	if got := resolveInt64(c, "spacing", 25); got != 25 {
		t.Errorf("expected config 25, got %d", got)
	}
}

func TestResolveBool_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "storage-s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("storage-s3-path-style", false, "")
	_ = fs.Set("storage-s3-path-style", "false")
	c := cli.NewContext(app, fs, nil)

	if resolveBool(c, "storage-s3-path-style", true) {
		t.Error("expected explicit CLI false to win")
	}
}

func TestResolveBool_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "storage-s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("storage-s3-path-style", false, "")
	c := cli.NewContext(app, fs, nil)

	if !resolveBool(c, "storage-s3-path-style", true) {
		t.Error("expected config true")
	}
}

func TestResolveDuration_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "adapter-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	_ = fs.Set("adapter-timeout", "30s")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}
}

func TestResolveDuration_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "adapter-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 10*time.Second {
		t.Errorf("expected config fallback 10s, got %v", got)
	}
}

func TestLoadConfig_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("agent: from-default\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	c := newTestCLIContext(t, nil, map[string]string{"config": ""})
	cfg, err := loadConfig(c)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Agent != "from-default" {
		t.Errorf("Agent = %q, want from-default", cfg.Agent)
	}
}
