package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/adapter"
	redisadapter "github.com/pithecene-io/placeback/adapter/redis"
	"github.com/pithecene-io/placeback/adapter/webhook"
	"github.com/pithecene-io/placeback/cli/config"
	"github.com/pithecene-io/placeback/runtime"
	"github.com/pithecene-io/placeback/types"
)

// Adapter types.
const (
	adapterRedis   = "redis"
	adapterWebhook = "webhook"
)

// adapterChoice holds the resolved run-completed adapter settings.
// An empty typ disables notification.
type adapterChoice struct {
	typ     string
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries int
}

func resolveAdapterChoice(c *cli.Context, cfg *config.Config) (adapterChoice, error) {
	ac := adapterChoice{
		typ:     resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type })),
		url:     resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel: resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		timeout: resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		headers: map[string]string{},
	}
	if ac.typ == "" {
		return ac, nil
	}

	switch {
	case c.IsSet("adapter-retries"):
		ac.retries = c.Int("adapter-retries")
	case cfg != nil && cfg.Adapter.Retries != nil:
		ac.retries = *cfg.Adapter.Retries
	case ac.typ == adapterRedis:
		ac.retries = redisadapter.DefaultRetries
	default:
		ac.retries = webhook.DefaultRetries
	}
	if ac.retries < 0 {
		return ac, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}

	for k, v := range configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }) {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return ac, fmt.Errorf("invalid --adapter-header %q: expected key=value", h)
		}
		ac.headers[strings.TrimSpace(k)] = v
	}

	switch ac.typ {
	case adapterRedis, adapterWebhook:
	default:
		return ac, fmt.Errorf("--adapter must be redis or webhook, got %q", ac.typ)
	}
	if ac.url == "" {
		return ac, fmt.Errorf("--adapter-url is required when --adapter is %s", ac.typ)
	}
	return ac, nil
}

func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	switch ac.typ {
	case adapterRedis:
		return redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case adapterWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.typ)
	}
}

// publishRunCompleted sends the event. It runs detached from ctx so a
// canceled run still reports its outcome.
func publishRunCompleted(ctx context.Context, ac adapterChoice, event *adapter.RunCompletedEvent) error {
	a, err := buildAdapter(ac)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return a.Publish(context.WithoutCancel(ctx), event)
}

func buildRunCompletedEvent(result *runtime.RunResult, storagePath string) *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeRunCompleted,
		RunID:           result.RunMeta.RunID,
		Mode:            string(result.RunMeta.Mode),
		Dataset:         result.RunMeta.Dataset,
		Outcome:         string(result.Outcome.Status),
		Accepted:        result.Counts.Accepted,
		Duplicates:      result.Counts.Duplicates,
		Frames:          result.Counts.Frames,
		StoragePath:     storagePath,
		Timestamp:       result.StartedAt.Add(result.Duration).UTC().Format(time.RFC3339),
		DurationMs:      result.Duration.Milliseconds(),
	}
}
