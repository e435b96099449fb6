package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/artifact"
	"github.com/pithecene-io/placeback/cli/config"
	"github.com/pithecene-io/placeback/lode"
	"github.com/pithecene-io/placeback/runtime"
	"github.com/pithecene-io/placeback/types"
)

// Storage backends.
const (
	backendDir = "dir"
	backendFS  = "fs"
	backendS3  = "s3"
)

// storageChoice holds the resolved output selection.
type storageChoice struct {
	dataset     string
	backend     string
	path        string
	region      string
	endpoint    string
	s3PathStyle bool
}

func resolveStorageChoice(c *cli.Context, cfg *config.Config) storageChoice {
	return storageChoice{
		dataset:     c.String("storage-dataset"),
		backend:     resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Output.Backend })),
		path:        resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Output.Path })),
		region:      resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Output.Region })),
		endpoint:    resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Output.Endpoint })),
		s3PathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Output.S3PathStyle })),
	}
}

func validateStorageChoice(sc storageChoice) error {
	switch sc.backend {
	case backendDir, backendFS:
	case backendS3:
		if bucket, _ := lode.ParseS3Path(sc.path); bucket == "" {
			return fmt.Errorf("--storage-path must name a bucket for the s3 backend")
		}
	default:
		return fmt.Errorf("--storage-backend must be dir, fs or s3, got %q", sc.backend)
	}
	if sc.path == "" {
		return fmt.Errorf("--storage-path is required")
	}
	if sc.backend != backendDir && sc.dataset == "" {
		return fmt.Errorf("--storage-dataset is required for the %s backend", sc.backend)
	}
	if sc.backend != backendS3 && (sc.endpoint != "" || sc.s3PathStyle) {
		return fmt.Errorf("--storage-endpoint and --storage-s3-path-style require --storage-backend s3")
	}
	return nil
}

// sink bundles the artifact writer and summary writer of one run.
type sink struct {
	writer      artifact.Writer
	summary     runtime.SummaryWriter
	storagePath string
	close       func() error
}

func (s *sink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// buildSink opens the output backend. needWriter is false for modes
// that never rasterize; the dir backend then opens nothing.
func buildSink(ctx context.Context, sc storageChoice, meta *types.RunMeta, startedAt time.Time, needWriter bool) (*sink, error) {
	lodeCfg := lode.Config{
		Dataset: sc.dataset,
		Mode:    string(meta.Mode),
		Day:     lode.DeriveDay(startedAt),
		RunID:   meta.RunID,
	}

	switch sc.backend {
	case backendDir:
		if !needWriter {
			return &sink{}, nil
		}
		w, err := artifact.NewDirWriter(sc.path)
		if err != nil {
			return nil, err
		}
		return &sink{writer: w, storagePath: buildStoragePath(sc, lodeCfg)}, nil

	case backendFS:
		client, err := lode.NewLodeClient(lodeCfg, sc.path)
		if err != nil {
			return nil, err
		}
		return lodeSink(client, sc, lodeCfg, needWriter), nil

	case backendS3:
		bucket, prefix := lode.ParseS3Path(sc.path)
		client, err := lode.NewLodeS3Client(ctx, lodeCfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.region,
			Endpoint:     sc.endpoint,
			UsePathStyle: sc.s3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return lodeSink(client, sc, lodeCfg, needWriter), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.backend)
	}
}

func lodeSink(client *lode.LodeClient, sc storageChoice, cfg lode.Config, needWriter bool) *sink {
	s := &sink{summary: client, storagePath: buildStoragePath(sc, cfg), close: client.Close}
	if needWriter {
		s.writer = client
	}
	return s
}

// buildStoragePath renders where a run's artifacts land, for humans and
// for the run-completed event.
func buildStoragePath(sc storageChoice, cfg lode.Config) string {
	switch sc.backend {
	case backendDir:
		return "file://" + absPath(sc.path)
	case backendFS:
		return "file://" + filepath.Join(absPath(sc.path), filepath.FromSlash(lode.FilesPrefix(cfg)))
	case backendS3:
		bucket, prefix := lode.ParseS3Path(sc.path)
		parts := []string{bucket}
		if prefix = strings.Trim(prefix, "/"); prefix != "" {
			parts = append(parts, prefix)
		}
		parts = append(parts, lode.FilesPrefix(cfg))
		return "s3://" + strings.Join(parts, "/")
	default:
		return lode.FilesPrefix(cfg)
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
