package runtime

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/placeback/artifact"
	"github.com/pithecene-io/placeback/canvas"
	"github.com/pithecene-io/placeback/log"
	"github.com/pithecene-io/placeback/metrics"
	"github.com/pithecene-io/placeback/record"
	"github.com/pithecene-io/placeback/source"
	"github.com/pithecene-io/placeback/types"
)

// State is the engine lifecycle state.
type State int

const (
	// StateIdle is the state before Start.
	StateIdle State = iota
	// StateStreaming accepts records.
	StateStreaming
	// StateDone is terminal, reached by Finish or by a fatal error.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidState is returned when an engine operation is called in the
// wrong lifecycle state.
var ErrInvalidState = errors.New("invalid engine state")

// EngineConfig configures one reconstruction.
type EngineConfig struct {
	// Mode selects what the run produces.
	Mode types.Mode
	// Bounds is the half-open window records must fall in. Ignored by ModeFind.
	Bounds canvas.Bounds
	// Spacing is the number of accepted records between frames. Required
	// for ModeTimelapse; zero disables cadence frames in ModeAgent.
	Spacing int64
	// Agent restricts accepted records to one agent id. Required for
	// ModeAgent and ModeFind, optional otherwise.
	Agent string
	// Background fills the canvas before replay.
	Background canvas.RGB
	// Palette maps colour keys to RGB. Required when the mode rasterizes.
	Palette *canvas.Palette
	// FlushFinal emits a last timelapse frame when records were accepted
	// after the last cadence frame.
	FlushFinal bool
}

// Validate checks the configuration against the mode's requirements.
func (c *EngineConfig) Validate() error {
	if _, err := types.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Mode.UsesBounds() {
		if err := c.Bounds.Validate(); err != nil {
			return err
		}
	}
	if c.Mode.RequiresAgent() && c.Agent == "" {
		return fmt.Errorf("mode %s requires an agent id", c.Mode)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("spacing must be >= 0, got %d", c.Spacing)
	}
	if c.Mode == types.ModeTimelapse && c.Spacing == 0 {
		return errors.New("timelapse requires spacing >= 1")
	}
	if c.Mode.Rasterizes() && c.Palette == nil {
		return fmt.Errorf("mode %s requires a palette", c.Mode)
	}
	return nil
}

// LineSource delivers dataset lines in global order.
type LineSource interface {
	Each(ctx context.Context, fn source.LineFunc) error
}

// Engine replays records in order and applies them to the run's outputs.
// It is single-threaded: Apply must not be called concurrently.
type Engine struct {
	cfg    EngineConfig
	state  State
	canvas *canvas.Canvas
	writer artifact.Writer
	out    *bufio.Writer
	logger *log.Logger
	agent  []byte

	counts  metrics.ReplayCounts
	index   int64
	lastTag int64
	pending bool
	seen    map[record.Point]struct{}

	prevMillis   int64
	regressShard int
	err          error
	png          bytes.Buffer
}

// NewEngine creates an engine. writer receives raster artifacts and may be
// nil for modes that do not rasterize; out receives printed records and may
// be nil for modes that do not print.
func NewEngine(cfg EngineConfig, writer artifact.Writer, out io.Writer, logger *log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.Mode.Rasterizes() && writer == nil {
		return nil, fmt.Errorf("mode %s requires an artifact writer", cfg.Mode)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if out == nil {
		out = io.Discard
	}

	e := &Engine{
		cfg:          cfg,
		writer:       writer,
		out:          bufio.NewWriter(out),
		logger:       logger,
		regressShard: -1,
	}
	if cfg.Agent != "" {
		e.agent = []byte(cfg.Agent)
	}
	if cfg.Mode == types.ModeAgent {
		e.seen = make(map[record.Point]struct{})
	}
	return e, nil
}

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Counts returns the replay counters so far.
func (e *Engine) Counts() metrics.ReplayCounts { return e.counts }

// Canvas returns the raster, or nil before Start or in non-raster modes.
func (e *Engine) Canvas() *canvas.Canvas { return e.canvas }

// Start allocates the canvas and moves the engine to StateStreaming.
func (e *Engine) Start() error {
	if e.state != StateIdle {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, e.state)
	}
	if e.cfg.Mode.Rasterizes() {
		c, err := canvas.New(e.cfg.Bounds, e.cfg.Background)
		if err != nil {
			return err
		}
		e.canvas = c
	}
	e.state = StateStreaming
	return nil
}

// Apply decodes one line and applies it. Any error is fatal: the engine
// moves to StateDone and emits nothing further.
func (e *Engine) Apply(ctx context.Context, pos source.Position, line []byte) error {
	if e.state != StateStreaming {
		return fmt.Errorf("%w: apply in state %s", ErrInvalidState, e.state)
	}
	if err := e.apply(ctx, pos, line); err != nil {
		e.fail(err)
		return err
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, pos source.Position, line []byte) error {
	e.counts.Lines++

	r, err := record.Parse(line)
	if err != nil {
		return record.Locate(err, pos.Shard, pos.Line)
	}
	t, err := r.Time()
	if err != nil {
		return record.Locate(err, pos.Shard, pos.Line)
	}
	e.trackOrder(pos, t.UnixMilli())

	loc, err := r.Location()
	if err != nil {
		return record.Locate(err, pos.Shard, pos.Line)
	}

	if e.cfg.Mode == types.ModeFind {
		if !r.AgentIs(e.agent) {
			e.counts.AgentFiltered++
			return nil
		}
		e.counts.Accepted++
		return e.print(&r)
	}

	p, ok := loc.Point()
	if !ok {
		e.counts.RectsSkipped++
		return nil
	}
	if !e.cfg.Bounds.Contains(p) {
		e.counts.OutOfBounds++
		return nil
	}
	if e.agent != nil && !r.AgentIs(e.agent) {
		e.counts.AgentFiltered++
		return nil
	}

	switch e.cfg.Mode {
	case types.ModeCount:
		e.counts.Accepted++
		return nil
	case types.ModePrint:
		e.counts.Accepted++
		return e.print(&r)
	}

	col, ok := e.cfg.Palette.Lookup(r.Colour())
	if !ok {
		return (&record.FormatError{Reason: "unknown colour " + string(r.Colour()), Text: string(line)}).At(pos.Shard, pos.Line)
	}
	if e.seen != nil {
		if _, dup := e.seen[p]; dup {
			e.counts.Duplicates++
		} else {
			e.seen[p] = struct{}{}
		}
	}
	e.canvas.Set(p, col)
	e.pending = true

	idx := e.index
	e.index++
	e.counts.Accepted++
	if e.cfg.Spacing > 0 && idx%e.cfg.Spacing == 0 {
		tag := idx / e.cfg.Spacing
		if err := e.emit(ctx, artifact.FrameName(tag)); err != nil {
			return err
		}
		e.lastTag = tag
		e.pending = false
	}
	return nil
}

// trackOrder counts global timestamp regressions, logging the first one
// seen in each shard.
func (e *Engine) trackOrder(pos source.Position, ms int64) {
	if e.counts.Lines > 1 && ms < e.prevMillis {
		e.counts.Regressions++
		if pos.Shard != e.regressShard {
			e.regressShard = pos.Shard
			e.logger.Warn("timestamp regression", map[string]any{
				"shard": pos.Shard,
				"line":  pos.Line,
			})
		}
	}
	e.prevMillis = ms
}

func (e *Engine) print(r *record.Record) error {
	if _, err := e.out.WriteString(r.String()); err != nil {
		return err
	}
	return e.out.WriteByte('\n')
}

func (e *Engine) emit(ctx context.Context, name string) error {
	e.png.Reset()
	if err := e.canvas.EncodePNG(&e.png); err != nil {
		return &SinkError{Filename: name, Err: err}
	}
	if err := e.writer.PutFile(ctx, name, artifact.ContentTypePNG, e.png.Bytes()); err != nil {
		return &SinkError{Filename: name, Err: err}
	}
	e.counts.Frames++
	return nil
}

func (e *Engine) fail(err error) {
	e.err = err
	e.state = StateDone
	_ = e.out.Flush()
}

// Finish flushes pending output and moves the engine to StateDone. After
// a fatal error it returns that error and writes nothing.
func (e *Engine) Finish(ctx context.Context) error {
	if e.err != nil {
		return e.err
	}
	if e.state != StateStreaming {
		return fmt.Errorf("%w: finish in state %s", ErrInvalidState, e.state)
	}

	var err error
	switch {
	case e.cfg.Mode == types.ModeAgent:
		err = e.emit(ctx, artifact.AgentImageName)
	case e.cfg.Mode == types.ModeTimelapse && e.cfg.FlushFinal && e.pending:
		err = e.emit(ctx, artifact.FrameName(e.lastTag+1))
	}
	if err != nil {
		e.fail(err)
		return err
	}
	e.pending = false
	e.state = StateDone
	return e.out.Flush()
}

// Run drives the engine over src from Start to Finish.
func (e *Engine) Run(ctx context.Context, src LineSource) error {
	if err := e.Start(); err != nil {
		return err
	}
	err := src.Each(ctx, func(pos source.Position, line []byte) error {
		return e.Apply(ctx, pos, line)
	})
	if err != nil {
		if e.err == nil {
			e.fail(err)
		}
		return err
	}
	return e.Finish(ctx)
}
