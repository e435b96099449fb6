// Package artifact stores the raster images a reconstruction produces.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pithecene-io/placeback/iox"
	"github.com/pithecene-io/placeback/metrics"
)

// ContentTypePNG is the content type of every raster artifact.
const ContentTypePNG = "image/png"

// AgentImageName is the file name of the agent overlay image.
const AgentImageName = "agent.png"

// FrameName returns the file name of cadence frame tag.
func FrameName(tag int64) string {
	return fmt.Sprintf("image%08d.png", tag)
}

// Writer persists named artifacts.
type Writer interface {
	// PutFile stores data under filename, replacing any previous file of
	// that name. The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// ValidateFilename rejects names that could escape the artifact root.
func ValidateFilename(name string) error {
	if name == "" {
		return errors.New("artifact filename must be non-empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("artifact filename %q must not contain path separators or ..", name)
	}
	return nil
}

// DirWriter writes artifacts as files in a local directory.
type DirWriter struct {
	dir string
}

// NewDirWriter creates dir if needed and returns a writer into it.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

// Dir returns the target directory.
func (w *DirWriter) Dir() string { return w.dir }

// PutFile writes data to a temp file and renames it into place, so a
// reader never observes a partially written image.
func (w *DirWriter) PutFile(_ context.Context, filename, _ string, data []byte) (err error) {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(w.dir, "."+filename+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		iox.DiscardClose(tmp)
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(w.dir, filename))
}

// StubWriter records PutFile calls for testing.
type StubWriter struct {
	mu    sync.Mutex
	Files []StubFile
	// FailOn, if set, makes PutFile fail for that filename.
	FailOn string
}

// StubFile is a recorded file write.
type StubFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewStubWriter creates a new stub writer.
func NewStubWriter() *StubWriter {
	return &StubWriter{}
}

// PutFile records the call. Data is copied.
func (w *StubWriter) PutFile(_ context.Context, filename, contentType string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailOn != "" && filename == w.FailOn {
		return fmt.Errorf("stub write of %s failed", filename)
	}
	w.Files = append(w.Files, StubFile{
		Filename:    filename,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	})
	return nil
}

// Names returns the recorded filenames in write order.
func (w *StubWriter) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, len(w.Files))
	for i, f := range w.Files {
		names[i] = f.Filename
	}
	return names
}

// InstrumentedWriter wraps a Writer and counts write outcomes on a
// metrics collector, one count per file.
type InstrumentedWriter struct {
	inner     Writer
	collector *metrics.Collector
}

// NewInstrumentedWriter wraps w with metrics instrumentation.
func NewInstrumentedWriter(w Writer, collector *metrics.Collector) *InstrumentedWriter {
	return &InstrumentedWriter{inner: w, collector: collector}
}

// PutFile delegates to the inner writer and records success or failure.
func (w *InstrumentedWriter) PutFile(ctx context.Context, filename, contentType string, data []byte) error {
	err := w.inner.PutFile(ctx, filename, contentType, data)
	if err != nil {
		w.collector.IncArtifactWriteFailure()
	} else {
		w.collector.IncArtifactWriteSuccess()
	}
	return err
}

var (
	_ Writer = (*DirWriter)(nil)
	_ Writer = (*StubWriter)(nil)
	_ Writer = (*InstrumentedWriter)(nil)
)
