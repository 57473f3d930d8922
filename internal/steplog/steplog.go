// Package steplog records a run to disk: one trajectory row per simulator
// step, the frames captured at that step, and a free-text diagnostic log.
//
// The step index is owned by the Logger. It starts at zero, grows by one
// per Record call and is the join key between trajectory rows and frame
// files. Nothing is ever rewritten.
package steplog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/logging"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// Entry describes one recorded step for indexers.
type Entry struct {
	Index     int
	Transform geom.Mat4
	// Files maps each captured sensor to its file name under results/.
	Files map[sim.SensorKind]string
}

// Indexer is notified after every recorded step. The run catalog
// implements it.
type Indexer interface {
	IndexStep(ctx context.Context, e Entry) error
}

// Options configures a Logger.
type Options struct {
	// DepthScale multiplies depth in meters before 16-bit encoding.
	DepthScale float64
	// Indexer, when set, receives every recorded step.
	Indexer Indexer
	// Logger receives operational warnings. Nil discards them.
	Logger *slog.Logger
}

// Logger appends step records under a run directory.
type Logger struct {
	mu         sync.Mutex
	dir        string
	resultsDir string
	traj       *os.File
	log        *os.File
	depthScale float64
	indexer    Indexer
	slog       *slog.Logger
	index      int
	logBroken  bool

	// labelsClipped is set after the first saturated semantic frame.
	labelsClipped bool
}

// Open creates dir and dir/results and opens the trajectory and text log
// for append.
func Open(dir string, opts Options) (*Logger, error) {
	resultsDir := filepath.Join(dir, constants.ResultsDir)
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	traj, err := os.OpenFile(filepath.Join(dir, constants.TrajectoryFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, constants.LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		traj.Close()
		return nil, fmt.Errorf("failed to open step log: %w", err)
	}

	scale := opts.DepthScale
	if scale <= 0 {
		scale = constants.DefaultDepthScale
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Logger{
		dir:        dir,
		resultsDir: resultsDir,
		traj:       traj,
		log:        logFile,
		depthScale: scale,
		indexer:    opts.Indexer,
		slog:       logger,
	}, nil
}

// Dir returns the run directory.
func (l *Logger) Dir() string { return l.dir }

// Index returns the index the next Record call will use, which is also the
// number of steps recorded so far.
func (l *Logger) Index() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index
}

// FormatIndex zero-pads a step index.
func FormatIndex(i int) string {
	return fmt.Sprintf("%0*d", constants.StepIndexWidth, i)
}

// FrameName returns the file name of a frame of kind at step i.
func FrameName(kind sim.SensorKind, i int) string {
	switch kind {
	case sim.SensorColor:
		return "frame" + FormatIndex(i) + ".jpg"
	case sim.SensorDepth:
		return "depth" + FormatIndex(i) + ".png"
	default:
		return string(kind) + FormatIndex(i) + ".png"
	}
}

// Record writes the frames present in frames, appends transform to the
// trajectory and returns the index assigned to the step. Absent frames are
// skipped. On error the index is not consumed and no trajectory row is
// written, so a retry reuses the same index and frame names.
func (l *Logger) Record(ctx context.Context, transform geom.Mat4, frames sim.Frames) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index
	files := make(map[sim.SensorKind]string, 3)

	for _, kind := range frames.Kinds() {
		name := FrameName(kind, idx)
		path := filepath.Join(l.resultsDir, name)
		var err error
		switch kind {
		case sim.SensorColor:
			err = writeColor(path, frames.Color)
		case sim.SensorDepth:
			err = writeDepth(path, frames.Depth, l.depthScale)
		case sim.SensorSemantic:
			var clipped int
			clipped, err = writeSemantic(path, frames.Semantic)
			if clipped > 0 && !l.labelsClipped {
				l.labelsClipped = true
				l.slog.Warn("semantic labels above 65535 saturated", "step", idx, "pixels", clipped)
			}
		}
		if err != nil {
			return idx, fmt.Errorf("writing %s frame %d: %w", kind, idx, err)
		}
		files[kind] = name
	}

	if l.indexer != nil {
		if err := l.indexer.IndexStep(ctx, Entry{Index: idx, Transform: transform, Files: files}); err != nil {
			return idx, fmt.Errorf("indexing step %d: %w", idx, err)
		}
	}

	// The trajectory row commits the step.
	if _, err := l.traj.WriteString(TrajectoryRow(transform)); err != nil {
		return idx, fmt.Errorf("writing trajectory row %d: %w", idx, err)
	}

	l.index++
	return idx, nil
}

// TrajectoryRow renders a transform as one trajectory line: sixteen
// space-terminated floats in row-major order.
func TrajectoryRow(m geom.Mat4) string {
	var b strings.Builder
	for _, v := range m {
		fmt.Fprintf(&b, "%.18e ", v)
	}
	b.WriteByte('\n')
	return b.String()
}

// Logf appends a diagnostic line tagged with the current step index.
// Write failures are reported once and otherwise ignored so that the data
// path never blocks on diagnostics.
func (l *Logger) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.log == nil {
		return
	}
	line := "[" + FormatIndex(l.index) + "] " + fmt.Sprintf(format, args...) + "\n"
	if _, err := l.log.WriteString(line); err != nil && !l.logBroken {
		l.logBroken = true
		l.slog.Warn("step log write failed", "error", err)
	}
}

// Close closes the trajectory and log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if l.traj != nil {
		if err := l.traj.Close(); err != nil {
			firstErr = err
		}
		l.traj = nil
	}
	if l.log != nil {
		if err := l.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.log = nil
	}
	return firstErr
}
