// Package tailer follows a growing game log. Each open replays the file from
// the start, then streams appended lines until the file is rotated.
package tailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrRotated is returned by Run when the file at the path is no longer the
// file being read. The caller reopens.
var ErrRotated = errors.New("log file rotated")

// State is the tailer's position in its replay/stream cycle.
type State int32

const (
	StateIdle State = iota
	StateReplaying
	StateStreaming
	StateRotated
)

func (s State) String() string {
	switch s {
	case StateReplaying:
		return "replaying"
	case StateStreaming:
		return "streaming"
	case StateRotated:
		return "rotated"
	default:
		return "idle"
	}
}

// LineHandler receives lines. Replay sees every line present at open time,
// Process every line appended after that.
type LineHandler interface {
	Replay(line string)
	Process(line string)
}

// Config controls how often the tailer looks for new data.
type Config struct {
	PollInterval   time.Duration
	ReopenInterval time.Duration
}

// DefaultConfig returns the stock intervals.
func DefaultConfig() Config {
	return Config{
		PollInterval:   250 * time.Millisecond,
		ReopenInterval: time.Second,
	}
}

// Position identifies the open file and the read cursor in it.
type Position struct {
	Path   string
	Dev    uint64
	Ino    uint64
	Offset int64
}

// Tailer reads one log path. It is not safe to call Run concurrently.
type Tailer struct {
	path   string
	cfg    Config
	logger *slog.Logger

	state  atomic.Int32
	offset atomic.Int64
	lines  atomic.Int64

	mu  sync.Mutex
	pos Position

	file    *os.File
	info    os.FileInfo
	reader  *bufio.Reader
	partial strings.Builder
}

// New creates a Tailer for path. Nothing is opened until Run.
func New(path string, cfg Config, logger *slog.Logger) *Tailer {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ReopenInterval <= 0 {
		cfg.ReopenInterval = def.ReopenInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tailer{path: path, cfg: cfg, logger: logger}
}

// State returns the current state.
func (t *Tailer) State() State {
	return State(t.state.Load())
}

// Lines returns the number of complete lines read since the tailer was created.
func (t *Tailer) Lines() int64 {
	return t.lines.Load()
}

// Position returns the identity of the open file and the read offset.
func (t *Tailer) Position() Position {
	t.mu.Lock()
	p := t.pos
	t.mu.Unlock()
	p.Offset = t.offset.Load()
	return p
}

// Follow runs the tailer until ctx is cancelled, reopening after rotation or
// when the file is missing. It always returns ctx.Err().
func (t *Tailer) Follow(ctx context.Context, h LineHandler) error {
	for {
		err := t.Run(ctx, h)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrRotated):
			t.logger.Info("log file rotated, reopening", "path", t.path)
		case err != nil:
			t.logger.Warn("log file unavailable, retrying", "path", t.path, "error", err, "retry", t.cfg.ReopenInterval)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.ReopenInterval):
		}
	}
}

// Run opens the file, replays it to end of file, then streams appended lines.
// It returns ErrRotated when the file is replaced, truncated or removed, and
// ctx.Err() when cancelled.
func (t *Tailer) Run(ctx context.Context, h LineHandler) error {
	if err := t.open(); err != nil {
		return err
	}
	defer t.close()

	watcher := t.watch()
	if watcher != nil {
		defer watcher.Close()
	}

	t.state.Store(int32(StateReplaying))
	replayed, err := t.drain(ctx, h.Replay)
	if err != nil {
		return err
	}
	t.logger.Info("log replay complete", "path", t.path, "lines", replayed, "offset", t.offset.Load())
	t.state.Store(int32(StateStreaming))

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher != nil {
		events, watchErrs = watcher.Events, watcher.Errors
	}

	poll := time.NewTimer(t.cfg.PollInterval)
	defer poll.Stop()

	for {
		if _, err := t.drain(ctx, h.Process); err != nil {
			return err
		}

		rotated, reason := t.rotated()
		if rotated {
			t.state.Store(int32(StateRotated))
			t.logger.Debug("rotation detected", "path", t.path, "reason", reason)
			return ErrRotated
		}

		if !poll.Stop() {
			select {
			case <-poll.C:
			default:
			}
		}
		poll.Reset(t.cfg.PollInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
			} else if !t.isOurs(ev.Name) {
				continue
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			} else {
				t.logger.Debug("file watcher error", "error", err)
			}
		case <-poll.C:
		}
	}
}

// drain reads every complete line available and hands it to fn.
// An unterminated trailing line is held until its newline arrives.
func (t *Tailer) drain(ctx context.Context, fn func(string)) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		chunk, err := t.reader.ReadString('\n')
		t.offset.Add(int64(len(chunk)))

		if err != nil {
			if errors.Is(err, io.EOF) {
				t.partial.WriteString(chunk)
				return n, nil
			}
			return n, fmt.Errorf("reading %s: %w", t.path, err)
		}

		line := chunk
		if t.partial.Len() > 0 {
			t.partial.WriteString(chunk)
			line = t.partial.String()
			t.partial.Reset()
		}

		t.lines.Add(1)
		n++
		fn(strings.TrimRight(line, "\r\n"))
	}
}

// rotated compares the file at the path with the open handle.
func (t *Tailer) rotated() (bool, string) {
	current, err := os.Stat(t.path)
	if err != nil {
		return true, "missing"
	}
	if !os.SameFile(current, t.info) {
		return true, "replaced"
	}
	if current.Size() < t.offset.Load() {
		return true, "truncated"
	}
	return false, ""
}

func (t *Tailer) open() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	t.file = f
	t.info = info
	t.reader = bufio.NewReaderSize(f, 64*1024)
	t.partial.Reset()
	t.offset.Store(0)

	dev, ino := identityOf(info)
	t.mu.Lock()
	t.pos = Position{Path: t.path, Dev: dev, Ino: ino}
	t.mu.Unlock()

	t.logger.Debug("log file opened", "path", t.path, "size", info.Size(), "dev", dev, "ino", ino)
	return nil
}

func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}

// watch subscribes to changes in the log directory. Polling still runs
// without it.
func (t *Tailer) watch() *fsnotify.Watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.logger.Debug("file watcher unavailable, polling only", "error", err)
		return nil
	}
	if err := w.Add(filepath.Dir(t.path)); err != nil {
		t.logger.Debug("cannot watch log directory, polling only", "error", err)
		w.Close()
		return nil
	}
	return w
}

func (t *Tailer) isOurs(name string) bool {
	return strings.EqualFold(filepath.Clean(name), filepath.Clean(t.path))
}
