package tailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	replayed  []string
	processed []string
}

func (r *recorder) Replay(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayed = append(r.replayed, line)
}

func (r *recorder) Process(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, line)
}

func (r *recorder) snapshot() (replayed, processed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replayed...), append([]string(nil), r.processed...)
}

func testConfig() Config {
	return Config{PollInterval: 10 * time.Millisecond, ReopenInterval: 20 * time.Millisecond}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

type runResult struct {
	err error
}

func startRun(t *testing.T, tl *Tailer, h LineHandler) (context.CancelFunc, <-chan runResult) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: tl.Run(ctx, h)}
	}()
	require.Eventually(t, func() bool { return tl.State() == StateStreaming }, 2*time.Second, 5*time.Millisecond)
	return cancel, done
}

func waitResult(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case r := <-done:
		return r.err
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not return")
		return nil
	}
}

func TestRun_ReplayThenStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Game.log")
	writeFile(t, path, "first\r\nsecond\n")

	tl := New(path, testConfig(), quietLogger())
	rec := &recorder{}
	cancel, done := startRun(t, tl, rec)

	appendFile(t, path, "third\n")
	require.Eventually(t, func() bool {
		_, processed := rec.snapshot()
		return len(processed) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, waitResult(t, done), context.Canceled)

	replayed, processed := rec.snapshot()
	assert.Equal(t, []string{"first", "second"}, replayed)
	assert.Equal(t, []string{"third"}, processed)
	assert.Equal(t, int64(3), tl.Lines())

	pos := tl.Position()
	assert.Equal(t, path, pos.Path)
	assert.Equal(t, int64(len("first\r\nsecond\nthird\n")), pos.Offset)
}

func TestRun_PartialLineHeldUntilNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Game.log")
	writeFile(t, path, "")

	tl := New(path, testConfig(), quietLogger())
	rec := &recorder{}
	cancel, done := startRun(t, tl, rec)
	defer cancel()

	appendFile(t, path, "half a ")
	time.Sleep(50 * time.Millisecond)
	_, processed := rec.snapshot()
	assert.Empty(t, processed)

	appendFile(t, path, "line\nnext\n")
	require.Eventually(t, func() bool {
		_, processed := rec.snapshot()
		return len(processed) == 2
	}, 2*time.Second, 5*time.Millisecond)

	_, processed = rec.snapshot()
	assert.Equal(t, []string{"half a line", "next"}, processed)

	cancel()
	waitResult(t, done)
}

func TestRun_RotationByReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Game.log")
	writeFile(t, path, "old\n")

	tl := New(path, testConfig(), quietLogger())
	cancel, done := startRun(t, tl, &recorder{})
	defer cancel()

	require.NoError(t, os.Rename(path, filepath.Join(dir, "Game-backup.log")))
	writeFile(t, path, "new\n")

	assert.ErrorIs(t, waitResult(t, done), ErrRotated)
	assert.Equal(t, StateRotated, tl.State())
}

func TestRun_RotationByTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Game.log")
	writeFile(t, path, "a fairly long line of history\n")

	tl := New(path, testConfig(), quietLogger())
	cancel, done := startRun(t, tl, &recorder{})
	defer cancel()

	require.NoError(t, os.Truncate(path, 0))

	assert.ErrorIs(t, waitResult(t, done), ErrRotated)
}

func TestRun_MissingFile(t *testing.T) {
	tl := New(filepath.Join(t.TempDir(), "nope.log"), testConfig(), quietLogger())

	err := tl.Run(context.Background(), &recorder{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, StateIdle, tl.State())
}

func TestFollow_ReplaysAfterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Game.log")
	writeFile(t, path, "session one\n")

	tl := New(path, testConfig(), quietLogger())
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tl.Follow(ctx, rec) }()

	require.Eventually(t, func() bool { return tl.State() == StateStreaming }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.Remove(path))
	writeFile(t, path, "session two\n")

	require.Eventually(t, func() bool {
		replayed, _ := rec.snapshot()
		return len(replayed) == 2
	}, 2*time.Second, 5*time.Millisecond)

	appendFile(t, path, "live\n")
	require.Eventually(t, func() bool {
		_, processed := rec.snapshot()
		return len(processed) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not return")
	}

	replayed, processed := rec.snapshot()
	assert.Equal(t, []string{"session one", "session two"}, replayed)
	assert.Equal(t, []string{"live"}, processed)
}

func TestFollow_WaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Game.log")
	tl := New(path, testConfig(), quietLogger())
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Follow(ctx, rec)

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "late\n")

	require.Eventually(t, func() bool {
		replayed, _ := rec.snapshot()
		return len(replayed) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "replaying", StateReplaying.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "rotated", StateRotated.String())
}
