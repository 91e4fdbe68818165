// Test doubles shared by the presence tests: an in-memory transport that
// tracks open links, a recording intent store and a captured log.
package presence

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
	"tools.zach/dev/codecord/internal/config"
	"tools.zach/dev/codecord/internal/discord"
	"tools.zach/dev/codecord/internal/logger"
)

// ///////////////////////////////////////////////
// fakeTransport
// ///////////////////////////////////////////////

// fakeTransport mimics discord.Client: Connect and Close are serialized and
// Connect replaces any open link.
type fakeTransport struct {
	serial sync.Mutex

	// connectCalls and closeCalls count entries before serialization.
	connectCalls atomic.Int32
	closeCalls   atomic.Int32

	mu       sync.Mutex
	linked   bool
	open     int
	maxOpen  int
	connects int
	failWith error
	// gate, when set, blocks Connect until closed.
	gate chan struct{}
	// ignoreCancel makes a gated Connect succeed even after ctx ends.
	ignoreCancel bool
	sent         []*discord.Activity
	// dropOnConnect makes the link go away right after the handshake.
	dropOnConnect bool

	dropped chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{dropped: make(chan struct{}, 1)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connectCalls.Add(1)
	f.serial.Lock()
	defer f.serial.Unlock()

	f.mu.Lock()
	f.connects++
	f.unlinkLocked()
	gate, ignore, failWith := f.gate, f.ignoreCancel, f.failWith
	f.mu.Unlock()

	if gate != nil {
		if ignore {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if failWith != nil {
		return failWith
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = true
	f.open++
	f.maxOpen = max(f.maxOpen, f.open)
	if f.dropOnConnect {
		f.unlinkLocked()
		select {
		case f.dropped <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeTransport) SetActivity(_ context.Context, a *discord.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.linked {
		return discord.ErrNotConnected
	}
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeCalls.Add(1)
	f.serial.Lock()
	defer f.serial.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlinkLocked()
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linked
}

func (f *fakeTransport) Dropped() <-chan struct{} { return f.dropped }

// drop simulates Discord going away.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	f.unlinkLocked()
	f.mu.Unlock()
	f.dropped <- struct{}{}
}

func (f *fakeTransport) unlinkLocked() {
	if f.linked {
		f.linked = false
		f.open--
	}
}

// snapshot returns open, maxOpen and connect counts.
func (f *fakeTransport) snapshot() (open, maxOpen, connects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, f.maxOpen, f.connects
}

func (f *fakeTransport) sentActivities() []*discord.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discord.Activity(nil), f.sent...)
}

func (f *fakeTransport) setGate(gate chan struct{}, ignoreCancel bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
	f.ignoreCancel = ignoreCancel
}

func (f *fakeTransport) setDropOnConnect(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropOnConnect = v
}

func (f *fakeTransport) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// ///////////////////////////////////////////////
// fakeIntent
// ///////////////////////////////////////////////

// fakeIntent records persisted intent and can be made to fail.
type fakeIntent struct {
	mu      sync.Mutex
	intent  config.Intent
	readErr error
	failErr error
	writes  []bool
}

func (f *fakeIntent) SetEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, enabled)
	if f.failErr != nil {
		return f.failErr
	}
	f.intent.Workspace = &enabled
	return nil
}

func (f *fakeIntent) Intent() (config.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intent, f.readErr
}

func (f *fakeIntent) written() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

// newTestLogger returns a logger that captures every level.
func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(logger.NewHandler(buf, logger.LevelTrace)), buf
}

// newTestController builds a controller that sends activity immediately and
// without throttling.
func newTestController(t *testing.T, ft *fakeTransport, intent IntentWriter) (*Controller, *syncBuffer) {
	t.Helper()
	log, buf := newTestLogger()
	return newTestControllerWithLogger(t, ft, intent, log), buf
}

func newTestControllerWithLogger(t *testing.T, ft *fakeTransport, intent IntentWriter, log *slog.Logger) *Controller {
	t.Helper()
	c := New(Options{
		Transport: ft,
		Intent:    intent,
		Logger:    log,
		Debounce:  -1,
		Limiter:   rate.NewLimiter(rate.Inf, 1),
	})
	t.Cleanup(func() { c.Destroy(context.Background()) })
	return c
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var errDiskFull = errors.New("disk full")
