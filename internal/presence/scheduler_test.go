// Tests for the activity scheduler covering debounce, throttling, clearing
// and sends that overlap a new push.
package presence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
	"tools.zach/dev/codecord/internal/discord"
)

// recorder collects activities passed to a scheduler's send func.
type recorder struct {
	mu   sync.Mutex
	sent []*discord.Activity
	// hook, if set, runs before each send is recorded.
	hook func(ctx context.Context, n int) error
}

func (r *recorder) send(ctx context.Context, a *discord.Activity) error {
	r.mu.Lock()
	n := len(r.sent)
	hook := r.hook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, n); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	return nil
}

func (r *recorder) all() []*discord.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*discord.Activity(nil), r.sent...)
}

func newTestScheduler(t *testing.T, r *recorder, limiter *rate.Limiter, delay time.Duration) (*scheduler, *syncBuffer) {
	t.Helper()
	log, buf := newTestLogger()
	s := newScheduler(r.send, limiter, delay, log)
	t.Cleanup(s.Clear)
	return s, buf
}

func TestScheduler_DebounceLatestWins(t *testing.T) {
	r := &recorder{}
	s, _ := newTestScheduler(t, r, rate.NewLimiter(rate.Inf, 1), 30*time.Millisecond)

	a := &discord.Activity{Details: "a"}
	b := &discord.Activity{Details: "b"}
	c := &discord.Activity{Details: "c"}
	s.Push(a)
	s.Push(b)
	s.Push(c)

	waitFor(t, "debounced send", func() bool { return len(r.all()) == 1 })
	time.Sleep(60 * time.Millisecond)

	sent := r.all()
	if len(sent) != 1 {
		t.Fatalf("sent %d activities, want 1", len(sent))
	}
	if sent[0] != c {
		t.Fatalf("sent %q, want the latest push", sent[0].Details)
	}
}

func TestScheduler_Throttles(t *testing.T) {
	r := &recorder{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 2)
	s, logs := newTestScheduler(t, r, limiter, 0)

	s.Push(&discord.Activity{Details: "1"})
	waitFor(t, "first send", func() bool { return len(r.all()) == 1 })
	s.Push(&discord.Activity{Details: "2"})
	waitFor(t, "second send", func() bool { return len(r.all()) == 2 })

	// The burst is spent; the third update waits on the limiter.
	s.Push(&discord.Activity{Details: "3"})
	time.Sleep(50 * time.Millisecond)
	if n := len(r.all()); n != 2 {
		t.Fatalf("sent %d activities past the limit", n)
	}

	s.Clear()
	waitFor(t, "canceled send", func() bool { return logs.contains("activity update canceled") })
	if n := len(r.all()); n != 2 {
		t.Fatalf("sent %d activities after Clear, want 2", n)
	}
}

func TestScheduler_ClearDropsPending(t *testing.T) {
	r := &recorder{}
	s, _ := newTestScheduler(t, r, rate.NewLimiter(rate.Inf, 1), 30*time.Millisecond)

	s.Push(&discord.Activity{Details: "dropped"})
	if !s.Pending() {
		t.Fatal("expected a pending activity")
	}
	s.Clear()
	if s.Pending() {
		t.Fatal("Clear must drop the pending activity")
	}

	time.Sleep(60 * time.Millisecond)
	if n := len(r.all()); n != 0 {
		t.Fatalf("sent %d activities after Clear", n)
	}
}

func TestScheduler_NilClears(t *testing.T) {
	r := &recorder{}
	s, _ := newTestScheduler(t, r, rate.NewLimiter(rate.Inf, 1), 0)

	s.Push(nil)
	waitFor(t, "clear send", func() bool { return len(r.all()) == 1 })
	if got := r.all()[0]; got != nil {
		t.Fatalf("expected nil activity, got %+v", got)
	}
}

func TestScheduler_SendErrorDropped(t *testing.T) {
	var calls atomic.Int32
	r := &recorder{}
	r.hook = func(context.Context, int) error {
		if calls.Add(1) == 1 {
			return errors.New("broken pipe")
		}
		return nil
	}
	s, logs := newTestScheduler(t, r, rate.NewLimiter(rate.Inf, 1), 0)

	s.Push(&discord.Activity{Details: "lost"})
	waitFor(t, "failure log", func() bool { return logs.contains("activity update failed") })

	next := &discord.Activity{Details: "next"}
	s.Push(next)
	waitFor(t, "next send", func() bool { return len(r.all()) == 1 })
	if got := r.all()[0]; got != next {
		t.Fatalf("sent %q, want the update after the failure", got.Details)
	}
}

func TestScheduler_PushDuringSend(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	r := &recorder{}
	r.hook = func(ctx context.Context, n int) error {
		if n == 0 {
			started <- struct{}{}
			<-release
		}
		return nil
	}
	s, _ := newTestScheduler(t, r, rate.NewLimiter(rate.Inf, 1), 0)

	a := &discord.Activity{Details: "a"}
	b := &discord.Activity{Details: "b"}
	s.Push(a)
	<-started
	s.Push(b)
	// Let b's timer fire while a is still in flight.
	time.Sleep(20 * time.Millisecond)
	close(release)

	waitFor(t, "both sends", func() bool { return len(r.all()) == 2 })
	sent := r.all()
	if sent[0] != a || sent[1] != b {
		t.Fatalf("sent %v then %v, want a then b", sent[0].Details, sent[1].Details)
	}
}

func TestNewActivityLimiter(t *testing.T) {
	l := NewActivityLimiter()
	if l.Burst() != activityBurst {
		t.Fatalf("Burst() = %d, want %d", l.Burst(), activityBurst)
	}
	if got, want := l.Limit(), rate.Every(4*time.Second); got != want {
		t.Fatalf("Limit() = %v, want %v", got, want)
	}
}
