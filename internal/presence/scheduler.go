package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"tools.zach/dev/codecord/internal/discord"
	"tools.zach/dev/codecord/internal/logger"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// DefaultDebounce is the quiet period before a pushed activity is sent.
	DefaultDebounce = time.Second

	// activityBurst and activityWindow mirror Discord's SET_ACTIVITY limit of
	// five updates per twenty seconds.
	activityBurst  = 5
	activityWindow = 20 * time.Second
)

// NewActivityLimiter returns a limiter matching Discord's SET_ACTIVITY rate
// limit.
func NewActivityLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(activityWindow/activityBurst), activityBurst)
}

// ///////////////////////////////////////////////
// Scheduler
// ///////////////////////////////////////////////

// sendFunc delivers one activity. A nil activity clears the presence.
type sendFunc func(ctx context.Context, a *discord.Activity) error

// scheduler debounces activity pushes and throttles the resulting sends.
// Only the latest pushed activity is ever sent; at most one send runs at a
// time.
type scheduler struct {
	send    sendFunc
	limiter *rate.Limiter
	delay   time.Duration
	log     *slog.Logger

	mu sync.Mutex
	// pending is the activity waiting to be sent. Valid when hasPending.
	pending    *discord.Activity
	hasPending bool
	// epoch invalidates debounce timers armed before the last Push or Clear.
	epoch uint64
	timer *time.Timer
	// sending is set while a send waits on the limiter or writes.
	sending bool
	// due records a timer that fired while a send was running.
	due bool
	// cancel aborts the running send.
	cancel context.CancelFunc
}

func newScheduler(send sendFunc, limiter *rate.Limiter, delay time.Duration, log *slog.Logger) *scheduler {
	if limiter == nil {
		limiter = NewActivityLimiter()
	}
	return &scheduler{send: send, limiter: limiter, delay: delay, log: log}
}

// Push replaces the pending activity and restarts the debounce timer.
func (s *scheduler) Push(a *discord.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = a
	s.hasPending = true
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
	}
	epoch := s.epoch
	s.timer = time.AfterFunc(s.delay, func() { s.fire(epoch) })
}

// Clear drops the pending activity, stops the debounce timer and cancels a
// running send.
func (s *scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.hasPending = false
	s.due = false
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Pending reports whether an activity is waiting to be sent.
func (s *scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// fire sends the pending activity if epoch is still current.
func (s *scheduler) fire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || !s.hasPending {
		s.mu.Unlock()
		return
	}
	if s.sending {
		s.due = true
		s.mu.Unlock()
		return
	}
	a := s.pending
	s.pending = nil
	s.hasPending = false
	ctx, cancel := context.WithCancel(context.Background())
	s.sending = true
	s.cancel = cancel
	s.mu.Unlock()

	err := s.limiter.Wait(ctx)
	if err == nil {
		err = s.send(ctx, a)
	}
	cancel()

	switch {
	case err == nil:
		logger.Trace(ctx, s.log, "activity sent", "clear", a == nil)
	case errors.Is(err, context.Canceled):
		s.log.Debug("activity update canceled")
	default:
		s.log.Warn("activity update failed", "error", err)
	}

	s.mu.Lock()
	s.sending = false
	s.cancel = nil
	again := s.due && s.hasPending
	s.due = false
	epoch = s.epoch
	s.mu.Unlock()

	if again {
		s.fire(epoch)
	}
}
