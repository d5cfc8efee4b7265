package sched

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrClosed is returned by Do and Run once the loop has been closed.
var ErrClosed = errors.New("sched: loop closed")

// Loop runs tasks on a single goroutine. Post and After may be called from
// any goroutine, including from inside a task.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	timers map[*time.Timer]struct{}
	closed bool

	wake chan struct{}
	done chan struct{}

	logger  *slog.Logger
	onPanic func(r any)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger used for task panics.
func WithLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) { lp.logger = l }
}

// WithPanicHandler sets a hook called with the value of every recovered
// task panic.
func WithPanicHandler(fn func(r any)) LoopOption {
	return func(lp *Loop) { lp.onPanic = fn }
}

// NewLoop creates a loop. Call Run to start executing tasks.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		timers: make(map[*time.Timer]struct{}),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "sched"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post implements Scheduler. Tasks posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
		// Already signalled
	}
}

// After implements Scheduler.
func (l *Loop) After(d time.Duration, fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return func() {}
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		l.Post(fn)
	})
	l.timers[t] = struct{}{}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if t.Stop() {
			delete(l.timers, t)
		}
	}
}

// Do posts fn and waits for it to finish, or for ctx to end.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx ends or Close is called. It must be called
// at most once.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if l.closed || len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.safeExecute(fn)
		}
	}
}

func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panic",
				"panic", r,
				"stack", string(debug.Stack()))
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	fn()
}

// Close stops the loop and every pending timer. Queued tasks are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	for t := range l.timers {
		t.Stop()
	}
	l.timers = nil
	close(l.done)
}

// Done returns a channel closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} { return l.done }
