// Package scheduler provides the single-threaded event loop that owns a live
// session's state. Work items and timer expirations are executed one at a
// time, in the order they were posted.
package scheduler

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when work is posted to a loop that is not running
var ErrStopped = errors.New("scheduler: loop stopped")

// Task is a unit of work run on the loop goroutine
type Task func()

// ErrorHandler handles panics during a task
type ErrorHandler func(err interface{})

// debugLog is set by the host process
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Loop serialises tasks on a single goroutine
type Loop struct {
	queue   chan Task
	stopCh  chan struct{}
	done    chan struct{}
	running atomic.Bool
	once    sync.Once

	onError ErrorHandler

	// Stats
	processed atomic.Uint64
	panics    atomic.Uint64
}

// NewLoop creates a loop with a task buffer of the given size
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		queue:  make(chan Task, buffer),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SetErrorHandler sets the handler called when a task panics
func (l *Loop) SetErrorHandler(handler ErrorHandler) {
	l.onError = handler
}

// Start begins the loop
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Loop] Starting loop")
		}
		go l.run()
	}
}

// Stop stops the loop and waits for the current task to finish. Tasks
// still queued are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() {
		wasRunning := l.running.Swap(false)
		close(l.stopCh)
		if wasRunning {
			<-l.done
		}
	})
}

// IsRunning returns whether the loop is running
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Post queues fn. It blocks while the queue is full and fails once the loop
// has been stopped.
func (l *Loop) Post(fn Task) error {
	if fn == nil {
		return nil
	}
	select {
	case <-l.stopCh:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.stopCh:
		return ErrStopped
	}
}

// Call runs fn on the loop and waits for it to complete
func (l *Loop) Call(fn Task) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-l.stopCh:
		return ErrStopped
	}
}

// Processed returns the number of tasks run so far
func (l *Loop) Processed() uint64 {
	return l.processed.Load()
}

// Panics returns the number of tasks that panicked
func (l *Loop) Panics() uint64 {
	return l.panics.Load()
}

// run is the main event loop
func (l *Loop) run() {
	defer close(l.done)
	if debugLog != nil {
		debugLog("[Loop] Loop started")
	}
	for {
		var task Task
		select {
		case task = <-l.queue:
		case <-l.stopCh:
			if debugLog != nil {
				debugLog("[Loop] Loop ended")
			}
			return
		}

		// Collect everything already queued to process as one batch
		batch := []Task{task}
	drainLoop:
		for {
			select {
			case t := <-l.queue:
				batch = append(batch, t)
			default:
				break drainLoop
			}
		}

		for _, t := range batch {
			select {
			case <-l.stopCh:
				return
			default:
			}
			l.runTask(t)
		}
	}
}

// runTask runs a single task with panic recovery
func (l *Loop) runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.handleError(r)
		}
	}()
	t()
	l.processed.Add(1)
}

func (l *Loop) handleError(err interface{}) {
	msg := fmt.Sprintf("task panic: %v\n%s", err, debug.Stack())
	if l.onError != nil {
		l.onError(msg)
		return
	}
	if debugLog != nil {
		debugLog("[Loop]", msg)
	}
}

// Timer is a pending task created by AfterFunc
type Timer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// AfterFunc posts fn to the loop after d. A timer stopped before fn starts
// never runs fn, even when it has already expired and fn is queued.
func (l *Loop) AfterFunc(d time.Duration, fn Task) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		if tm.stopped.Load() {
			return
		}
		_ = l.Post(func() {
			if tm.stopped.Load() {
				return
			}
			fn()
		})
	})
	return tm
}

// Stop cancels the timer. It reports whether this call stopped it; it is
// safe to call on a nil timer.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	if t.stopped.Swap(true) {
		return false
	}
	t.t.Stop()
	return true
}
