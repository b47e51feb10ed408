package scheduler

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoop_Post(t *testing.T) {
	loop := NewLoop(16)
	loop.Start()
	defer loop.Stop()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		if err := loop.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}

	if err := loop.Call(func() {}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("Expected 100 tasks, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("Task %d ran out of order (got %d)", i, v)
		}
	}
}

func TestLoop_SingleGoroutine(t *testing.T) {
	loop := NewLoop(0)
	loop.Start()
	defer loop.Stop()

	var active atomic.Int32
	var overlap atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				loop.Post(func() {
					if active.Add(1) > 1 {
						overlap.Store(true)
					}
					time.Sleep(10 * time.Microsecond)
					active.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	loop.Call(func() {})

	if overlap.Load() {
		t.Error("Tasks ran concurrently")
	}
	if loop.Processed() < 200 {
		t.Errorf("Expected at least 200 processed tasks, got %d", loop.Processed())
	}
}

func TestLoop_ErrorHandling(t *testing.T) {
	loop := NewLoop(0)

	var handled atomic.Value
	loop.SetErrorHandler(func(err interface{}) {
		handled.Store(err)
	})
	loop.Start()
	defer loop.Stop()

	loop.Post(func() {
		panic("boom")
	})

	ran := false
	if err := loop.Call(func() { ran = true }); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if !ran {
		t.Error("Loop should keep running after a panic")
	}
	if loop.Panics() != 1 {
		t.Errorf("Expected 1 panic, got %d", loop.Panics())
	}
	msg, _ := handled.Load().(string)
	if !strings.Contains(msg, "boom") {
		t.Errorf("Error handler got %q", msg)
	}
}

func TestLoop_Stop(t *testing.T) {
	loop := NewLoop(0)
	loop.Start()

	if !loop.IsRunning() {
		t.Fatal("Loop should be running")
	}

	loop.Stop()
	loop.Stop()

	if loop.IsRunning() {
		t.Error("Loop should be stopped")
	}
	if err := loop.Post(func() {}); err != ErrStopped {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if err := loop.Call(func() {}); err != ErrStopped {
		t.Errorf("Expected ErrStopped from Call, got %v", err)
	}
}

func TestLoop_AfterFunc(t *testing.T) {
	loop := NewLoop(0)
	loop.Start()
	defer loop.Stop()

	fired := make(chan struct{})
	loop.AfterFunc(10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Timer did not fire")
	}
}

func TestTimer_Stop(t *testing.T) {
	loop := NewLoop(0)
	loop.Start()
	defer loop.Stop()

	var fired atomic.Bool
	timer := loop.AfterFunc(20*time.Millisecond, func() {
		fired.Store(true)
	})

	if !timer.Stop() {
		t.Error("First Stop should report true")
	}
	if timer.Stop() {
		t.Error("Second Stop should report false")
	}

	time.Sleep(60 * time.Millisecond)
	loop.Call(func() {})

	if fired.Load() {
		t.Error("Stopped timer fired")
	}

	var nilTimer *Timer
	if nilTimer.Stop() {
		t.Error("Nil timer Stop should report false")
	}
}

func TestTimer_StopAfterExpiry(t *testing.T) {
	loop := NewLoop(0)
	loop.Start()
	defer loop.Stop()

	// Block the loop so the expired timer's task stays queued
	release := make(chan struct{})
	loop.Post(func() { <-release })

	var fired atomic.Bool
	timer := loop.AfterFunc(time.Millisecond, func() {
		fired.Store(true)
	})
	time.Sleep(20 * time.Millisecond)

	timer.Stop()
	close(release)
	loop.Call(func() {})

	if fired.Load() {
		t.Error("Timer stopped while queued should not run")
	}
}
