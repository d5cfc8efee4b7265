package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	// Re-entrant post from inside a task.
	if err := l.Do(ctx, func() { l.Post(func() { got = append(got, 99) }) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 99}, got); diff != "" {
		t.Errorf("task order mismatch (-want +got):\n%s", diff)
	}

	l.Close()
	if err := <-errc; err != nil {
		t.Errorf("Run() = %v, want nil after Close", err)
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	var mu sync.Mutex
	var recovered []any
	l := NewLoop(WithPanicHandler(func(r any) {
		mu.Lock()
		recovered = append(recovered, r)
		mu.Unlock()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() {
		cancel()
		<-l.Done()
	}()

	ran := false
	l.Post(func() { panic("boom") })
	if err := l.Do(ctx, func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("task after panic did not run")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(recovered) != 1 || recovered[0] != "boom" {
		t.Errorf("recovered = %v", recovered)
	}
}

func TestLoop_AfterAndCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() {
		cancel()
		<-l.Done()
	}()

	fired := make(chan string, 2)
	stop := l.After(time.Hour, func() { fired <- "late" })
	stop()
	l.After(time.Millisecond, func() { fired <- "soon" })

	select {
	case got := <-fired:
		if got != "soon" {
			t.Errorf("fired %q, want soon", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLoop_CloseStopsTimers(t *testing.T) {
	l := NewLoop()
	l.After(time.Hour, func() {})
	l.Close()
	l.Close() // idempotent

	if err := l.Do(context.Background(), func() {}); err != ErrClosed {
		t.Errorf("Do() after Close = %v, want ErrClosed", err)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run() after Close = %v, want nil", err)
	}
}

func TestManual_FlushAndAdvance(t *testing.T) {
	m := NewManual()
	var got []string

	m.After(10*time.Millisecond, func() { got = append(got, "t10") })
	m.After(5*time.Millisecond, func() {
		got = append(got, "t5")
		m.Post(func() { got = append(got, "posted-by-t5") })
	})
	cancel := m.After(7*time.Millisecond, func() { got = append(got, "t7") })
	cancel()
	m.Post(func() { got = append(got, "task") })

	if n := m.Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if fired := m.Advance(6 * time.Millisecond); fired != 1 {
		t.Errorf("Advance(6ms) fired %d, want 1", fired)
	}
	if fired := m.Advance(10 * time.Millisecond); fired != 1 {
		t.Errorf("Advance(10ms) fired %d, want 1", fired)
	}

	want := []string{"task", "t5", "posted-by-t5", "t10"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if m.Now() != 16*time.Millisecond {
		t.Errorf("Now() = %v, want 16ms", m.Now())
	}
	if tasks, timers := m.Pending(); tasks != 0 || timers != 0 {
		t.Errorf("Pending() = %d, %d", tasks, timers)
	}
}

func TestManual_Settle(t *testing.T) {
	m := NewManual()
	n := 0
	m.After(time.Second, func() {
		n++
		m.After(time.Second, func() { n++ })
	})
	m.Settle()
	if n != 2 {
		t.Errorf("Settle ran %d timers, want 2", n)
	}
}
