package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPostRunsInOrderOnOneGoroutine(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	var (
		mu  sync.Mutex
		got []int
	)
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		i := i
		if err := l.Post(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	wg.Wait()
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestCallWaitsForResult(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	value := 0
	if err := l.Call(context.Background(), func() { value = 7 }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if value != 7 {
		t.Fatalf("expected 7, got %d", value)
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	_ = l.Post(func() { panic("boom") })
	ran := false
	if err := l.Call(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !ran {
		t.Fatal("loop stopped after panic")
	}
}

func TestStopDrainsAndRejects(t *testing.T) {
	l := New(nil)
	ran := make(chan struct{}, 1)
	_ = l.Post(func() {
		time.Sleep(20 * time.Millisecond)
		ran <- struct{}{}
	})
	l.Stop()

	select {
	case <-ran:
	default:
		t.Fatal("queued work was not drained before stop")
	}
	if err := l.Post(func() {}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	l.Stop()
}

func TestCallHonorsContext(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	release := make(chan struct{})
	_ = l.Post(func() { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Call(ctx, func() {}); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
}
