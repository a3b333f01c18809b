package session

import (
	"sync"
	"testing"
	"time"
)

func TestQueuePushPopFIFO(t *testing.T) {
	q := newUnboundedQueue()
	q.push([]byte("a"))
	q.push([]byte("b"))

	first, ok := q.pop()
	if !ok || string(first) != "a" {
		t.Fatalf("got %q, %v", first, ok)
	}
	second, ok := q.pop()
	if !ok || string(second) != "b" {
		t.Fatalf("got %q, %v", second, ok)
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newUnboundedQueue()
	done := make(chan struct{})
	var got []byte
	go func() {
		var ok bool
		got, ok = q.pop()
		if !ok {
			t.Error("expected ok=true")
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("pop returned before push")
	default:
	}

	q.push([]byte("late"))
	<-done
	if string(got) != "late" {
		t.Errorf("got %q", got)
	}
}

func TestQueueCloseUnblocksPop(t *testing.T) {
	q := newUnboundedQueue()
	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := q.pop()
			results[i] = ok
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	q.close()
	wg.Wait()

	for i, ok := range results {
		if ok {
			t.Errorf("pop %d: expected ok=false after close", i)
		}
	}
}

func TestPushAfterCloseIsNoop(t *testing.T) {
	q := newUnboundedQueue()
	q.close()
	q.push([]byte("dropped"))
	if _, ok := q.pop(); ok {
		t.Fatal("expected pop to report closed, got an item")
	}
}
