package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/atcscribe/asr-worker/internal/types"
)

func TestQueueFIFO(t *testing.T) {
	q := New(4)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := q.Push(ctx, types.QueuedJob{Job: types.Job{ID: i}}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	for want := int64(1); want <= 3; want++ {
		item, ok := q.Pop(time.Second)
		if !ok {
			t.Fatal("Pop timed out")
		}
		if item.Job.ID != want {
			t.Errorf("Pop order: got %d, want %d", item.Job.ID, want)
		}
	}
}

func TestQueueCapacityAndFull(t *testing.T) {
	q := New(2)
	ctx := context.Background()

	q.Push(ctx, types.QueuedJob{Job: types.Job{ID: 1}})
	if q.Full() {
		t.Error("Full after one push with capacity 2")
	}
	q.Push(ctx, types.QueuedJob{Job: types.Job{ID: 2}})
	if !q.Full() {
		t.Error("not Full at capacity")
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("Len=%d Cap=%d", q.Len(), q.Cap())
	}

	// A full queue blocks Push until cancellation.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Push(cancelled, types.QueuedJob{Job: types.Job{ID: 3}}); err == nil {
		t.Error("Push on full queue with cancelled ctx should fail")
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d after rejected push, capacity exceeded", q.Len())
	}
}

func TestQueuePopTimeout(t *testing.T) {
	q := New(1)

	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	if ok {
		t.Fatal("Pop on empty queue returned an item")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Pop returned before timeout")
	}
}

func TestQueueSingleConsumerPerItem(t *testing.T) {
	const items = 200
	const consumers = 4

	q := New(8)
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[int64]int)

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, ok := q.Pop(100 * time.Millisecond)
				if !ok {
					return
				}
				mu.Lock()
				seen[item.Job.ID]++
				mu.Unlock()
			}
		}()
	}

	for i := int64(0); i < items; i++ {
		if q.Len() > q.Cap() {
			t.Fatalf("queue length %d exceeds capacity %d", q.Len(), q.Cap())
		}
		if err := q.Push(ctx, types.QueuedJob{Job: types.Job{ID: i}}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	wg.Wait()

	if len(seen) != items {
		t.Fatalf("consumed %d distinct items, want %d", len(seen), items)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("item %d consumed %d times", id, n)
		}
	}
}
