package snowflake

import (
	"sync"
	"testing"
	"time"
)

func TestNewGenerator_NodeIDRange(t *testing.T) {
	if _, err := NewGenerator(-1); err != ErrInvalidNodeID {
		t.Errorf("expected ErrInvalidNodeID for -1, got %v", err)
	}
	if _, err := NewGenerator(1024); err != ErrInvalidNodeID {
		t.Errorf("expected ErrInvalidNodeID for 1024, got %v", err)
	}
	if _, err := NewGenerator(0); err != nil {
		t.Errorf("node 0 should be valid, got %v", err)
	}
	if _, err := NewGenerator(1023); err != nil {
		t.Errorf("node 1023 should be valid, got %v", err)
	}
}

func TestNext_Unique(t *testing.T) {
	g, err := NewGenerator(5)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	const n = 10000
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id, err := g.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ID %d", id)
		}
		seen[id] = true
	}
}

func TestNext_Monotonic(t *testing.T) {
	g, _ := NewGenerator(1)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := g.MustNext()
		if id <= prev {
			t.Fatalf("ID %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestNext_ConcurrentUnique(t *testing.T) {
	g, _ := NewGenerator(2)

	const workers = 8
	const perWorker = 500
	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := g.MustNext()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate ID %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestTimestamp_RoundTrip(t *testing.T) {
	g, _ := NewGenerator(3)
	before := time.Now().Truncate(time.Millisecond)
	id := g.MustNext()
	after := time.Now()

	ts := Timestamp(id)
	if ts.Before(before) || ts.After(after) {
		t.Errorf("embedded timestamp %v outside [%v, %v]", ts, before, after)
	}
}
