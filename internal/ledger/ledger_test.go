package ledger

import (
	"sync"
	"testing"
)

func TestSetAddIsAtMostOnce(t *testing.T) {
	s := NewSet()

	if !s.Add("s1") {
		t.Fatal("first add should report new")
	}
	for i := 0; i < 10; i++ {
		if s.Add("s1") {
			t.Fatal("repeated add should not report new")
		}
	}
	if s.Add("") {
		t.Fatal("empty id must not be recorded")
	}
	if s.Len() != 1 || !s.Has("s1") {
		t.Fatalf("unexpected contents: %v", s.IDs())
	}
}

func TestSetConcurrentAddsConverge(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("s1") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestSetIDsKeepsOrder(t *testing.T) {
	s := NewSet()
	s.Add("b")
	s.Add("a")
	s.Add("b")

	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("unexpected order: %v", ids)
	}
}
