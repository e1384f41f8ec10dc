package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestEach(t *testing.T) {
	items := []string{"a", "b", "c"}
	seen := make([]string, len(items))

	var called int32
	errs := Each(items, 2, func(i int, item string) error {
		atomic.AddInt32(&called, 1)
		seen[i] = item
		if i == 1 {
			return errors.New("test error")
		}
		return nil
	})

	if called != int32(len(items)) {
		t.Fatalf("expected %d calls, got %d", len(items), called)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	for i := range items {
		if seen[i] != items[i] {
			t.Fatalf("index %d: expected %q, got %q", i, items[i], seen[i])
		}
	}
}

func TestEachEmptyAndDefaultWorkers(t *testing.T) {
	if errs := Each[int](nil, 4, func(int, int) error { return nil }); errs != nil {
		t.Fatalf("expected nil for no items, got %v", errs)
	}

	var called int32
	Each([]int{1, 2, 3, 4, 5}, 0, func(int, int) error {
		atomic.AddInt32(&called, 1)
		return nil
	})
	if called != 5 {
		t.Fatalf("expected 5 calls, got %d", called)
	}
}
