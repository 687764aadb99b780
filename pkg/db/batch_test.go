package db

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestForEachChunkSplitsAtLimit(t *testing.T) {
	t.Parallel()

	items := make([]int, 1201)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	var sizes []int
	seen := map[int]bool{}

	err := ForEachChunk(context.Background(), items, MaxBatchOps, func(ctx context.Context, chunk []int) error {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(chunk))
		for _, v := range chunk {
			seen[v] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachChunk: %v", err)
	}

	if len(sizes) != 3 {
		t.Fatalf("expected 3 chunks, got %d (%v)", len(sizes), sizes)
	}
	for _, size := range sizes {
		if size > MaxBatchOps {
			t.Fatalf("chunk exceeds batch limit: %d", size)
		}
	}
	if len(seen) != len(items) {
		t.Fatalf("expected all %d items visited, got %d", len(items), len(seen))
	}
}

func TestForEachChunkEmptyInput(t *testing.T) {
	t.Parallel()

	called := false
	err := ForEachChunk(context.Background(), nil, MaxBatchOps, func(ctx context.Context, chunk []string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachChunk: %v", err)
	}
	if called {
		t.Fatal("fn must not run for empty input")
	}
}

func TestForEachChunkInvalidSize(t *testing.T) {
	t.Parallel()

	err := ForEachChunk(context.Background(), []int{1}, 0, func(ctx context.Context, chunk []int) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected error for non-positive chunk size")
	}
}

func TestCollectChunkErrorsRunsAllChunks(t *testing.T) {
	t.Parallel()

	items := make([]int, 10)
	var mu sync.Mutex
	calls := 0
	boom := errors.New("boom")

	err := CollectChunkErrors(context.Background(), items, 2, func(ctx context.Context, chunk []int) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return boom
		}
		return nil
	})
	if calls != 5 {
		t.Fatalf("expected all 5 chunks attempted, got %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected aggregated error, got %v", err)
	}
}
