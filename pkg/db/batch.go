package db

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// MaxBatchOps is the store's hard limit on operations per batched write.
const MaxBatchOps = 500

// ForEachChunk splits items into chunks of at most size elements and runs fn
// for every chunk concurrently. Callers exceeding the store batch limit must
// go through this rather than issuing one oversized write or a sequential
// chain of small ones.
func ForEachChunk[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, chunk []T) error) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if len(items) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunk := items[start:end]
		g.Go(func() error {
			return fn(ctx, chunk)
		})
	}
	return g.Wait()
}

// CollectChunkErrors is like ForEachChunk but runs every chunk to completion
// and aggregates failures instead of cancelling siblings on the first error.
func CollectChunkErrors[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, chunk []T) error) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}

	var g errgroup.Group
	errs := make([]error, (len(items)+size-1)/size)
	idx := 0
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunk := items[start:end]
		slot := idx
		idx++
		g.Go(func() error {
			errs[slot] = fn(ctx, chunk)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}
