package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// LoadOptions configures LoadShards.
type LoadOptions struct {
	Shards     []string
	NumWorkers int
	PendingCap int
}

// LoadShards reads every shard once with a bounded worker pool and returns the
// samples in shard order, then tar order within a shard, regardless of which
// worker finished first.
func LoadShards(parent context.Context, opts LoadOptions) (*InMemory, error) {
	if len(opts.Shards) == 0 {
		return nil, errors.New("dataset: no shards to load")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.PendingCap <= 0 {
		opts.PendingCap = defaultPendingCap
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan shardJob, opts.NumWorkers)
	cursors := make(chan shardCursor, opts.NumWorkers)

	go produceJobs(ctx, jobs, opts.Shards)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, cursors, opts.PendingCap)
		}()
	}
	go func() {
		wg.Wait()
		close(cursors)
	}()

	samples, err := aggregate(ctx, cursors, len(opts.Shards))
	if err != nil {
		return nil, err
	}
	return NewInMemory(samples), nil
}

type shardJob struct {
	id   int
	path string
}

type shardCursor struct {
	id      int
	path    string
	samples <-chan Sample
	errCh   <-chan error
}

func produceJobs(ctx context.Context, jobs chan<- shardJob, shards []string) {
	defer close(jobs)
	for id, path := range shards {
		select {
		case <-ctx.Done():
			return
		case jobs <- shardJob{id: id, path: path}:
		}
	}
}

func worker(ctx context.Context, jobs <-chan shardJob, cursors chan<- shardCursor, pendingCap int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			samples, errCh := StreamShard(ctx, job.path, pendingCap)
			cursor := shardCursor{id: job.id, path: job.path, samples: samples, errCh: errCh}
			select {
			case <-ctx.Done():
				return
			case cursors <- cursor:
			}
		}
	}
}

// aggregate drains cursors strictly by id, parking early arrivals.
func aggregate(ctx context.Context, cursors <-chan shardCursor, total int) ([]Sample, error) {
	pending := make(map[int]shardCursor)
	var out []Sample
	for next := 0; next < total; {
		cursor, ok := pending[next]
		if !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case c, open := <-cursors:
				if !open {
					return nil, fmt.Errorf("dataset: shard %d was never read", next)
				}
				pending[c.id] = c
			}
			continue
		}

		for sample := range cursor.samples {
			out = append(out, sample)
		}
		if err := <-cursor.errCh; err != nil {
			return nil, fmt.Errorf("dataset: shard %s: %w", cursor.path, err)
		}
		delete(pending, next)
		next++
	}
	return out, nil
}
