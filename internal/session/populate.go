package session

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/wallandteen/leetsession/internal/lc"
)

const (
	DefaultChunkSize   = 1000
	DefaultMaxParallel = 6
)

// Adder adds problems to a list. lc.Client implements it.
type Adder interface {
	AddItems(ctx context.Context, slug string, ids []string) error
}

// Attempt describes one window about to be sent.
type Attempt struct {
	Label       string
	Concurrency int
	Offset      int // ids already added before this window
	Size        int
}

// Progress is reported after each successful window.
type Progress struct {
	Label string
	Added int
	Total int
}

// Populator adds large id sets to a list in parallel chunks, stepping the
// parallelism down whenever the service rate limits a window.
type Populator struct {
	Adder       Adder
	ChunkSize   int
	MaxParallel int

	OnAttempt  func(Attempt)
	OnProgress func(Progress)
}

type populateState struct {
	remaining   []string
	concurrency int
	added       int
}

func (p *Populator) chunkSize() int {
	if p.ChunkSize > 0 {
		return p.ChunkSize
	}
	return DefaultChunkSize
}

func (p *Populator) maxParallel() int {
	if p.MaxParallel > 0 {
		return p.MaxParallel
	}
	return DefaultMaxParallel
}

// Populate adds ids to the list slug and returns how many were processed.
// A window is ChunkSize*concurrency ids sent as concurrent chunks; it either
// completes as a whole or is retried with one less parallel request after a
// rate limit. Any other error, or a rate limit with nothing left to step
// down, stops the run.
func (p *Populator) Populate(ctx context.Context, slug string, ids []string, label string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	chunk := p.chunkSize()
	st := populateState{remaining: ids, concurrency: p.maxParallel()}

	for len(st.remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return st.added, err
		}

		size := min(len(st.remaining), chunk*st.concurrency)
		window := st.remaining[:size]
		if p.OnAttempt != nil {
			p.OnAttempt(Attempt{Label: label, Concurrency: st.concurrency, Offset: st.added, Size: size})
		}

		err := p.addWindow(ctx, slug, window, chunk, st.concurrency)
		switch {
		case err == nil:
			st.remaining = st.remaining[size:]
			st.added += size
			log.Info("added %d/%d problems to %s", st.added, len(ids), label)
			if p.OnProgress != nil {
				p.OnProgress(Progress{Label: label, Added: st.added, Total: len(ids)})
			}
		case lc.IsRateLimited(err) && st.concurrency > 1:
			st.concurrency--
			log.Warn("rate limited while adding to %s, retrying with %d parallel requests", label, st.concurrency)
		default:
			return st.added, fmt.Errorf("failed to add problems to %s: %w", label, err)
		}
	}

	return st.added, nil
}

// addWindow sends window as chunk-sized batches, at most concurrency at a time,
// and waits for all of them.
func (p *Populator) addWindow(ctx context.Context, slug string, window []string, chunk, concurrency int) error {
	wp := pool.New().WithContext(ctx).WithMaxGoroutines(concurrency)
	for start := 0; start < len(window); start += chunk {
		batch := window[start:min(start+chunk, len(window))]
		wp.Go(func(ctx context.Context) error {
			return p.Adder.AddItems(ctx, slug, batch)
		})
	}
	return wp.Wait()
}
