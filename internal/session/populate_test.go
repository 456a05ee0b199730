package session

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallandteen/leetsession/internal/lc"
)

// batchRecorder is an Adder that keeps every batch it receives.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
	fail    func(ids []string) error
}

func (b *batchRecorder) AddItems(ctx context.Context, slug string, ids []string) error {
	if b.fail != nil {
		if err := b.fail(ids); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, append([]string(nil), ids...))
	return nil
}

func (b *batchRecorder) added() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, batch := range b.batches {
		out = append(out, batch...)
	}
	sort.Strings(out)
	return out
}

func TestPopulate_EmptyMakesNoCalls(t *testing.T) {
	rec := &batchRecorder{}
	p := &Populator{Adder: rec}

	n, err := p.Populate(context.Background(), "s", nil, "label")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.batches)
}

func TestPopulate_ChunksAndWindows(t *testing.T) {
	rec := &batchRecorder{}
	var attempts []Attempt
	var progress []Progress
	p := &Populator{
		Adder:       rec,
		ChunkSize:   1000,
		MaxParallel: 2,
		OnAttempt:   func(a Attempt) { attempts = append(attempts, a) },
		OnProgress:  func(pr Progress) { progress = append(progress, pr) },
	}

	ids := problems(2500)
	n, err := p.Populate(context.Background(), "s", ids, "15 Oct 2026 [LS]")
	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	sizes := make([]int, 0, len(rec.batches))
	for _, b := range rec.batches {
		sizes = append(sizes, len(b))
	}
	sort.Ints(sizes)
	assert.Equal(t, []int{500, 1000, 1000}, sizes)
	assert.Equal(t, ids, rec.added())

	require.Len(t, attempts, 2)
	assert.Equal(t, Attempt{Label: "15 Oct 2026 [LS]", Concurrency: 2, Offset: 0, Size: 2000}, attempts[0])
	assert.Equal(t, Attempt{Label: "15 Oct 2026 [LS]", Concurrency: 2, Offset: 2000, Size: 500}, attempts[1])

	assert.Equal(t, []Progress{
		{Label: "15 Oct 2026 [LS]", Added: 2000, Total: 2500},
		{Label: "15 Oct 2026 [LS]", Added: 2500, Total: 2500},
	}, progress)
}

func TestPopulate_WindowsKeepInputOrder(t *testing.T) {
	rec := &batchRecorder{}
	p := &Populator{Adder: rec, ChunkSize: 3, MaxParallel: 1}

	ids := problems(7)
	_, err := p.Populate(context.Background(), "s", ids, "l")
	require.NoError(t, err)

	assert.Equal(t, [][]string{ids[0:3], ids[3:6], ids[6:7]}, rec.batches)
}

func TestPopulate_BacksOffOnRateLimit(t *testing.T) {
	var current atomic.Int32
	var seen []int

	rec := &batchRecorder{
		fail: func(ids []string) error {
			if current.Load() >= 2 {
				return rateLimited()
			}
			return nil
		},
	}
	p := &Populator{
		Adder:       rec,
		ChunkSize:   10,
		MaxParallel: 6,
		OnAttempt: func(a Attempt) {
			current.Store(int32(a.Concurrency))
			seen = append(seen, a.Concurrency)
		},
	}

	ids := problems(25)
	n, err := p.Populate(context.Background(), "s", ids, "l")
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, ids, rec.added())

	// Every window from 6 down to 2 is refused; the run finishes at 1.
	assert.Equal(t, []int{6, 5, 4, 3, 2, 1, 1, 1}, seen)
}

func TestPopulate_RateLimitBehindOtherFailureStillBacksOff(t *testing.T) {
	var current atomic.Int32
	var seen []int

	// At concurrency 2 the first chunk fails fast with a 500 and the second
	// is refused with a 429 after it; the window must count as rate limited.
	rec := &batchRecorder{
		fail: func(ids []string) error {
			if current.Load() < 2 {
				return nil
			}
			if ids[0] == "a" {
				return &lc.TransportError{Op: "batchAddQuestionsToFavorite", StatusCode: http.StatusInternalServerError}
			}
			time.Sleep(50 * time.Millisecond)
			return rateLimited()
		},
	}
	p := &Populator{
		Adder:       rec,
		ChunkSize:   2,
		MaxParallel: 2,
		OnAttempt: func(a Attempt) {
			current.Store(int32(a.Concurrency))
			seen = append(seen, a.Concurrency)
		},
	}

	ids := []string{"a", "b", "c", "d"}
	n, err := p.Populate(context.Background(), "s", ids, "l")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{2, 1, 1}, seen)
	assert.ElementsMatch(t, ids, rec.added())
}

func TestPopulate_RateLimitAtOneAborts(t *testing.T) {
	rec := &batchRecorder{fail: func([]string) error { return rateLimited() }}
	p := &Populator{Adder: rec, ChunkSize: 10, MaxParallel: 1}

	n, err := p.Populate(context.Background(), "s", problems(5), "l")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, lc.IsRateLimited(err))
}

func TestPopulate_OtherErrorsAbortImmediately(t *testing.T) {
	boom := errors.New("boom")
	var attempts int
	rec := &batchRecorder{fail: func([]string) error { return boom }}
	p := &Populator{
		Adder:       rec,
		ChunkSize:   10,
		MaxParallel: 6,
		OnAttempt:   func(Attempt) { attempts++ },
	}

	_, err := p.Populate(context.Background(), "s", problems(30), "l")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts, "non rate-limit errors must not be retried")
}

func TestPopulate_PartialProgressIsReported(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	rec := &batchRecorder{fail: func([]string) error {
		if calls.Add(1) > 2 {
			return boom
		}
		return nil
	}}
	p := &Populator{Adder: rec, ChunkSize: 5, MaxParallel: 1}

	n, err := p.Populate(context.Background(), "s", problems(20), "l")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 10, n)
}

func TestPopulate_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &batchRecorder{}
	p := &Populator{Adder: rec}
	_, err := p.Populate(ctx, "s", problems(3), "l")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.batches)
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"b", "d"}, Missing([]string{"a", "b", "c", "d"}, []string{"c", "a", "x"}))
	assert.Empty(t, Missing([]string{"a"}, []string{"a"}))
	assert.Empty(t, Missing(nil, []string{"a"}))
}
