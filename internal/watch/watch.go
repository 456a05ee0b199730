// Package watch provides one-shot waiting primitives with explicit cancellation.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/wallandteen/leetsession/internal/logger"
)

var log = logger.Named("watch")

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Until polls cond every interval until it reports true, returns an error, or
// ctx is done. cond is evaluated once immediately.
func Until(ctx context.Context, interval time.Duration, cond Condition) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DefaultConfirmWindow is how long a second interrupt counts as confirmation.
const DefaultConfirmWindow = 5 * time.Second

// Guard asks for confirmation before an interrupt cancels work that would
// leave something half done.
type Guard struct {
	// Risky reports whether leaving now needs confirmation.
	Risky Condition
	// Warn shows the confirmation prompt.
	Warn func(message string)
	// Message is passed to Warn.
	Message string
	// ConfirmWindow defaults to DefaultConfirmWindow.
	ConfirmWindow time.Duration

	now func() time.Time
}

// Watch returns a context that is canceled once the user really wants to
// leave: on the first signal when Risky reports false (or fails), or on a
// second signal within ConfirmWindow otherwise. The returned stop function
// releases the watcher and cancels the context.
func (g *Guard) Watch(parent context.Context, signals <-chan os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	window := g.ConfirmWindow
	if window <= 0 {
		window = DefaultConfirmWindow
	}
	now := g.now
	if now == nil {
		now = time.Now
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var armedUntil time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
			}

			if !armedUntil.IsZero() && now().Before(armedUntil) {
				log.Info("leave confirmed")
				cancel()
				return
			}

			risky, err := g.Risky(ctx)
			if err != nil {
				log.Warn("could not check for unfinished work: %v", err)
			}
			if err != nil || !risky {
				cancel()
				return
			}

			if g.Warn != nil {
				g.Warn(g.Message)
			}
			armedUntil = now().Add(window)
		}
	}()

	return ctx, func() {
		cancel()
		wg.Wait()
	}
}
