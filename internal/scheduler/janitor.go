package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// TokenStore is the slice of the user repository the janitor needs.
type TokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically clears expired password reset tokens so stale
// tokens never linger in the store past their window.
type Janitor struct {
	store    TokenStore
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewJanitor creates a janitor sweeping the store at the given interval.
// A non-positive interval falls back to 15 minutes.
func NewJanitor(store TokenStore, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		store:    store,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart does not leave expired tokens waiting a full interval.
func (j *Janitor) Start() {
	log.Printf("Janitor: sweeping expired reset tokens every %v", j.interval)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		j.sweep()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.ctx.Done():
				log.Println("Janitor: loop stopped")
				return
			case <-ticker.C:
				j.sweep()
			}
		}
	}()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(j.ctx, time.Minute)
	defer cancel()

	cleared, err := j.store.ClearExpiredResetTokens(ctx, j.now())
	if err != nil {
		log.Printf("Janitor: sweep failed: %v", err)
		return
	}
	if cleared > 0 {
		log.Printf("Janitor: cleared %d expired reset tokens", cleared)
	}
}

// Shutdown stops the loop, waiting up to timeout for an in-flight sweep.
func (j *Janitor) Shutdown(timeout time.Duration) {
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Janitor: shutdown complete")
	case <-time.After(timeout):
		log.Println("Janitor: timeout waiting for sweep to stop")
	}
}
