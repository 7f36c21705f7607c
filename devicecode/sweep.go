package devicecode

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically removes expired device codes from a store. The sweep
// is advisory: read paths already reject expired records, so a missed or
// late sweep only costs memory, never correctness.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper creates a sweeper that clears expired records every interval.
func NewSweeper(store Store, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.ClearExpired(ctx)
			if err != nil {
				s.logger.Printf("sweep: clearing expired device codes: %v", err)
				continue
			}
			if removed > 0 {
				s.logger.Printf("sweep: removed %d expired device codes", removed)
			}
		}
	}
}
