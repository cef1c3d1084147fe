package workers

import (
	"context"
	"log"
	"time"

	"reward-collect-system/services"
)

// FlushWorker retries failed persistence writes in the background. The core
// services never roll back in-memory state when a write fails; this worker is
// what closes the inconsistency window.
type FlushWorker struct {
	Ledger    *services.LedgerService
	Cooldowns *services.CooldownService
	Watch     *services.WatchService
}

func NewFlushWorker(ledger *services.LedgerService, cooldowns *services.CooldownService, watch *services.WatchService) *FlushWorker {
	return &FlushWorker{Ledger: ledger, Cooldowns: cooldowns, Watch: watch}
}

// PollFlush retries dirty state every interval until the context is canceled.
// A final flush runs on shutdown so a clean stop loses nothing.
func PollFlush(ctx context.Context, w *FlushWorker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Flush worker stopping, final flush...")
			w.flushOnce()
			return
		case <-ticker.C:
			w.flushOnce()
		}
	}
}

func (w *FlushWorker) flushOnce() {
	total := w.Ledger.FlushDirty() + w.Cooldowns.FlushDirty() + w.Watch.FlushDirty()
	if total > 0 {
		log.Printf("✅ Flush worker recovered %d pending writes", total)
	}
}
