package workers

import (
	"context"
	"time"

	"github.com/phonginreallife/rentdesk/db"
	"go.uber.org/zap"
)

// ReconcileWorker periodically moves leases and payments whose dates have
// passed into their follow-up state. Clients render lease and payment status
// as stored, so this is what keeps occupancy and overdue badges current.
type ReconcileWorker struct {
	Store    *db.MemoryStore
	Interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewReconcileWorker(store *db.MemoryStore, interval time.Duration, logger *zap.Logger) *ReconcileWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileWorker{
		Store:    store,
		Interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs one pass immediately, then one per interval until ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Info("Reconcile worker started", zap.Duration("interval", w.Interval))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.RunOnce()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single reconciliation pass
func (w *ReconcileWorker) RunOnce() db.ReconcileStats {
	stats := w.Store.Reconcile(w.now())
	if stats.Changed() {
		w.logger.Info("Reconciled records",
			zap.Int("payments_overdue", stats.PaymentsOverdue),
			zap.Int("leases_activated", stats.LeasesActivated),
			zap.Int("leases_expired", stats.LeasesExpired),
		)
	}
	return stats
}
