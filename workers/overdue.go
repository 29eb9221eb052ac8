package workers

import (
	"context"
	"log/slog"
	"time"

	"Gin_postgres_redis_lending/events"
	"Gin_postgres_redis_lending/models"
)

const DefaultSweepInterval = time.Hour

type OverdueStore interface {
	MarkOverdueBorrows(ctx context.Context, limit int) ([]models.Borrow, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev events.BorrowEvent) error
}

// OverdueSweeper periodically moves past-due ACTIVE borrows to LATE.
type OverdueSweeper struct {
	Store    OverdueStore
	Pub      Publisher
	Interval time.Duration
	Batch    int
	Log      *slog.Logger
}

func NewOverdueSweeper(store OverdueStore, pub Publisher, interval time.Duration, log *slog.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &OverdueSweeper{Store: store, Pub: pub, Interval: interval, Batch: 500, Log: log}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (w *OverdueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many borrows were marked late.
func (w *OverdueSweeper) Sweep(ctx context.Context) int {
	marked, err := w.Store.MarkOverdueBorrows(ctx, w.Batch)
	if err != nil {
		w.Log.Error("overdue sweep failed", "marked", len(marked), "err", err)
	}
	for i := range marked {
		if w.Pub == nil {
			break
		}
		ev := events.FromBorrow(&marked[i], models.ActionMarkedLate, "")
		if err := w.Pub.Publish(ctx, ev); err != nil {
			w.Log.Warn("publish overdue event", "borrow_id", marked[i].ID, "err", err)
		}
	}
	if len(marked) > 0 {
		w.Log.Info("overdue sweep", "marked", len(marked))
	}
	return len(marked)
}
