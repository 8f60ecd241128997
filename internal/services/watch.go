package services

import (
	"context"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/robfig/cron/v3"
	"sync"
)

// Watch is one subscriber's recurring search. It is owned by WatchRegistry.
type Watch struct {
	subscriberID models.SubscriberID
	criteria     models.SearchCriteria
	dedup        *DedupStore
	// tickMu is shared by every watch of the same subscriber so ticks never overlap across a restart.
	tickMu  *sync.Mutex
	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

func newWatch(ctx context.Context, subscriberID models.SubscriberID, criteria models.SearchCriteria,
	dedup *DedupStore, tickMu *sync.Mutex) *Watch {

	ctx, cancel := context.WithCancel(ctx)
	return &Watch{
		subscriberID: subscriberID,
		criteria:     criteria,
		dedup:        dedup,
		tickMu:       tickMu,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (w *Watch) SubscriberID() models.SubscriberID {
	return w.subscriberID
}

func (w *Watch) Criteria() models.SearchCriteria {
	return w.criteria
}

func (w *Watch) Dedup() *DedupStore {
	return w.dedup
}

func (w *Watch) stopped() bool {
	return w.ctx.Err() != nil
}
