package services

import (
	"context"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/maxaizer/divar-watcher/internal/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

type watchScheduler interface {
	Schedule(w *Watch) cron.EntryID
	Cancel(id cron.EntryID)
}

// WatchRegistry is the only owner of subscriber watches. All mutations go through
// StartWatch and StopWatch and are serialized by mu.
type WatchRegistry struct {
	ctx           context.Context
	mu            sync.Mutex
	watches       map[models.SubscriberID]*Watch
	tickLocks     map[models.SubscriberID]*sync.Mutex
	scheduler     watchScheduler
	preserveDedup bool
	dedupTTL      time.Duration
}

func NewWatchRegistry(ctx context.Context, scheduler watchScheduler, preserveDedup bool,
	dedupTTL time.Duration) (*WatchRegistry, error) {

	if scheduler == nil {
		return nil, errors.New("scheduler is nil")
	}

	return &WatchRegistry{
		ctx:           ctx,
		watches:       make(map[models.SubscriberID]*Watch),
		tickLocks:     make(map[models.SubscriberID]*sync.Mutex),
		scheduler:     scheduler,
		preserveDedup: preserveDedup,
		dedupTTL:      dedupTTL,
	}, nil
}

// StartWatch replaces any active watch of the subscriber. Its dedup store is carried over
// only when the registry preserves dedup on restart.
func (r *WatchRegistry) StartWatch(subscriberID models.SubscriberID, criteria models.SearchCriteria) error {

	if err := criteria.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dedup := NewDedupStore(r.dedupTTL)
	if previous, ok := r.watches[subscriberID]; ok {
		r.stop(previous)
		if r.preserveDedup {
			dedup = previous.dedup
		}
	}

	tickMu, ok := r.tickLocks[subscriberID]
	if !ok {
		tickMu = &sync.Mutex{}
		r.tickLocks[subscriberID] = tickMu
	}

	watch := newWatch(r.ctx, subscriberID, criteria, dedup, tickMu)
	watch.entryID = r.scheduler.Schedule(watch)
	r.watches[subscriberID] = watch
	metrics.ActiveWatchesGauge.Set(float64(len(r.watches)))

	log.WithField("subscriber_id", subscriberID).Infof("watch started, deposit limit: %d, rent limit: %d, known listings: %d",
		criteria.DepositLimit, criteria.RentLimit, dedup.Len())
	return nil
}

// StopWatch reports whether the subscriber had an active watch.
// A tick already in flight is allowed to finish.
func (r *WatchRegistry) StopWatch(subscriberID models.SubscriberID) bool {

	r.mu.Lock()
	defer r.mu.Unlock()

	watch, ok := r.watches[subscriberID]
	if !ok {
		return false
	}

	r.stop(watch)
	delete(r.watches, subscriberID)
	metrics.ActiveWatchesGauge.Set(float64(len(r.watches)))

	log.WithField("subscriber_id", subscriberID).Info("watch stopped")
	return true
}

func (r *WatchRegistry) Criteria(subscriberID models.SubscriberID) (models.SearchCriteria, bool) {

	r.mu.Lock()
	defer r.mu.Unlock()

	watch, ok := r.watches[subscriberID]
	if !ok {
		return models.SearchCriteria{}, false
	}
	return watch.criteria, true
}

func (r *WatchRegistry) Subscribers() []models.SubscriberID {

	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Keys(r.watches)
}

func (r *WatchRegistry) StopAll() {
	for _, subscriberID := range r.Subscribers() {
		r.StopWatch(subscriberID)
	}
}

func (r *WatchRegistry) stop(watch *Watch) {
	watch.cancel()
	r.scheduler.Cancel(watch.entryID)
}
