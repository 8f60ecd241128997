package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/maxaizer/divar-watcher/internal/clients/divar"
	"github.com/maxaizer/divar-watcher/internal/domain/events"
	"github.com/maxaizer/divar-watcher/internal/logger"
	"github.com/maxaizer/divar-watcher/internal/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

type pageFetcher interface {
	GetPage(ctx context.Context, target string) ([]byte, error)
}

const (
	tickResultOK         = "ok"
	tickResultFetchError = "fetch_error"
	tickResultParseError = "parse_error"
)

// WatchScheduler runs one cron entry per watch. Entries run in their own goroutines,
// so a slow subscriber never delays another one.
type WatchScheduler struct {
	ctx         context.Context
	cron        *cron.Cron
	bus         EventBus.Bus
	fetcher     pageFetcher
	query       divar.QueryBuilder
	extractor   *ListingExtractor
	interval    time.Duration
	tickTimeout time.Duration
}

func NewWatchScheduler(ctx context.Context, bus EventBus.Bus, fetcher pageFetcher, query divar.QueryBuilder,
	extractor *ListingExtractor, interval time.Duration) (*WatchScheduler, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is nil")
	}
	if extractor == nil {
		return nil, errors.New("extractor is nil")
	}
	if interval < time.Second {
		return nil, errors.Errorf("interval must be at least 1s, got %v", interval)
	}

	cronLogger := cron.PrintfLogger(log.StandardLogger())
	return &WatchScheduler{
		ctx: ctx,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		bus:         bus,
		fetcher:     fetcher,
		query:       query,
		extractor:   extractor,
		interval:    interval,
		tickTimeout: time.Minute,
	}, nil
}

func (s *WatchScheduler) SetTickTimeout(timeout time.Duration) {
	s.tickTimeout = timeout
}

func (s *WatchScheduler) Start() {
	s.cron.Start()
	log.Infof("watch scheduler started, poll interval: %v", s.interval)
}

// Stop waits for ticks in flight.
func (s *WatchScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("watch scheduler stopped")
}

// Schedule registers w with an immediate first tick.
func (s *WatchScheduler) Schedule(w *Watch) cron.EntryID {
	return s.cron.Schedule(&immediateThenEvery{every: cron.Every(s.interval)},
		cron.FuncJob(func() { s.runTick(w) }))
}

func (s *WatchScheduler) Cancel(id cron.EntryID) {
	s.cron.Remove(id)
}

func (s *WatchScheduler) runTick(w *Watch) {

	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	if w.stopped() {
		return
	}

	entry := log.WithFields(log.Fields{"subscriber_id": w.subscriberID, "tick_id": uuid.NewString()})
	start := time.Now()
	result := s.tick(w, entry)
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	metrics.TicksCounter.WithLabelValues(result).Inc()
}

func (s *WatchScheduler) tick(w *Watch, entry *log.Entry) string {

	ctx, cancel := context.WithTimeout(s.ctx, s.tickTimeout)
	defer cancel()

	target := s.query.Build(w.criteria)
	entry.Debugf("fetching %s", target)

	body, err := s.fetcher.GetPage(ctx, target)
	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeDivarApi).Errorf("failed to fetch listings page: %v", err)
		return tickResultFetchError
	}

	fragments, err := divar.ParsePage(body, s.extractor.selectors)
	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).Warnf("failed to parse listings page: %v", err)
		return tickResultParseError
	}
	if len(fragments) == 0 {
		entry.Warn("no items found in the container")
	}

	sent := 0
	for _, listing := range s.extractor.ExtractAll(fragments, entry) {
		if w.dedup.Contains(listing.ID) {
			continue
		}
		s.bus.Publish(events.ListingFoundTopic, events.ListingFound{SubscriberID: w.subscriberID, Listing: listing})
		w.dedup.Add(listing.ID)
		metrics.NotifiedListingsCounter.Inc()
		sent++
	}

	entry.Infof("tick finished, fragments: %d, new listings: %d, seen total: %d", len(fragments), sent, w.dedup.Len())
	return tickResultOK
}

// immediateThenEvery fires once right after scheduling and then at a constant delay.
// Next is only called from the cron run loop.
type immediateThenEvery struct {
	every cron.ConstantDelaySchedule
	fired bool
}

func (s *immediateThenEvery) Next(t time.Time) time.Time {
	if !s.fired {
		s.fired = true
		return t
	}
	return s.every.Next(t)
}
