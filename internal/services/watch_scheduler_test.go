package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/divar-watcher/internal/domain/events"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"sync"
	"testing"
	"time"
)

var testCriteria = models.SearchCriteria{DepositLimit: 400, RentLimit: 30}

type notificationRecorder struct {
	mu     sync.Mutex
	events []events.ListingFound
}

func (r *notificationRecorder) onListingFound(event events.ListingFound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *notificationRecorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for _, event := range r.events {
		ids = append(ids, event.Listing.ID)
	}
	return ids
}

func newTestScheduler(t *testing.T, fetcher pageFetcher) (*WatchScheduler, *notificationRecorder) {
	recorder := &notificationRecorder{}
	bus := EventBus.New()
	assert.NoError(t, bus.Subscribe(events.ListingFoundTopic, recorder.onListingFound))

	scheduler, err := NewWatchScheduler(context.Background(), bus, fetcher, testQuery, newTestExtractor(t), time.Second)
	assert.NoError(t, err)
	return scheduler, recorder
}

func newTestWatch(subscriberID models.SubscriberID) *Watch {
	return newWatch(context.Background(), subscriberID, testCriteria, NewDedupStore(0), &sync.Mutex{})
}

func Test_WatchScheduler_WhenSamePageTwice_ShouldNotifyOnce(t *testing.T) {

	assert := assert.New(t)

	page := listingsPage(
		card{href: "/x/1", title: "Apartment", deposit: "400,000,000", rent: "30,000,000"},
		card{href: "/x/2"},
	)
	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, testQuery.Build(testCriteria)).Return(page, nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	watch := newTestWatch(1)

	scheduler.runTick(watch)
	assert.Equal([]string{"divar.ir/x/1"}, recorder.ids())
	assert.Equal(1, watch.Dedup().Len())
	assert.True(watch.Dedup().Contains("divar.ir/x/1"))

	scheduler.runTick(watch)
	assert.Equal([]string{"divar.ir/x/1"}, recorder.ids())
	assert.Equal(2, fetcher.calls())
}

func Test_WatchScheduler_WhenFetchFails_ShouldKeepStateAndRetryNextTick(t *testing.T) {

	assert := assert.New(t)

	page := listingsPage(card{href: "/x/1", title: "Apartment"})
	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, mock.Anything).Return(nil, errors.New("network is unreachable")).Once()
	fetcher.On("GetPage", mock.Anything, mock.Anything).Return(page, nil).Once()

	scheduler, recorder := newTestScheduler(t, fetcher)
	watch := newTestWatch(1)

	scheduler.runTick(watch)
	assert.Empty(recorder.ids())
	assert.Equal(0, watch.Dedup().Len())

	scheduler.runTick(watch)
	assert.Equal([]string{"divar.ir/x/1"}, recorder.ids())
	fetcher.AssertExpectations(t)
}

func Test_WatchScheduler_WhenContainerMissing_ShouldNotNotify(t *testing.T) {

	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, mock.Anything).
		Return([]byte(`<html><body><div class="captcha">are you human?</div></body></html>`), nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	watch := newTestWatch(1)

	scheduler.runTick(watch)
	assert.Empty(t, recorder.ids())
	assert.Equal(t, 0, watch.Dedup().Len())
}

func Test_WatchScheduler_ShouldNotifyInPageOrder(t *testing.T) {

	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, mock.Anything).Return(listingsPage(
		card{href: "/x/3", title: "third"},
		card{href: "/x/1", title: "first"},
		card{href: "/x/3", title: "third again"},
		card{title: "broken"},
		card{href: "/x/2", title: "second"},
	), nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	scheduler.runTick(newTestWatch(1))

	assert.Equal(t, []string{"divar.ir/x/3", "divar.ir/x/1", "divar.ir/x/2"}, recorder.ids())
}

func Test_WatchScheduler_WhenWatchStopped_ShouldSkipTick(t *testing.T) {

	fetcher := &mockFetcher{}
	scheduler, recorder := newTestScheduler(t, fetcher)

	watch := newTestWatch(1)
	watch.cancel()
	scheduler.runTick(watch)

	assert.Equal(t, 0, fetcher.calls())
	assert.Empty(t, recorder.ids())
}

func Test_WatchScheduler_WhenSubscriberRestarted_ShouldKeepDedupFromPreviousWatch(t *testing.T) {

	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, mock.Anything).Return(listingsPage(card{href: "/x/1", title: "Apartment"}), nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	registry, err := NewWatchRegistry(context.Background(), scheduler, true, 0)
	assert.NoError(t, err)
	scheduler.Start()
	defer scheduler.Stop()

	assert.NoError(t, registry.StartWatch(1, testCriteria))
	assert.Eventually(t, func() bool { return len(recorder.ids()) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, registry.StartWatch(1, models.SearchCriteria{DepositLimit: 500, RentLimit: 40}))
	assert.Eventually(t, func() bool { return fetcher.calls() >= 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"divar.ir/x/1"}, recorder.ids())
	registry.StopAll()
}

func Test_WatchScheduler_ShouldRunImmediatelyAndStopOnStopWatch(t *testing.T) {

	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, mock.Anything).Return(listingsPage(card{href: "/x/1", title: "Apartment"}), nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	registry, err := NewWatchRegistry(context.Background(), scheduler, false, 0)
	assert.NoError(t, err)
	scheduler.Start()
	defer scheduler.Stop()

	assert.NoError(t, registry.StartWatch(7, testCriteria))
	assert.Eventually(t, func() bool { return fetcher.calls() >= 1 }, 500*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, []string{"divar.ir/x/1"}, recorder.ids())

	assert.True(t, registry.StopWatch(7))
	time.Sleep(100 * time.Millisecond)
	callsAfterStop := fetcher.calls()

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, callsAfterStop, fetcher.calls())
	assert.False(t, registry.StopWatch(7))
}

func Test_NewWatchScheduler_WhenIntervalTooShort_ShouldFail(t *testing.T) {
	_, err := NewWatchScheduler(context.Background(), EventBus.New(), &mockFetcher{}, testQuery,
		newTestExtractor(t), 10*time.Millisecond)
	assert.Error(t, err)
}

func Test_WatchScheduler_WhenOneSubscriberFetchHangs_ShouldStillNotifyOthers(t *testing.T) {

	slowCriteria := models.SearchCriteria{DepositLimit: 100, RentLimit: 10}
	release := make(chan struct{})

	fetcher := &mockFetcher{}
	fetcher.On("GetPage", mock.Anything, testQuery.Build(slowCriteria)).
		Run(func(mock.Arguments) { <-release }).
		Return(nil, errors.New("released"))
	fetcher.On("GetPage", mock.Anything, testQuery.Build(testCriteria)).
		Return(listingsPage(card{href: "/x/9", title: "Apartment"}), nil)

	scheduler, recorder := newTestScheduler(t, fetcher)
	registry, err := NewWatchRegistry(context.Background(), scheduler, true, 0)
	assert.NoError(t, err)
	scheduler.Start()

	assert.NoError(t, registry.StartWatch(1, slowCriteria))
	assert.Eventually(t, func() bool { return fetcher.calls() >= 1 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, registry.StartWatch(2, testCriteria))
	assert.Eventually(t, func() bool { return len(recorder.ids()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"divar.ir/x/9"}, recorder.ids())

	close(release)
	registry.StopAll()
	scheduler.Stop()
}
