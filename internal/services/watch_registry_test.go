package services

import (
	"context"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
)

type mockScheduler struct {
	mock.Mock
	scheduled []*Watch
}

func (m *mockScheduler) Schedule(w *Watch) cron.EntryID {
	m.scheduled = append(m.scheduled, w)
	args := m.Called(w)
	return args.Get(0).(cron.EntryID)
}

func (m *mockScheduler) Cancel(id cron.EntryID) {
	m.Called(id)
}

func newTestRegistry(t *testing.T, preserveDedup bool) (*WatchRegistry, *mockScheduler) {
	scheduler := &mockScheduler{}
	registry, err := NewWatchRegistry(context.Background(), scheduler, preserveDedup, 0)
	require.NoError(t, err)
	return registry, scheduler
}

func Test_WatchRegistry_StartWatch_ShouldScheduleAndExposeCriteria(t *testing.T) {

	assert := assert.New(t)
	registry, scheduler := newTestRegistry(t, true)
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(1)).Once()

	assert.NoError(registry.StartWatch(5, testCriteria))

	criteria, ok := registry.Criteria(5)
	assert.True(ok)
	assert.Equal(testCriteria, criteria)
	assert.Equal([]models.SubscriberID{5}, registry.Subscribers())

	_, ok = registry.Criteria(6)
	assert.False(ok)
	scheduler.AssertExpectations(t)
}

func Test_WatchRegistry_StartWatch_WhenCriteriaInvalid_ShouldFail(t *testing.T) {

	registry, scheduler := newTestRegistry(t, true)

	err := registry.StartWatch(5, models.SearchCriteria{DepositLimit: 0, RentLimit: 30})

	assert.ErrorIs(t, err, models.ErrInvalidCriteria)
	assert.Empty(t, registry.Subscribers())
	scheduler.AssertNotCalled(t, "Schedule", mock.Anything)
}

func Test_WatchRegistry_WhenRestartedWithPreserve_ShouldReplaceTimerAndKeepDedup(t *testing.T) {

	assert := assert.New(t)
	registry, scheduler := newTestRegistry(t, true)
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(1)).Once()
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(2)).Once()
	scheduler.On("Cancel", cron.EntryID(1)).Once()

	assert.NoError(registry.StartWatch(5, testCriteria))
	first := scheduler.scheduled[0]
	first.Dedup().Add("divar.ir/x/1")

	assert.NoError(registry.StartWatch(5, models.SearchCriteria{DepositLimit: 500, RentLimit: 40}))
	second := scheduler.scheduled[1]

	assert.True(first.stopped())
	assert.False(second.stopped())
	assert.Same(first.Dedup(), second.Dedup())
	assert.Same(first.tickMu, second.tickMu)
	assert.Len(registry.Subscribers(), 1)
	scheduler.AssertExpectations(t)
}

func Test_WatchRegistry_WhenRestartedWithReset_ShouldStartWithEmptyDedup(t *testing.T) {

	registry, scheduler := newTestRegistry(t, false)
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(1)).Once()
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(2)).Once()
	scheduler.On("Cancel", cron.EntryID(1)).Once()

	assert.NoError(t, registry.StartWatch(5, testCriteria))
	scheduler.scheduled[0].Dedup().Add("divar.ir/x/1")
	assert.NoError(t, registry.StartWatch(5, testCriteria))

	assert.Equal(t, 0, scheduler.scheduled[1].Dedup().Len())
	assert.Same(t, scheduler.scheduled[0].tickMu, scheduler.scheduled[1].tickMu)
}

func Test_WatchRegistry_StopWatch(t *testing.T) {

	assert := assert.New(t)
	registry, scheduler := newTestRegistry(t, true)
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(3)).Once()
	scheduler.On("Cancel", cron.EntryID(3)).Once()

	assert.False(registry.StopWatch(5))
	assert.NoError(registry.StartWatch(5, testCriteria))

	assert.True(registry.StopWatch(5))
	assert.True(scheduler.scheduled[0].stopped())
	assert.False(registry.StopWatch(5))
	_, ok := registry.Criteria(5)
	assert.False(ok)
	scheduler.AssertExpectations(t)
}

func Test_WatchRegistry_StopAll_ShouldCancelEveryWatch(t *testing.T) {

	registry, scheduler := newTestRegistry(t, true)
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(1)).Once()
	scheduler.On("Schedule", mock.Anything).Return(cron.EntryID(2)).Once()
	scheduler.On("Cancel", mock.Anything).Twice()

	assert.NoError(t, registry.StartWatch(1, testCriteria))
	assert.NoError(t, registry.StartWatch(2, testCriteria))

	registry.StopAll()

	assert.Empty(t, registry.Subscribers())
	scheduler.AssertExpectations(t)
}

func Test_NewWatchRegistry_WhenSchedulerNil_ShouldFail(t *testing.T) {
	_, err := NewWatchRegistry(context.Background(), nil, true, 0)
	assert.Error(t, err)
}
