package bot

import (
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/divar-watcher/internal/domain/events"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	log "github.com/sirupsen/logrus"
	"net/http"
	"sync"
	"time"
)

type telegramAPI interface {
	apiInterface
	GetUpdatesChan(config botApi.UpdateConfig) botApi.UpdatesChannel
	StopReceivingUpdates()
}

type watchRegistry interface {
	StartWatch(subscriberID models.SubscriberID, criteria models.SearchCriteria) error
	StopWatch(subscriberID models.SubscriberID) bool
	Criteria(subscriberID models.SubscriberID) (models.SearchCriteria, bool)
}

const (
	startCommandName  = "start"
	stopCommandName   = "stop"
	statusCommandName = "status"
)

// updatesTimeout is the long polling timeout of getUpdates in seconds.
const updatesTimeout = 60

// stopUpdatesGrace bounds how long StopUpdates waits for an in-flight long poll.
const stopUpdatesGrace = 5 * time.Second

type Bot struct {
	api          telegramAPI
	bus          EventBus.Bus
	watches      watchRegistry
	pollInterval time.Duration
	inbox        *outbox
	outbox       *outbox
	running      sync.WaitGroup

	mu           sync.Mutex
	userContexts map[int64]*userContext
}

// NewBot bounds every telegram request by requestTimeout on top of long polling.
func NewBot(token string, bus EventBus.Bus, watches watchRegistry, pollInterval time.Duration,
	requestTimeout time.Duration) (*Bot, error) {

	client := &http.Client{Timeout: updatesTimeout*time.Second + requestTimeout}
	api, err := botApi.NewBotAPIWithClient(token, botApi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	return newBot(api, bus, watches, pollInterval)
}

func newBot(api telegramAPI, bus EventBus.Bus, watches watchRegistry, pollInterval time.Duration) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	if watches == nil {
		return nil, errors.New("watch registry is nil")
	}

	createdBot := &Bot{
		api:          api,
		bus:          bus,
		watches:      watches,
		pollInterval: pollInterval,
		inbox:        newOutbox("inbox"),
		outbox:       newOutbox("outbox"),
		userContexts: make(map[int64]*userContext),
	}

	err := bus.Subscribe(events.ListingFoundTopic, createdBot.onListingFound)
	if err != nil {
		return nil, err
	}
	return createdBot, nil
}

// Run blocks until StopUpdates is called. Messages of one chat are handled in arrival order.
func (b *Bot) Run() {

	b.running.Add(1)
	defer b.running.Done()

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = updatesTimeout

	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {

		if update.Message == nil {
			continue
		}

		if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
			continue
		}

		message := update.Message
		b.inbox.enqueue(message.Chat.ID, func() { b.handleMessage(message) })
	}
}

// StopUpdates ends update polling and waits for received messages to be handled.
// Updates arriving after stopUpdatesGrace are dropped.
func (b *Bot) StopUpdates() {
	b.api.StopReceivingUpdates()

	runFinished := make(chan struct{})
	go func() {
		b.running.Wait()
		close(runFinished)
	}()

	select {
	case <-runFinished:
	case <-time.After(stopUpdatesGrace):
		log.Warn("update polling is still in flight, not waiting for it")
	}
	b.inbox.close()
}

// Stop flushes queued notifications. Call it after the watches are stopped.
func (b *Bot) Stop() {
	if err := b.bus.Unsubscribe(events.ListingFoundTopic, b.onListingFound); err != nil {
		log.Warnf("failed to unsubscribe from %s: %v", events.ListingFoundTopic, err)
	}
	b.outbox.close()
}

func (b *Bot) contextOf(chatID int64) *userContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, ok := b.userContexts[chatID]
	if !ok {
		ctx = newUserContext(chatID)
		b.userContexts[chatID] = ctx
	}
	return ctx
}

func (b *Bot) handleMessage(message *botApi.Message) {

	ctx := b.contextOf(message.Chat.ID)
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if cmd := message.Command(); cmd != "" {
		b.handleCommand(ctx, cmd)
	} else {
		b.handleInput(ctx, message.Text)
	}
}

func (b *Bot) handleCommand(ctx *userContext, command string) {

	var response botApi.Chattable
	chatID := ctx.chatID

	switch command {
	case startCommandName:
		ctx.Reset()
		ctx.RunCommand(newStartWatchCommand(b.api, chatID, b.watches, b.pollInterval))
	case stopCommandName:
		if b.watches.StopWatch(models.SubscriberID(chatID)) {
			response = botApi.NewMessage(chatID, "Stopped. I will no longer send you new apartments.")
		} else {
			response = botApi.NewMessage(chatID, "There is no active search. Send /start to begin.")
		}
	case statusCommandName:
		criteria, ok := b.watches.Criteria(models.SubscriberID(chatID))
		if ok {
			response = botApi.NewMessage(chatID, statusText(criteria, b.pollInterval))
		} else {
			response = botApi.NewMessage(chatID, "There is no active search. Send /start to begin.")
		}
	default:
		response = botApi.NewMessage(chatID, "Unknown command!")
	}

	if response == nil {
		return
	}

	_, _ = sendWithLogError(b.api, response)
}

func (b *Bot) handleInput(ctx *userContext, input string) {

	if ctx.HasRunningCommand() {
		ctx.OnUserInput(input)
		return
	}

	_, _ = sendWithLogError(b.api, botApi.NewMessage(ctx.chatID, "Send /start to set up a search."))
}

func statusText(criteria models.SearchCriteria, pollInterval time.Duration) string {
	return fmt.Sprintf("Watching apartments with deposit up to %d million and rent up to %d million, checked every %s.",
		criteria.DepositLimit, criteria.RentLimit, durationText(pollInterval))
}
