package bot

import (
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/maxaizer/divar-watcher/internal/logger"
	log "github.com/sirupsen/logrus"
	"time"
)

type intakeState int

const (
	intakeIdle intakeState = iota
	intakeAwaitingDeposit
	intakeAwaitingRent
	intakeComplete
)

func (s intakeState) String() string {
	switch s {
	case intakeIdle:
		return "idle"
	case intakeAwaitingDeposit:
		return "awaiting_deposit"
	case intakeAwaitingRent:
		return "awaiting_rent"
	case intakeComplete:
		return "complete"
	default:
		return fmt.Sprintf("intakeState(%d)", int(s))
	}
}

const (
	depositPrompt  = "Welcome! Let's start by entering your desired deposit amount (in millions). e.g: 400,000,000 = 400"
	depositInvalid = "Invalid deposit amount. Please enter a valid number."
	rentPrompt     = "Great! Now, enter your desired rent amount (in millions). e.g: 30,000,000 = 30"
	rentInvalid    = "Invalid rent amount. Please enter a valid number."
)

// startWatchCommand collects criteria in a fixed deposit -> rent dialogue and starts the watch.
// There is no way out except completing both prompts or sending /start again.
type startWatchCommand struct {
	api            apiInterface
	chatID         int64
	watches        watchRegistry
	pollInterval   time.Duration
	state          intakeState
	depositInput   inputHandler
	rentInput      inputHandler
	depositLimit   int64
	rentLimit      int64
	finishCallback func()
}

func newStartWatchCommand(api apiInterface, chatID int64, watches watchRegistry,
	pollInterval time.Duration) *startWatchCommand {

	cmd := &startWatchCommand{api: api, chatID: chatID, watches: watches, pollInterval: pollInterval}

	cmd.depositInput = newLimitInput(chatID, depositPrompt, depositInvalid, func(limit int64) {
		cmd.depositLimit = limit
		cmd.state = intakeAwaitingRent
	})

	cmd.rentInput = newLimitInput(chatID, rentPrompt, rentInvalid, func(limit int64) {
		cmd.rentLimit = limit
		cmd.state = intakeComplete
	})

	return cmd
}

func (c *startWatchCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *startWatchCommand) Run() {
	c.state = intakeAwaitingDeposit
	_, _ = sendWithLogError(c.api, c.depositInput.InitMessage())
}

func (c *startWatchCommand) OnUserInput(input string) {

	switch c.state {
	case intakeAwaitingDeposit:
		if msg := c.depositInput.HandleInput(input); msg != nil {
			_, _ = sendWithLogError(c.api, msg)
			return
		}
		_, _ = sendWithLogError(c.api, c.rentInput.InitMessage())
	case intakeAwaitingRent:
		if msg := c.rentInput.HandleInput(input); msg != nil {
			_, _ = sendWithLogError(c.api, msg)
			return
		}
		c.startWatch()
		c.state = intakeIdle
		if c.finishCallback != nil {
			c.finishCallback()
		}
	default:
		log.Warnf("unexpected input in intake state %v for chat %d", c.state, c.chatID)
	}
}

func (c *startWatchCommand) startWatch() {

	msg := botApi.NewMessage(c.chatID, "")
	criteria := models.SearchCriteria{DepositLimit: c.depositLimit, RentLimit: c.rentLimit}

	if err := c.watches.StartWatch(models.SubscriberID(c.chatID), criteria); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeInternal).Errorf("failed to start watch: %v", err)
		msg.Text = "Internal error!"
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	msg.Text = fmt.Sprintf("Searching for apartments... I will check for new items every %s.", durationText(c.pollInterval))
	_, _ = sendWithLogError(c.api, msg)
}

func durationText(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return pluralize(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return pluralize(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
