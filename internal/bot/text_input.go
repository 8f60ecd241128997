package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"strings"
)

type validation struct {
	function     func(input string) bool
	errorMessage string
}

type textInput struct {
	chatID      int64
	initMessage string
	onFinish    func(input string)
	validations []validation
}

func newTextInput(chatID int64, initMessage string, onFinish func(input string)) *textInput {
	return &textInput{chatID: chatID, initMessage: initMessage, onFinish: onFinish}
}

func (a *textInput) AddValidation(validation validation) {
	a.validations = append(a.validations, validation)
}

func (a *textInput) InitMessage() botApi.Chattable {
	return botApi.NewMessage(a.chatID, a.initMessage)
}

func (a *textInput) HandleInput(input string) botApi.Chattable {

	input = strings.TrimSpace(input)
	for _, _validation := range a.validations {
		if !_validation.function(input) {
			return botApi.NewMessage(a.chatID, _validation.errorMessage)
		}
	}

	a.onFinish(input)
	return nil
}

// newLimitInput accepts strictly positive integers only.
func newLimitInput(chatID int64, initMessage, errorMessage string, onFinish func(limit int64)) *textInput {
	input := newTextInput(chatID, initMessage, func(input string) {
		limit, _ := models.ParseLimit(input)
		onFinish(limit)
	})
	input.AddValidation(validation{
		function: func(input string) bool {
			_, err := models.ParseLimit(input)
			return err == nil
		},
		errorMessage: errorMessage,
	})
	return input
}
