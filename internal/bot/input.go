package bot

import botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

type inputHandler interface {
	InitMessage() botApi.Chattable
	// HandleInput returns a reply to send when input is rejected, nil when accepted.
	HandleInput(input string) botApi.Chattable
}
