package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is a single inbound event from the messaging gateway.
// Exactly one of Message/Callback is set, matching Kind.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID     int
	ChatID int64
	Text   string
}

type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// ReplyMarkup is adapter-specific markup (Telegram: *telebot.ReplyMarkup).
	ReplyMarkup any
}

// Gateway is the messaging transport seen by the rest of the bot.
// Implementations pump inbound updates into the channel given to Start and
// must keep SendText/AnswerCallback usable until Stop returns.
type Gateway interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}
