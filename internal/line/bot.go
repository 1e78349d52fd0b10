package line

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/benhoenig/NOVA-II/internal/assistant"
	"github.com/benhoenig/NOVA-II/internal/store"
)

// LINE rejects text messages over 5000 characters and more than five
// messages per reply or push.
const (
	maxMessageLen = 5000
	maxPerSend    = 5
)

// Bot bridges LINE webhook events to the assistant. Text messages become
// assistant turns; follow and unfollow events maintain the reminder
// subscriber list.
type Bot struct {
	api       *messaging_api.MessagingApiAPI
	secret    string
	assistant *assistant.Assistant
	db        *store.Store
}

func NewBot(api *messaging_api.MessagingApiAPI, channelSecret string, a *assistant.Assistant, database *store.Store) *Bot {
	return &Bot{api: api, secret: channelSecret, assistant: a, db: database}
}

// Push sends a message to one user outside of any reply context. The
// scheduler uses it to deliver reminder digests. A fresh retry key makes
// redelivery after a network failure safe.
func (b *Bot) Push(userID, text string) error {
	if _, err := b.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: textMessages(text),
	}, uuid.NewString()); err != nil {
		return fmt.Errorf("pushing to %s: %w", userID, err)
	}
	return nil
}

func (b *Bot) reply(token, text string) {
	if _, err := b.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: token,
		Messages:   textMessages(text),
	}); err != nil {
		log.Printf("line: sending reply: %v", err)
	}
}

func textMessages(s string) []messaging_api.MessageInterface {
	chunks := splitMessage(s, maxMessageLen)
	if len(chunks) > maxPerSend {
		chunks = chunks[:maxPerSend]
	}
	msgs := make([]messaging_api.MessageInterface, 0, len(chunks))
	for _, c := range chunks {
		msgs = append(msgs, messaging_api.TextMessage{Text: c})
	}
	return msgs
}
