package line

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

const welcomeText = "สวัสดีค่ะ! I'm NOVA, your goal assistant. " +
	"Tell me about a goal you want to work on, or say \"help\" to see what I can do. " +
	"I'll also send you scheduled reminders for the goals you track here."

// Callback handles LINE webhook deliveries. The signature check uses the
// channel secret, so a bad signature is the caller's fault (400) while
// anything else is ours (500). LINE expects a 2xx within a few seconds;
// events are handled inline because replies ride on short-lived reply
// tokens.
func (b *Bot) Callback(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(b.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			log.Printf("line: rejected callback with bad signature")
			w.WriteHeader(http.StatusBadRequest)
		} else {
			log.Printf("line: parsing callback: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			b.onMessage(r.Context(), e)
		case webhook.FollowEvent:
			b.onFollow(r.Context(), e)
		case webhook.UnfollowEvent:
			b.onUnfollow(r.Context(), e)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (b *Bot) onMessage(ctx context.Context, e webhook.MessageEvent) {
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}
	user, ok := e.Source.(webhook.UserSource)
	if !ok {
		return
	}

	content := strings.TrimSpace(text.Text)
	if content == "" {
		return
	}

	reply, err := b.assistant.Handle(ctx, user.UserId, content)
	if err != nil {
		log.Printf("line: assistant error for %s: %v", user.UserId, err)
		reply = "Something went wrong. Try again?"
	}
	if reply == "" {
		return
	}
	b.reply(e.ReplyToken, reply)
}

func (b *Bot) onFollow(ctx context.Context, e webhook.FollowEvent) {
	user, ok := e.Source.(webhook.UserSource)
	if !ok {
		return
	}

	name := ""
	if profile, err := b.api.GetProfile(user.UserId); err != nil {
		log.Printf("line: fetching profile for %s: %v", user.UserId, err)
	} else {
		name = profile.DisplayName
	}

	if err := b.db.AddSubscriber(ctx, user.UserId, name); err != nil {
		log.Printf("line: subscribing %s: %v", user.UserId, err)
		return
	}
	log.Printf("line: %s subscribed to reminders", user.UserId)
	b.reply(e.ReplyToken, welcomeText)
}

func (b *Bot) onUnfollow(ctx context.Context, e webhook.UnfollowEvent) {
	user, ok := e.Source.(webhook.UserSource)
	if !ok {
		return
	}
	if err := b.db.RemoveSubscriber(ctx, user.UserId); err != nil {
		log.Printf("line: unsubscribing %s: %v", user.UserId, err)
		return
	}
	log.Printf("line: %s unsubscribed", user.UserId)
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > maxLen {
		end := maxLen
		// Split at a newline when one is in range, and never mid-rune:
		// Thai text runs three bytes per character.
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		} else {
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
