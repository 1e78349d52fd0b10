package llm

import "context"

type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

type Response struct {
	Content string
}

// Client is a chat-completion backend. Calls that need structured output
// ask for JSON in the system prompt and parse the reply themselves.
type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error)
}

func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
