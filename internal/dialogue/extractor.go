package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/benhoenig/NOVA-II/internal/llm"
)

// LLMExtractor reads goal fields out of free-form Thai or English
// messages with the chat model.
type LLMExtractor struct {
	client llm.Client
}

func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{client: client}
}

func (e *LLMExtractor) Extract(ctx context.Context, utterance string, state map[string]string) (Proposal, error) {
	var b strings.Builder
	b.WriteString(utterance)
	if len(state) > 0 {
		b.WriteString("\n\nAlready collected:")
		for _, k := range sortedKeys(state) {
			fmt.Fprintf(&b, "\n- %s: %s", k, state[k])
		}
	}

	resp, err := e.client.Chat(ctx, llm.ExtractPrompt, []llm.Message{llm.UserMessage(b.String())})
	if err != nil {
		return Proposal{}, fmt.Errorf("extractor call: %w", err)
	}
	raw := llm.JSONBlock(resp.Content)
	if !gjson.Valid(raw) {
		return Proposal{}, fmt.Errorf("extractor returned invalid JSON: %q", resp.Content)
	}
	return Proposal{
		Name:        gjson.Get(raw, "name").String(),
		Description: gjson.Get(raw, "description").String(),
		Category:    gjson.Get(raw, "category").String(),
		DueDate:     gjson.Get(raw, "due_date").String(),
		Schedule:    gjson.Get(raw, "schedule").String(),
		Priority:    gjson.Get(raw, "priority").String(),
		Cancel:      gjson.Get(raw, "cancel").Bool(),
	}, nil
}
