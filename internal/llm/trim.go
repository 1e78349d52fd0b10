package llm

// TrimMessages trims a message history to fit within a token budget.
//
// The budget should already account for the system prompt and a reserve
// for the model's output. This function only manages the message list
// itself.
//
// Strategy:
//  1. Group messages into conversational turns (a user message plus the
//     assistant reply that follows it).
//  2. Always keep the most recent turn.
//  3. Drop the oldest turns first until the total fits within budget.
//
// Turns are never split, so the model never sees a reply without the
// question that produced it.
func TrimMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupMessages(messages)

	total := 0
	for _, g := range groups {
		total += g.tokens
	}

	if total <= maxTokens {
		return messages
	}

	// Always keep the last group (active turn). Trim from the front.
	kept := total
	dropUntil := 0
	for dropUntil < len(groups)-1 && kept > maxTokens {
		kept -= groups[dropUntil].tokens
		dropUntil++
	}

	// Rebuild the message slice from the surviving groups.
	var trimmed []Message
	for _, g := range groups[dropUntil:] {
		trimmed = append(trimmed, g.messages...)
	}
	return trimmed
}

// messageGroup is a unit of conversation that is kept or dropped as a
// whole.
type messageGroup struct {
	messages []Message
	tokens   int
}

// groupMessages splits a message slice into turns: a user message
// absorbs the assistant message that directly follows it; anything else
// is its own group.
func groupMessages(messages []Message) []messageGroup {
	var groups []messageGroup
	i := 0
	for i < len(messages) {
		msg := messages[i]
		group := messageGroup{
			messages: []Message{msg},
			tokens:   EstimateMessageTokens(msg),
		}
		i++
		if msg.Role == "user" && i < len(messages) && messages[i].Role == "assistant" {
			group.messages = append(group.messages, messages[i])
			group.tokens += EstimateMessageTokens(messages[i])
			i++
		}
		groups = append(groups, group)
	}
	return groups
}
