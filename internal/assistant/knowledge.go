package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/benhoenig/NOVA-II/internal/kb"
)

const maxSearchResults = 3

// storeKnowledge files a free-form "remember this" message. A leading
// category word before a colon picks the category, the first line
// becomes the title.
func (a *Assistant) storeKnowledge(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "What should I remember?", nil
	}

	category := string(kb.Other)
	if head, rest, ok := strings.Cut(text, ":"); ok && kb.KnownAlias(head) {
		category = head
		text = strings.TrimSpace(rest)
	}

	title, content := text, text
	if line, rest, ok := strings.Cut(text, "\n"); ok {
		title = strings.TrimSpace(line)
		content = strings.TrimSpace(rest)
	} else {
		title = truncate(title, 60)
	}

	entry := &kb.Entry{Title: title, Content: content, Category: kb.NormalizeCategory(category)}
	if err := a.db.AddEntry(ctx, entry); err != nil {
		return "", err
	}
	a.db.LogAction(ctx, "STORE_KNOWLEDGE", "Saved "+entry.ID+" "+entry.Title,
		map[string]any{"entry_id": entry.ID, "category": string(entry.Category)})
	return fmt.Sprintf("📚 Saved %s · %s", entry.ID, entry.Title), nil
}

func (a *Assistant) searchKnowledge(ctx context.Context, query string) (string, error) {
	entries, err := a.db.SearchEntries(ctx, query)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Nothing saved about %q yet.", strings.TrimSpace(query)), nil
	}
	if len(entries) > maxSearchResults {
		entries = entries[:maxSearchResults]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Found %d:", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s · %s", e.ID, e.Title)
		if e.Content != "" && e.Content != e.Title {
			fmt.Fprintf(&b, "\n%s", truncate(e.Content, 120))
		}
	}
	return b.String(), nil
}

// truncate counts runes so Thai text is never cut mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
