package llm

import "strings"

// JSONBlock strips the markdown code fence a model often wraps around a
// JSON reply, returning the bare JSON text.
func JSONBlock(raw string) string {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
