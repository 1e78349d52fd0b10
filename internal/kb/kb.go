// Package kb models the personal knowledge base: categorized entries
// with tags and a term-frequency search over them.
package kb

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Category string

const (
	Notes     Category = "Notes"
	Lessons   Category = "Lessons Learned"
	Business  Category = "Business"
	Customers Category = "Customers"
	Other     Category = "Other"
)

func Categories() []Category {
	return []Category{Notes, Lessons, Business, Customers, Other}
}

// categoryAliases maps user phrasing, Thai included, onto a category.
var categoryAliases = map[string]Category{
	"notes":           Notes,
	"note":            Notes,
	"บันทึก":          Notes,
	"lessons":         Lessons,
	"lesson":          Lessons,
	"lessons learned": Lessons,
	"lesson learned":  Lessons,
	"บทเรียน":         Lessons,
	"business":        Business,
	"ธุรกิจ":          Business,
	"customers":       Customers,
	"customer":        Customers,
	"contacts":        Customers,
	"contact":         Customers,
	"ลูกค้า":          Customers,
	"other":           Other,
	"อื่นๆ":           Other,
}

// NormalizeCategory maps free-form category wording to one of the five
// categories. Anything unrecognized files under Other rather than
// failing; a misfiled entry is still findable.
func NormalizeCategory(s string) Category {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return Other
}

// KnownAlias reports whether the word names a category in either
// language.
func KnownAlias(s string) bool {
	_, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Prefix is the identifier prefix for entries in this category.
func (c Category) Prefix() string {
	switch c {
	case Notes:
		return "NOTE"
	case Lessons:
		return "LES"
	case Business:
		return "BUS"
	case Customers:
		return "CONT"
	default:
		return "OTH"
	}
}

// FormatID renders the nth identifier in a category, NOTE-001 style.
func FormatID(c Category, n int) string {
	return fmt.Sprintf("%s-%03d", c.Prefix(), n)
}

// Entry is one stored piece of knowledge. Tags is comma-separated.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Score counts occurrences of each query term across the entry's
// searchable text.
func (e *Entry) Score(terms []string) int {
	text := strings.ToLower(e.Title + " " + e.Content + " " + string(e.Category) + " " + e.Tags)
	score := 0
	for _, term := range terms {
		score += strings.Count(text, term)
	}
	return score
}

// Terms splits a query into lowercase search terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Rank filters entries to those matching the query and orders them by
// score, newest first among ties.
func Rank(entries []*Entry, query string) []*Entry {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}
	type scored struct {
		entry *Entry
		score int
	}
	var matched []scored
	for _, e := range entries {
		if s := e.Score(terms); s > 0 {
			matched = append(matched, scored{e, s})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].entry.CreatedAt.After(matched[j].entry.CreatedAt)
	})
	out := make([]*Entry, len(matched))
	for i, m := range matched {
		out[i] = m.entry
	}
	return out
}
