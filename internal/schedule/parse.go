package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize parses a free-form reminder phrase in Thai or English into a
// Schedule. The language is detected from the phrase itself. Recognized
// forms: a daily time ("Daily 9AM", "ทุกวันเช้า 9 โมง"), a weekday list
// ("Tuesday,Thursday 20:00", "ทุกวันอังคารและพฤหัส เวลา 2 ทุ่ม"), and a
// day interval ("Every 3 days", "ทุก 3 วัน"). Anything ambiguous or
// unrecognized fails with ParseError; due-date phrases ("this week")
// fail with a hint so the caller can re-route them.
func Normalize(phrase string) (Schedule, error) {
	raw := strings.TrimSpace(phrase)
	if raw == "" {
		return Schedule{}, &ParseError{Phrase: phrase}
	}
	p0 := strings.ToLower(raw)

	if hint := dueDateHint(p0); hint != "" {
		return Schedule{}, &ParseError{Phrase: raw, Hint: hint}
	}

	p, every := cutInterval(p0)
	p, hour, minute, hasTime := cutTime(p)
	_, days := cutWeekdays(p)

	// A bare "every"/"ทุก" only means daily when an explicit daily word
	// or a time of day pins it down; "every morning" is a schedule,
	// "every launch" is not.
	daily := strings.Contains(p0, "ทุกวัน") ||
		containsWord(p0, "daily") || containsWord(p0, "everyday") ||
		strings.Contains(p0, "every day") || strings.Contains(p0, "each day") ||
		(hasTime && (strings.Contains(p0, "ทุก") || containsWord(p0, "every") || containsWord(p0, "each")))

	switch {
	case every >= 2:
		if days != 0 {
			return Schedule{}, &ParseError{Phrase: raw, Hint: "mixes a day interval with specific weekdays"}
		}
		days = 0
	case every == 1:
		days, every = everyDay, 0
	case days != 0:
		every = 0
	case daily:
		days = everyDay
	default:
		return Schedule{}, &ParseError{Phrase: raw}
	}

	if !hasTime {
		hour, minute = 9, 0 // morning convention
	}
	return Schedule{Days: days, Every: every, At: fmt.Sprintf("%02d:%02d", hour, minute)}, nil
}

// dueDateHint reports phrases that name a deadline rather than a
// recurrence. The dialogue layer routes those through ParseDueDate.
func dueDateHint(p string) string {
	deadlines := []string{
		"this week", "next week", "this month", "next month",
		"today", "tomorrow", "tonight",
		"สัปดาห์นี้", "สัปดาห์หน้า", "เดือนนี้", "เดือนหน้า",
		"อาทิตย์นี้", "อาทิตย์หน้า", "วันนี้", "พรุ่งนี้", "มะรืน", "คืนนี้",
	}
	for _, d := range deadlines {
		if strings.Contains(p, d) {
			return "reads like a due date, not a recurring schedule"
		}
	}
	if looksLikeDate(p) {
		return "reads like a due date, not a recurring schedule"
	}
	return ""
}

func looksLikeDate(p string) bool {
	if len(p) < 8 {
		return false
	}
	for i := 0; i < 4; i++ {
		if !isDigit(p[i]) {
			return false
		}
	}
	return strings.Count(p, "-") >= 2 || strings.Count(p, "/") >= 2
}

// --- interval ---

func cutInterval(p string) (string, int) {
	if containsWord(p, "weekly") || strings.Contains(p, "every week") || strings.Contains(p, "ทุกสัปดาห์") {
		return p, 7
	}
	if containsWord(p, "monthly") || strings.Contains(p, "every month") || strings.Contains(p, "ทุกเดือน") {
		return p, 30
	}

	// "every N days", "every other day"
	words := strings.Fields(p)
	for i, w := range words {
		if w != "every" && w != "each" {
			continue
		}
		if i+2 < len(words) && words[i+1] == "other" && strings.HasPrefix(words[i+2], "day") {
			return joinWithout(words, i, i+2), 2
		}
		if i+2 < len(words) && strings.HasPrefix(words[i+2], "day") {
			if n, err := strconv.Atoi(words[i+1]); err == nil && n > 0 {
				return joinWithout(words, i, i+2), n
			}
		}
	}

	// "ทุก 3 วัน", "ทุกๆ 3 วัน"
	if i := strings.Index(p, "ทุก"); i >= 0 {
		j := i + len("ทุก")
		for strings.HasPrefix(p[j:], "ๆ") {
			j += len("ๆ")
		}
		if n, end, ok := numberAfter(p, j); ok {
			k := skipSpaces(p, end)
			if strings.HasPrefix(p[k:], "วัน") && n > 0 {
				return p[:i] + " " + p[k+len("วัน"):], n
			}
		}
	}
	return p, 0
}

func joinWithout(words []string, from, to int) string {
	kept := make([]string, 0, len(words))
	for i, w := range words {
		if i >= from && i <= to {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// --- time of day ---

// cutTime finds the first time-of-day expression, removes it, and
// returns the remaining phrase with the parsed 24-hour time. Thai
// colloquial forms follow the conventional offsets: N ทุ่ม = 18+N
// (capped at 23:59), บ่าย N โมง = 12+N, ตี N = N in the small hours.
// A bare "N โมง" is morning for N >= 6 and afternoon otherwise.
func cutTime(p string) (string, int, int, bool) {
	// N ทุ่ม
	if i := strings.Index(p, "ทุ่ม"); i >= 0 {
		if n, start, ok := numberBefore(p, i); ok && n >= 1 && n <= 6 {
			h, m := 18+n, 0
			end := i + len("ทุ่ม")
			if strings.HasPrefix(p[end:], "ครึ่ง") {
				m = 30
				end += len("ครึ่ง")
			}
			if h > 23 {
				h, m = 23, 59
			}
			return p[:start] + " " + p[end:], h, m, true
		}
	}

	// ตี N
	if i := strings.Index(p, "ตี"); i >= 0 {
		if n, end, ok := numberAfter(p, i+len("ตี")); ok && n >= 1 && n <= 5 {
			return p[:i] + " " + p[end:], n, 0, true
		}
	}

	// บ่าย N โมง, บ่ายโมง
	if i := strings.Index(p, "บ่าย"); i >= 0 {
		after := i + len("บ่าย")
		if n, end, ok := numberAfter(p, after); ok && n >= 1 && n <= 5 {
			k := skipSpaces(p, end)
			if strings.HasPrefix(p[k:], "โมง") {
				h, m := 12+n, 0
				end = k + len("โมง")
				if strings.HasPrefix(p[end:], "ครึ่ง") {
					m = 30
					end += len("ครึ่ง")
				}
				return p[:i] + " " + p[end:], h, m, true
			}
		}
		if strings.HasPrefix(p[after:], "โมง") {
			return p[:i] + " " + p[after+len("โมง"):], 13, 0, true
		}
	}

	// เที่ยงคืน, เที่ยง
	if i := strings.Index(p, "เที่ยงคืน"); i >= 0 {
		return p[:i] + " " + p[i+len("เที่ยงคืน"):], 0, 0, true
	}
	if i := strings.Index(p, "เที่ยง"); i >= 0 {
		return p[:i] + " " + p[i+len("เที่ยง"):], 12, 0, true
	}

	// N โมง with optional เช้า/เย็น/ครึ่ง
	if i := strings.Index(p, "โมง"); i >= 0 {
		if n, start, ok := numberBefore(p, i); ok && n >= 1 && n <= 23 {
			end := i + len("โมง")
			m := 0
			if strings.HasPrefix(p[end:], "ครึ่ง") {
				m = 30
				end += len("ครึ่ง")
			}
			h := n
			switch {
			case strings.HasPrefix(p[end:], "เช้า"):
				end += len("เช้า")
			case strings.HasPrefix(p[end:], "เย็น"):
				end += len("เย็น")
				if n <= 6 {
					h = n + 12
				}
			case n <= 5:
				h = n + 12 // afternoon by convention
			}
			if h <= 23 {
				return p[:start] + " " + p[end:], h, m, true
			}
		}
	}

	// HH:MM / HH.MM, optional น. or am/pm suffix
	if start, end, h, m, ok := findClock(p); ok {
		return p[:start] + " " + p[end:], h, m, true
	}

	// bare meridiem: "9am", "9 pm"
	if out, h, m, ok := cutMeridiem(p); ok {
		return out, h, m, true
	}

	// time-of-day words
	wordTimes := []struct {
		word string
		h    int
		thai bool
	}{
		{"เช้า", 9, true}, {"เย็น", 18, true}, {"ค่ำ", 19, true}, {"คืน", 20, true}, {"บ่าย", 15, true},
		{"midnight", 0, false}, {"noon", 12, false}, {"midday", 12, false},
		{"morning", 9, false}, {"afternoon", 15, false}, {"evening", 18, false}, {"night", 20, false},
	}
	for _, wt := range wordTimes {
		if wt.thai {
			if i := strings.Index(p, wt.word); i >= 0 {
				return p[:i] + " " + p[i+len(wt.word):], wt.h, 0, true
			}
			continue
		}
		if out, ok := cutWord(p, wt.word); ok {
			return out, wt.h, 0, true
		}
	}

	return p, 0, 0, false
}

func findClock(p string) (start, end, h, m int, ok bool) {
	for i := 0; i < len(p); i++ {
		if !isDigit(p[i]) {
			continue
		}
		j := i
		for j < len(p) && j-i < 2 && isDigit(p[j]) {
			j++
		}
		if j >= len(p) || (p[j] != ':' && p[j] != '.') {
			i = j
			continue
		}
		k := j + 1
		if k+2 > len(p) || !isDigit(p[k]) || !isDigit(p[k+1]) {
			i = j
			continue
		}
		if k+2 < len(p) && isDigit(p[k+2]) {
			i = k
			continue
		}
		hh, _ := strconv.Atoi(p[i:j])
		mm, _ := strconv.Atoi(p[k : k+2])
		if hh > 23 || mm > 59 {
			i = j
			continue
		}
		e := k + 2
		s := skipSpaces(p, e)
		switch {
		case strings.HasPrefix(p[s:], "น."):
			e = s + len("น.")
		case hasMeridiem(p[s:], "pm"):
			if hh < 12 {
				hh += 12
			}
			e = s + meridiemLen(p[s:])
		case hasMeridiem(p[s:], "am"):
			if hh == 12 {
				hh = 0
			}
			e = s + meridiemLen(p[s:])
		}
		return i, e, hh, mm, true
	}
	return 0, 0, 0, 0, false
}

func cutMeridiem(p string) (string, int, int, bool) {
	words := strings.Fields(p)
	for i, w := range words {
		digits := w
		suffix := ""
		if n := strings.IndexFunc(w, func(r rune) bool { return r < '0' || r > '9' }); n > 0 {
			digits, suffix = w[:n], w[n:]
		}
		h, err := strconv.Atoi(digits)
		if err != nil || h < 1 || h > 12 {
			continue
		}
		if suffix == "" && i+1 < len(words) {
			next := strings.ReplaceAll(words[i+1], ".", "")
			if next == "am" || next == "pm" {
				return joinWithout(words, i, i+1), meridiemHour(h, next), 0, true
			}
			continue
		}
		suffix = strings.ReplaceAll(suffix, ".", "")
		if suffix == "am" || suffix == "pm" {
			return joinWithout(words, i, i), meridiemHour(h, suffix), 0, true
		}
	}
	return p, 0, 0, false
}

func meridiemHour(h int, suffix string) int {
	if suffix == "pm" && h < 12 {
		return h + 12
	}
	if suffix == "am" && h == 12 {
		return 0
	}
	return h
}

func hasMeridiem(s, which string) bool {
	s = strings.ReplaceAll(s, ".", "")
	return strings.HasPrefix(s, which) && (len(s) == len(which) || !isLetter(s[len(which)]))
}

func meridiemLen(s string) int {
	n := 0
	for n < len(s) && (isLetter(s[n]) || s[n] == '.') {
		n++
	}
	return n
}

// --- weekdays ---

var thaiDays = []struct {
	name string
	day  time.Weekday
}{
	{"พฤหัสบดี", time.Thursday}, {"พฤหัส", time.Thursday},
	{"จันทร์", time.Monday}, {"อังคาร", time.Tuesday}, {"พุธ", time.Wednesday},
	{"ศุกร์", time.Friday}, {"เสาร์", time.Saturday}, {"อาทิตย์", time.Sunday},
}

var englishDays = []struct {
	name string
	day  time.Weekday
}{
	{"mondays", time.Monday}, {"tuesdays", time.Tuesday}, {"wednesdays", time.Wednesday},
	{"thursdays", time.Thursday}, {"fridays", time.Friday}, {"saturdays", time.Saturday},
	{"sundays", time.Sunday},
	{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
	{"thursday", time.Thursday}, {"friday", time.Friday}, {"saturday", time.Saturday},
	{"sunday", time.Sunday},
	{"thurs", time.Thursday}, {"tues", time.Tuesday},
	{"mon", time.Monday}, {"tue", time.Tuesday}, {"weds", time.Wednesday}, {"wed", time.Wednesday},
	{"thur", time.Thursday}, {"thu", time.Thursday}, {"fri", time.Friday},
	{"sat", time.Saturday}, {"sun", time.Sunday},
}

const weekdayMask = uint8(1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday)
const weekendMask = uint8(1<<time.Saturday | 1<<time.Sunday)

func cutWeekdays(p string) (string, uint8) {
	var days uint8

	for _, w := range []string{"weekends", "weekend"} {
		if out, ok := cutWord(p, w); ok {
			p, days = out, days|weekendMask
		}
	}
	for _, w := range []string{"weekdays", "weekday"} {
		if out, ok := cutWord(p, w); ok {
			p, days = out, days|weekdayMask
		}
	}
	if i := strings.Index(p, "วันธรรมดา"); i >= 0 {
		p = p[:i] + " " + p[i+len("วันธรรมดา"):]
		days |= weekdayMask
	}

	for _, td := range thaiDays {
		for {
			i := strings.Index(p, td.name)
			if i < 0 {
				break
			}
			p = p[:i] + " " + p[i+len(td.name):]
			days |= 1 << uint(td.day)
		}
	}
	for _, ed := range englishDays {
		for {
			out, ok := cutWord(p, ed.name)
			if !ok {
				break
			}
			p = out
			days |= 1 << uint(ed.day)
		}
	}
	return p, days
}

// --- scanning helpers ---

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func skipSpaces(p string, i int) int {
	for i < len(p) && p[i] == ' ' {
		i++
	}
	return i
}

// numberBefore reads the digits immediately preceding p[idx], allowing
// spaces in between, and reports the value and its start offset.
func numberBefore(p string, idx int) (val, start int, ok bool) {
	j := idx - 1
	for j >= 0 && p[j] == ' ' {
		j--
	}
	end := j + 1
	for j >= 0 && isDigit(p[j]) {
		j--
	}
	if j+1 == end {
		return 0, 0, false
	}
	n, err := strconv.Atoi(p[j+1 : end])
	if err != nil {
		return 0, 0, false
	}
	return n, j + 1, true
}

// numberAfter reads the digits following p[idx], allowing spaces in
// between, and reports the value and the offset just past the digits.
func numberAfter(p string, idx int) (val, end int, ok bool) {
	i := skipSpaces(p, idx)
	j := i
	for j < len(p) && isDigit(p[j]) {
		j++
	}
	if j == i {
		return 0, 0, false
	}
	n, err := strconv.Atoi(p[i:j])
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

func containsWord(p, w string) bool {
	_, ok := findWord(p, w)
	return ok
}

// cutWord removes the first whole-word occurrence of w from p.
func cutWord(p, w string) (string, bool) {
	i, ok := findWord(p, w)
	if !ok {
		return p, false
	}
	return p[:i] + " " + p[i+len(w):], true
}

func findWord(p, w string) (int, bool) {
	for idx := 0; idx <= len(p)-len(w); {
		i := strings.Index(p[idx:], w)
		if i < 0 {
			return 0, false
		}
		i += idx
		before := i == 0 || !isLetter(p[i-1])
		after := i+len(w) >= len(p) || !isLetter(p[i+len(w)])
		if before && after {
			return i, true
		}
		idx = i + len(w)
	}
	return 0, false
}
