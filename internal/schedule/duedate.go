package schedule

import (
	"strconv"
	"strings"
	"time"
)

// ParseDueDate resolves a due-date phrase in Thai or English against the
// reference instant. Returned dates are civil dates at UTC midnight.
// Recognized: literal YYYY-MM-DD, today/tomorrow and their Thai forms,
// "this week" (the coming Sunday), "this month" (last day of the month),
// "in N days", and a single weekday name (the next occurrence).
func ParseDueDate(phrase string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(phrase)
	if raw == "" {
		return time.Time{}, &ParseError{Phrase: phrase, Hint: "empty due date"}
	}
	p := strings.ToLower(raw)

	for _, layout := range []string{"2006-01-02", "2006-1-2", "2006/01/02"} {
		if t, err := time.Parse(layout, p); err == nil {
			return civil(t), nil
		}
	}

	today := civil(now)

	switch {
	case contains(p, "today", "วันนี้", "tonight", "คืนนี้"):
		return today, nil
	case contains(p, "day after tomorrow", "มะรืน"):
		return today.AddDate(0, 0, 2), nil
	case contains(p, "tomorrow", "พรุ่งนี้"):
		return today.AddDate(0, 0, 1), nil
	case contains(p, "next week", "สัปดาห์หน้า", "อาทิตย์หน้า"):
		return endOfWeek(today).AddDate(0, 0, 7), nil
	case contains(p, "this week", "สัปดาห์นี้", "อาทิตย์นี้"):
		return endOfWeek(today), nil
	case contains(p, "next month", "เดือนหน้า"):
		y, m, _ := today.Date()
		return time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC), nil
	case contains(p, "this month", "เดือนนี้", "end of month", "สิ้นเดือน"):
		y, m, _ := today.Date()
		return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC), nil
	}

	// "in N days", "อีก N วัน", "ภายใน N วัน"
	if n, ok := relativeDays(p); ok {
		return today.AddDate(0, 0, n), nil
	}

	// a single weekday name means its next occurrence
	if _, days := cutWeekdays(p); days != 0 {
		if target, ok := singleDay(days); ok {
			delta := (int(target) - int(now.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return today.AddDate(0, 0, delta), nil
		}
		return time.Time{}, &ParseError{Phrase: raw, Hint: "names more than one day"}
	}

	return time.Time{}, &ParseError{Phrase: raw}
}

// civil truncates t to its calendar date at UTC midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// endOfWeek returns the coming Sunday, or the date itself on a Sunday.
func endOfWeek(d time.Time) time.Time {
	delta := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, delta)
}

func contains(p string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(p, t) {
			return true
		}
	}
	return false
}

func relativeDays(p string) (int, bool) {
	marked := strings.Contains(p, "อีก") || strings.Contains(p, "ภายใน") ||
		containsWord(p, "in") || containsWord(p, "within")
	dated := strings.Contains(p, "วัน") || containsWord(p, "days") || containsWord(p, "day")
	if !marked || !dated {
		return 0, false
	}
	start := -1
	for i := 0; i < len(p); i++ {
		if isDigit(p[i]) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(p) && isDigit(p[end]) {
		end++
	}
	n, err := strconv.Atoi(p[start:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func singleDay(days uint8) (time.Weekday, bool) {
	var found time.Weekday
	count := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if days&(1<<uint(d)) != 0 {
			found = d
			count++
		}
	}
	return found, count == 1
}
