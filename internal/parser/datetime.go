package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// LLMFallback extracts {task, when} from text the rule-based stages
// could not handle. An error or a nil when both count as a miss.
type LLMFallback interface {
	ExtractReminder(ctx context.Context, text string, now time.Time) (task string, dueAt *time.Time, err error)
}

// Extractor pulls a due time out of free text, returning the text with
// the consumed time expression removed. Stages run in order and the
// first success wins; every failure degrades to "no due time found".
type Extractor struct {
	loc      *time.Location
	keywords []string
	llm      LLMFallback
	rules    *when.Parser

	// now is overridable in tests.
	now func() time.Time
}

// NewExtractor builds an extractor for the given reference timezone and
// reminder-intent prefixes. fallback may be nil to disable the LLM stage.
func NewExtractor(loc *time.Location, reminderKeywords []string, fallback LLMFallback) *Extractor {
	rules := when.New(nil)
	rules.Add(en.All...)
	rules.Add(common.All...)

	return &Extractor{
		loc:      loc,
		keywords: reminderKeywords,
		llm:      fallback,
		rules:    rules,
		now:      time.Now,
	}
}

// WithClock overrides the extractor's time source. Used by tests.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Ordered time patterns tried when whole-text parsing fails. The first
// pattern whose capture parses wins and exactly the matched substring
// is removed from the text.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2}(?::\d{2})?(?:\s*(?:am|pm))?)\b`),
	regexp.MustCompile(`(?i)\b(tomorrow|today|tonight)\b`),
	regexp.MustCompile(`(?i)\b(in\s+\d+\s+(?:minutes?|hours?|days?))\b`),
	regexp.MustCompile(`\b(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`),
}

// Extract returns the due time found in message, if any, plus the task
// text with the time expression and any reminder-intent prefix removed.
// The returned time is in the extractor's reference timezone.
func (e *Extractor) Extract(ctx context.Context, message string) (*time.Time, string) {
	text := e.StripPrefix(strings.TrimSpace(message))
	now := e.now().In(e.loc)

	if due, cleaned, ok := e.parseWhole(text, now); ok {
		return due, cleaned
	}
	if due, cleaned, ok := e.parsePatterns(text, now); ok {
		return due, cleaned
	}
	if e.llm != nil {
		if task, due, err := e.llm.ExtractReminder(ctx, text, now); err == nil && due != nil {
			local := due.In(e.loc)
			if strings.TrimSpace(task) == "" {
				task = text
			}
			return &local, strings.TrimSpace(task)
		}
	}
	return nil, text
}

// StripPrefix removes a known reminder-intent prefix from the start of
// the message, along with a following colon or "to".
func (e *Extractor) StripPrefix(message string) string {
	lower := strings.ToLower(message)
	for _, keyword := range e.keywords {
		keyword = strings.ToLower(keyword)
		if !strings.HasPrefix(lower, keyword) {
			continue
		}
		rest := strings.TrimSpace(message[len(keyword):])
		if strings.HasPrefix(rest, ":") {
			rest = strings.TrimSpace(rest[1:])
		} else if len(rest) > 2 && strings.EqualFold(rest[:3], "to ") {
			rest = strings.TrimSpace(rest[3:])
		}
		return rest
	}
	return message
}

// parseWhole runs the natural-language rules over the entire text. On a
// match the matched span is removed, then any remaining word that parses
// as a date/time token on its own is dropped too.
func (e *Extractor) parseWhole(text string, now time.Time) (*time.Time, string, bool) {
	result, err := e.rules.Parse(text, now)
	if err != nil || result == nil {
		return nil, "", false
	}

	due := preferFuture(result.Time, now)
	cleaned := text[:result.Index] + text[result.Index+len(result.Text):]

	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, word := range words {
		if r, err := e.rules.Parse(word, now); err == nil && r != nil && len(r.Text) == len(word) {
			continue
		}
		kept = append(kept, word)
	}

	return &due, trimConnectives(strings.Join(kept, " ")), true
}

// parsePatterns scans the fixed pattern list and parses just the first
// matching substring.
func (e *Extractor) parsePatterns(text string, now time.Time) (*time.Time, string, bool) {
	for _, pattern := range timePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		due, ok := e.parseFragment(match[1], now)
		if !ok {
			continue
		}
		cleaned := strings.TrimSpace(strings.Replace(text, match[0], "", 1))
		return &due, trimConnectives(cleaned), true
	}
	return nil, "", false
}

func (e *Extractor) parseFragment(fragment string, now time.Time) (time.Time, bool) {
	if r, err := e.rules.Parse(fragment, now); err == nil && r != nil {
		return preferFuture(r.Time, now), true
	}
	if t, ok := parseClock(fragment, now); ok {
		return t, true
	}
	if t, ok := parseNumericDate(fragment, now); ok {
		return t, true
	}
	return time.Time{}, false
}

var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// parseClock handles explicit clock times such as "9am", "9:30 pm" or
// "14:30". A bare number without a colon or am/pm marker is rejected to
// avoid treating arbitrary digits as times.
func parseClock(fragment string, now time.Time) (time.Time, bool) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(fragment))
	if match == nil {
		return time.Time{}, false
	}
	if match[2] == "" && match[3] == "" {
		return time.Time{}, false
	}

	hour, _ := strconv.Atoi(match[1])
	minute := 0
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}
	switch strings.ToLower(match[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return preferFuture(t, now), true
}

// parseNumericDate handles dates like "25/12", "12/25" or "12/25/2024"
// using month/day order, at midnight local time.
func parseNumericDate(fragment string, now time.Time) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(fragment), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := now.Year()
	if len(parts) == 3 {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, false
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if len(parts) == 2 && t.Before(now) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

// preferFuture resolves ambiguous same-day times forward: a parsed
// instant already in the past moves to the next calendar day. AddDate
// keeps month and year boundaries correct.
func preferFuture(t, now time.Time) time.Time {
	if t.Before(now) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

var connectives = map[string]bool{
	"at": true, "on": true, "in": true, "by": true, "the": true, "for": true,
}

// trimConnectives drops dangling prepositions left at either end of the
// text after a time expression was cut out of the middle.
func trimConnectives(text string) string {
	words := strings.Fields(text)
	for len(words) > 0 && connectives[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	for len(words) > 0 && connectives[strings.ToLower(words[0])] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
