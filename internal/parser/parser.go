package parser

import (
	"context"
	"strings"
	"time"
)

// Command is the classified intent of an inbound message.
type Command string

const (
	CommandReminder Command = "reminder"
	CommandList     Command = "list"
	CommandDone     Command = "done"
	CommandCancel   Command = "cancel"
)

// Vocabulary holds the keyword sets used for classification and prefix
// stripping. All matching is case-insensitive substring matching.
type Vocabulary struct {
	Reminder []string
	List     []string
	Done     []string
	Cancel   []string
}

// ParsedMessage is the outcome of parsing one inbound message. It lives
// only for the duration of that message's handling.
type ParsedMessage struct {
	Command Command
	Text    string
	DueAt   *time.Time
}

// Parser turns raw message text into a ParsedMessage.
type Parser struct {
	vocab     Vocabulary
	extractor *Extractor
}

// New builds a parser around the given vocabulary and datetime extractor.
func New(vocab Vocabulary, extractor *Extractor) *Parser {
	return &Parser{vocab: vocab, extractor: extractor}
}

// Parse classifies the message and, for new reminders, extracts the due
// time and cleaned task text. Classification never fails; it defaults
// to a new reminder.
func (p *Parser) Parse(ctx context.Context, message string) ParsedMessage {
	message = strings.TrimSpace(message)

	switch cmd := Classify(message, p.vocab); cmd {
	case CommandList, CommandDone, CommandCancel:
		return ParsedMessage{Command: cmd, Text: message}
	}

	dueAt, cleaned := p.extractor.Extract(ctx, message)
	return ParsedMessage{Command: CommandReminder, Text: cleaned, DueAt: dueAt}
}

// Classify picks the command type for a message. Priority order: list
// beats done beats cancel; anything else is a new reminder.
func Classify(message string, vocab Vocabulary) Command {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, vocab.List):
		return CommandList
	case containsAny(lower, vocab.Done):
		return CommandDone
	case containsAny(lower, vocab.Cancel):
		return CommandCancel
	}
	return CommandReminder
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
