package parser

import (
	"context"
	"testing"
	"time"
)

func testVocabulary() Vocabulary {
	return Vocabulary{
		Reminder: []string{"reminder:", "remind me", "set reminder", "don't forget", "remember to", "task:", "todo:"},
		List:     []string{"list", "show"},
		Done:     []string{"done", "complete", "completed", "finished", "tick off"},
		Cancel:   []string{"cancel", "delete", "remove", "nevermind"},
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	vocab := testVocabulary()

	cases := map[string]Command{
		"LIST":                          CommandList,
		"list reminders":                CommandList,
		"Show my reminders":             CommandList,
		"DONE #42":                      CommandDone,
		"finished the laundry":          CommandDone,
		"cancel #3":                     CommandCancel,
		"delete the dentist one":        CommandCancel,
		"Remind me to water the plants": CommandReminder,
		"pick up the kids at 3pm":       CommandReminder,
	}

	for input, want := range cases {
		if got := Classify(input, vocab); got != want {
			t.Errorf("Classify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	t.Parallel()
	vocab := testVocabulary()

	// list wins over done, done wins over cancel.
	if got := Classify("list the done ones", vocab); got != CommandList {
		t.Fatalf("list should beat done, got %q", got)
	}
	if got := Classify("done, cancel that", vocab); got != CommandDone {
		t.Fatalf("done should beat cancel, got %q", got)
	}
}

func TestParseListMessage(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(time.UTC, testVocabulary().Reminder, nil)
	p := New(testVocabulary(), extractor)

	parsed := p.Parse(context.Background(), "LIST")
	if parsed.Command != CommandList {
		t.Fatalf("expected list command, got %q", parsed.Command)
	}
	if parsed.DueAt != nil {
		t.Fatalf("list command should carry no due time")
	}
}

func TestParseReminderMessage(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(time.UTC, testVocabulary().Reminder, nil)
	extractor.now = func() time.Time { return time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC) }
	p := New(testVocabulary(), extractor)

	parsed := p.Parse(context.Background(), "Remind me to take meds at 9am")
	if parsed.Command != CommandReminder {
		t.Fatalf("expected reminder command, got %q", parsed.Command)
	}
	if parsed.Text != "take meds" {
		t.Fatalf("cleaned text = %q, want %q", parsed.Text, "take meds")
	}
	if parsed.DueAt == nil {
		t.Fatalf("expected a due time")
	}
}
