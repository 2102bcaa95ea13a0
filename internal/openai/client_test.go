package openai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseExtraction(t *testing.T) {
	t.Parallel()

	task, due, err := parseExtraction(`{"task": "take meds", "when": "2024-01-01T09:00:00Z"}`, "fallback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != "take meds" {
		t.Fatalf("task = %q, want %q", task, "take meds")
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if due == nil || !due.Equal(want) {
		t.Fatalf("due = %v, want %v", due, want)
	}
}

func TestParseExtractionNullWhen(t *testing.T) {
	t.Parallel()

	task, due, err := parseExtraction(`{"task": "buy milk", "when": null}`, "fallback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != "buy milk" || due != nil {
		t.Fatalf("got (%q, %v), want (buy milk, nil)", task, due)
	}
}

func TestParseExtractionFencedJSON(t *testing.T) {
	t.Parallel()

	content := "```json\n{\"task\": \"call mum\", \"when\": \"2024-02-01 18:30\"}\n```"
	task, due, err := parseExtraction(content, "fallback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != "call mum" || due == nil {
		t.Fatalf("got (%q, %v)", task, due)
	}
}

func TestParseExtractionEmptyTaskFallsBack(t *testing.T) {
	t.Parallel()

	task, _, err := parseExtraction(`{"task": "", "when": null}`, "the original text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != "the original text" {
		t.Fatalf("task = %q, want fallback", task)
	}
}

func TestParseExtractionMalformed(t *testing.T) {
	t.Parallel()

	// No JSON at all.
	if _, _, err := parseExtraction("sorry, I can't help with that", "x"); err == nil {
		t.Fatalf("expected an error for non-JSON content")
	}
	// Broken JSON.
	if _, _, err := parseExtraction(`{"task": "oops"`, "x"); err == nil {
		t.Fatalf("expected an error for truncated JSON")
	}
	// Unparseable datetime degrades to nil due, not an error.
	task, due, err := parseExtraction(`{"task": "x", "when": "next blue moon"}`, "x")
	if err != nil || due != nil || task != "x" {
		t.Fatalf("bad datetime should degrade, got (%q, %v, %v)", task, due, err)
	}
}

func TestDisabledClient(t *testing.T) {
	t.Parallel()
	client := New("")

	if client.Enabled() {
		t.Fatalf("client without key must be disabled")
	}
	if _, _, err := client.ExtractReminder(context.Background(), "take meds", time.Now()); !errors.Is(err, ErrClientNotInitialised) {
		t.Fatalf("expected ErrClientNotInitialised, got %v", err)
	}
	if _, err := client.TranscribeVoice(context.Background(), []byte{1}, "audio/ogg"); !errors.Is(err, ErrClientNotInitialised) {
		t.Fatalf("expected ErrClientNotInitialised, got %v", err)
	}
}
