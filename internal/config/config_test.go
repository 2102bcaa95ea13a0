package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port == "" {
		t.Fatalf("port must default")
	}
	if cfg.LocalTimezone == nil {
		t.Fatalf("timezone must default")
	}
	if cfg.DailyDigestHour < 0 || cfg.DailyDigestHour > 23 {
		t.Fatalf("digest hour out of range: %d", cfg.DailyDigestHour)
	}
	if cfg.NotifyLead <= 0 {
		t.Fatalf("notification lead must be positive")
	}
	if len(cfg.ReminderKeywords) == 0 || len(cfg.ListKeywords) == 0 ||
		len(cfg.DoneKeywords) == 0 || len(cfg.CancelKeywords) == 0 {
		t.Fatalf("keyword vocabularies must have defaults")
	}
}

func TestKeywordOverride(t *testing.T) {
	t.Setenv("LIST_KEYWORDS", "agenda, schedule ,")

	cfg := Load()
	if len(cfg.ListKeywords) != 2 || cfg.ListKeywords[0] != "agenda" || cfg.ListKeywords[1] != "schedule" {
		t.Fatalf("list keywords = %v", cfg.ListKeywords)
	}
}

func TestSenderAllowed(t *testing.T) {
	t.Setenv("ALLOWED_SENDERS", "whatsapp:+441111111111, whatsapp:+442222222222")

	cfg := Load()
	if !cfg.SenderAllowed("whatsapp:+441111111111") {
		t.Fatalf("listed sender must be allowed")
	}
	if !cfg.SenderAllowed(" whatsapp:+442222222222 ") {
		t.Fatalf("whitespace around the address must not matter")
	}
	if cfg.SenderAllowed("whatsapp:+449999999999") {
		t.Fatalf("unlisted sender must be blocked")
	}
}

func TestSenderAllowedEmptyListBlocksEveryone(t *testing.T) {
	t.Setenv("ALLOWED_SENDERS", "")

	cfg := Load()
	if cfg.SenderAllowed("whatsapp:+441111111111") {
		t.Fatalf("empty allow-list must block all senders")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("SOME_INT", "17")
	if got := ParseIntEnv("SOME_INT", 5); got != 17 {
		t.Fatalf("ParseIntEnv = %d, want 17", got)
	}

	t.Setenv("SOME_INT", "not-a-number")
	if got := ParseIntEnv("SOME_INT", 5); got != 5 {
		t.Fatalf("ParseIntEnv on garbage = %d, want default 5", got)
	}

	if got := ParseIntEnv("UNSET_INT_VAR", 9); got != 9 {
		t.Fatalf("ParseIntEnv unset = %d, want default 9", got)
	}
}
