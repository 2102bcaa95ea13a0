package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port                 string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	OpenAIAPIKey         string
	DatabaseURL          string
	LocalTimezone        *time.Location

	// AllowedSenders is the set of WhatsApp addresses the bot will talk
	// to. Empty means every sender is blocked.
	AllowedSenders map[string]bool

	DailyDigestHour int
	NotifyLead      time.Duration

	// Keyword vocabularies for command classification and prefix
	// stripping. Overridable per deployment via env.
	ReminderKeywords []string
	ListKeywords     []string
	DoneKeywords     []string
	CancelKeywords   []string
}

var (
	defaultReminderKeywords = []string{
		"reminder:", "remind me", "add", "schedule", "set reminder",
		"don't forget", "remember to", "task:", "todo:",
	}
	defaultListKeywords   = []string{"list", "show", "what's today", "today", "schedule"}
	defaultDoneKeywords   = []string{"done", "complete", "completed", "finished", "tick off"}
	defaultCancelKeywords = []string{"cancel", "delete", "remove", "nevermind"}
)

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "UTC")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to UTC: %v", timezoneName, err)
		location = time.UTC
	}

	return &Config{
		Port:                 getenvDefault("PORT", "8080"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		LocalTimezone:        location,
		AllowedSenders:       parseSet(os.Getenv("ALLOWED_SENDERS")),
		DailyDigestHour:      ParseIntEnv("DAILY_DIGEST_HOUR", 8),
		NotifyLead:           time.Duration(ParseIntEnv("NOTIFY_LEAD_MINUTES", 5)) * time.Minute,
		ReminderKeywords:     parseList(os.Getenv("REMINDER_KEYWORDS"), defaultReminderKeywords),
		ListKeywords:         parseList(os.Getenv("LIST_KEYWORDS"), defaultListKeywords),
		DoneKeywords:         parseList(os.Getenv("DONE_KEYWORDS"), defaultDoneKeywords),
		CancelKeywords:       parseList(os.Getenv("CANCEL_KEYWORDS"), defaultCancelKeywords),
	}
}

// SenderAllowed reports whether the given WhatsApp address may use the bot.
func (c *Config) SenderAllowed(from string) bool {
	return c.AllowedSenders[strings.TrimSpace(from)]
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}

func parseList(value string, def []string) []string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func parseSet(value string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			set[part] = true
		}
	}
	return set
}
