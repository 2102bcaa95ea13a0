package bot

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nudgly/nudgly/internal/config"
	"github.com/nudgly/nudgly/internal/model"
	myopenai "github.com/nudgly/nudgly/internal/openai"
	"github.com/nudgly/nudgly/internal/parser"
	"github.com/nudgly/nudgly/internal/reminders"
	"github.com/nudgly/nudgly/internal/scheduler"
	"github.com/nudgly/nudgly/internal/twilio"
)

// Bot is the single entry point for inbound messages: classify, act,
// respond. Every authorized inbound message yields exactly one outbound
// text.
type Bot struct {
	cfg     *config.Config
	service *reminders.Service
	parser  *parser.Parser
	openAI  *myopenai.Client
	twilio  *twilio.Client
	sched   *scheduler.Scheduler
	logger  *log.Logger

	// now is overridable in tests.
	now func() time.Time
}

// New creates a fully configured Bot instance.
func New(cfg *config.Config, service *reminders.Service, msgParser *parser.Parser, openAI *myopenai.Client, twilioClient *twilio.Client, sched *scheduler.Scheduler, logger *log.Logger) *Bot {
	return &Bot{
		cfg:     cfg,
		service: service,
		parser:  msgParser,
		openAI:  openAI,
		twilio:  twilioClient,
		sched:   sched,
		logger:  logger,
		now:     time.Now,
	}
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.Printf("webhook: parse error: %v", err)
		b.writeTwilioResponse(w, "Sorry, I couldn't understand that request.")
		return
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))

	// Unauthorized senders are dropped without a reply so the bot's
	// existence is not leaked. 200 keeps Twilio from retrying.
	if !b.cfg.SenderAllowed(from) {
		b.logger.Printf("webhook: blocked message from %s", from)
		b.writeTwilioResponse(w, "")
		return
	}

	userID := sanitizeWhatsAppNumber(from)
	source := model.SourceText

	if r.FormValue("NumMedia") != "" && r.FormValue("NumMedia") != "0" {
		if transcript := b.transcribeVoiceNote(r); transcript != "" {
			body = transcript
			source = model.SourceVoice
		}
	}

	if body == "" {
		b.writeTwilioResponse(w, "🤔 I didn't receive any text. Please send me a reminder!")
		return
	}

	b.writeTwilioResponse(w, b.HandleMessage(r.Context(), userID, body, source))
}

// HandleMessage runs one inbound message through classification and the
// reminder lifecycle, returning the response text. It never returns an
// empty string.
func (b *Bot) HandleMessage(ctx context.Context, userID, body string, source model.Source) string {
	parsed := b.parser.Parse(ctx, body)

	switch parsed.Command {
	case parser.CommandList:
		return b.handleList(userID, parsed.Text)
	case parser.CommandDone:
		return b.handleDone(userID, parsed.Text)
	case parser.CommandCancel:
		return b.handleCancel(userID, parsed.Text)
	default:
		return b.handleReminder(userID, parsed, source)
	}
}

func (b *Bot) handleReminder(userID string, parsed parser.ParsedMessage, source model.Source) string {
	if strings.TrimSpace(parsed.Text) == "" {
		return helpResponse()
	}

	reminder, err := b.service.Create(userID, parsed.Text, parsed.DueAt, source)
	if err != nil {
		b.logger.Printf("create reminder: %v", err)
		return "I couldn't save the reminder. Please try again."
	}
	if b.sched != nil {
		b.sched.OnReminderCreated(reminder)
	}

	return fmt.Sprintf("✅ *Added reminder #%d*\n\n\"%s\"\n\n📅 %s",
		reminder.ID, reminder.Text, b.formatDue(*reminder.DueAt))
}

func (b *Bot) handleList(userID, text string) string {
	scope := reminders.ScopeToday
	title := "📋 *Today's Reminders*"
	if strings.Contains(strings.ToLower(text), "all") {
		scope = reminders.ScopeAll
		title = "📋 *All Pending Reminders*"
	}

	list, err := b.service.ListForOwner(userID, scope)
	if err != nil {
		b.logger.Printf("list reminders: %v", err)
		return "Hmm, I couldn't fetch your reminders. Please try again later."
	}
	if len(list) == 0 {
		return title + "\n\nNo reminders found! 🎉"
	}

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for _, r := range list {
		timeStr := "no time"
		if r.DueAt != nil {
			timeStr = r.DueAt.In(b.service.Location()).Format("15:04")
		}
		sb.WriteString(fmt.Sprintf("#%d %s - %s\n", r.ID, r.Text, timeStr))
	}
	sb.WriteString("\n💬 Reply *DONE #number* to mark complete")
	return sb.String()
}

func (b *Bot) handleDone(userID, text string) string {
	reminder, err := b.service.FindForCommand(userID, text)
	if err != nil {
		if !errors.Is(err, reminders.ErrNotFound) {
			b.logger.Printf("find reminder: %v", err)
		}
		return notFoundResponse()
	}

	already, err := b.service.MarkDone(reminder)
	if err != nil {
		b.logger.Printf("mark done: %v", err)
		return "I couldn't update that reminder. Please try again."
	}
	if already {
		return fmt.Sprintf("ℹ️ Reminder #%d is already marked as %s.", reminder.ID, strings.ToLower(string(reminder.Status)))
	}
	return fmt.Sprintf("✅ *Completed reminder #%d*\n\n\"%s\"\n\nWell done! 🎉", reminder.ID, reminder.Text)
}

func (b *Bot) handleCancel(userID, text string) string {
	reminder, err := b.service.FindForCommand(userID, text)
	if err != nil {
		if !errors.Is(err, reminders.ErrNotFound) {
			b.logger.Printf("find reminder: %v", err)
		}
		return notFoundResponse()
	}

	already, err := b.service.Cancel(reminder)
	if err != nil {
		b.logger.Printf("cancel reminder: %v", err)
		return "I couldn't update that reminder. Please try again."
	}
	if already {
		return fmt.Sprintf("ℹ️ Reminder #%d is already %s.", reminder.ID, strings.ToLower(string(reminder.Status)))
	}
	return fmt.Sprintf("❌ *Cancelled reminder #%d*\n\n\"%s\"", reminder.ID, reminder.Text)
}

// transcribeVoiceNote downloads the first media attachment and runs it
// through Whisper. Any failure degrades to the original text body.
func (b *Bot) transcribeVoiceNote(r *http.Request) string {
	contentType := r.FormValue("MediaContentType0")
	mediaURL := r.FormValue("MediaUrl0")
	if mediaURL == "" || !strings.HasPrefix(contentType, "audio/") {
		return ""
	}
	if b.openAI == nil || !b.openAI.Enabled() || b.twilio == nil {
		return ""
	}

	audio, err := b.twilio.DownloadMedia(r.Context(), mediaURL)
	if err != nil {
		b.logger.Printf("voice note download: %v", err)
		return ""
	}

	transcript, err := b.openAI.TranscribeVoice(r.Context(), audio, contentType)
	if err != nil {
		b.logger.Printf("voice note transcription: %v", err)
		return ""
	}
	return transcript
}

// formatDue renders a due time the way a person would say it.
func (b *Bot) formatDue(due time.Time) string {
	loc := b.service.Location()
	local := due.In(loc)
	now := b.now().In(loc)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch {
	case day.Equal(today):
		return "Today " + local.Format("15:04")
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow " + local.Format("15:04")
	default:
		return local.Format("Mon 02 Jan 15:04")
	}
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message,omitempty"`
	}{
		Message: message,
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		b.logger.Printf("twilio response encode: %v", err)
	}
}

func sanitizeWhatsAppNumber(from string) string {
	// Twilio prepends whatsapp: to the number.
	return strings.TrimPrefix(from, "whatsapp:")
}

func notFoundResponse() string {
	return "❌ Reminder not found. Try *LIST* to see your reminders."
}

func helpResponse() string {
	return "🤔 I didn't understand that. Try:\n\n• *Remind me to [task] at [time]*\n• *LIST* - see today's reminders\n• *DONE #[number]* - mark complete"
}
