package scheduler

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nudgly/nudgly/internal/model"
	"github.com/nudgly/nudgly/internal/store"
	"github.com/robfig/cron/v3"
)

// Sender delivers an outbound message to a user. Satisfied by the
// Twilio client.
type Sender interface {
	SendWhatsAppMessage(to, body string) error
}

// Scheduler delivers one-shot reminder notifications a fixed lead time
// before each due time, plus a recurring daily digest. One instance is
// owned by the process entry point and runs for the process lifetime.
type Scheduler struct {
	store      *store.Store
	sender     Sender
	loc        *time.Location
	digestHour int
	lead       time.Duration
	logger     *log.Logger

	cron *cron.Cron

	mu     sync.Mutex
	timers map[uint]*time.Timer

	// now is overridable in tests.
	now func() time.Time
}

// New builds a scheduler. lead is the interval before dueAt at which a
// notification fires.
func New(s *store.Store, sender Sender, loc *time.Location, digestHour int, lead time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:      s,
		sender:     sender,
		loc:        loc,
		digestHour: digestHour,
		lead:       lead,
		logger:     logger,
		cron:       cron.New(cron.WithLocation(loc)),
		timers:     make(map[uint]*time.Timer),
		now:        time.Now,
	}
}

// Start registers the daily digest, reconciles pending reminders from
// the store into one-shot timers, and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("0 %d * * *", s.digestHour), s.SendDailyDigest); err != nil {
		return fmt.Errorf("register digest: %w", err)
	}

	pending, err := s.store.PendingDueAfter(s.now())
	if err != nil {
		return fmt.Errorf("load pending reminders: %w", err)
	}
	scheduled := 0
	for i := range pending {
		if s.OnReminderCreated(&pending[i]) {
			scheduled++
		}
	}
	s.logger.Printf("scheduler: reconciled %d of %d pending reminders", scheduled, len(pending))

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and drops every outstanding one-shot timer.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// OnReminderCreated schedules the one-shot notification for a reminder.
// Timers are keyed by reminder id; scheduling again replaces the
// existing timer. A notification instant already in the past is skipped
// entirely, there is no retroactive backfill. Reports whether a timer
// was set.
func (s *Scheduler) OnReminderCreated(r *model.Reminder) bool {
	if r.DueAt == nil {
		return false
	}
	at := r.DueAt.Add(-s.lead)
	delay := at.Sub(s.now())
	if delay <= 0 {
		return false
	}

	id := r.ID
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	return true
}

// fire delivers the notification for one reminder. The reminder is
// re-read immediately before sending; a reminder that vanished or left
// PENDING since scheduling is skipped silently. Send failures are
// logged and lost, never retried.
func (s *Scheduler) fire(id uint) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	reminder, err := s.store.GetByID(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Printf("scheduler: reread reminder %d: %v", id, err)
		}
		return
	}
	if reminder.Status != model.StatusPending {
		return
	}

	message := "🔔 Reminder: " + reminder.Text
	if reminder.DueAt != nil {
		message += "\n⏰ Due: " + reminder.DueAt.In(s.loc).Format("15:04")
	}
	if err := s.sender.SendWhatsAppMessage(reminder.ForUser, message); err != nil {
		s.logger.Printf("scheduler: send reminder %d: %v", id, err)
	}
}

// SendDailyDigest sends every owner with a PENDING reminder due today
// one aggregated message listing those reminders.
func (s *Scheduler) SendDailyDigest() {
	from, to := s.todayBounds()

	owners, err := s.store.OwnersWithPendingDueBetween(from, to)
	if err != nil {
		s.logger.Printf("scheduler: digest owners: %v", err)
		return
	}

	window := &store.Window{From: from, To: to}
	for _, owner := range owners {
		reminders, err := s.store.QueryByOwnerStatus(owner, model.StatusPending, window)
		if err != nil {
			s.logger.Printf("scheduler: digest for %s: %v", owner, err)
			continue
		}
		if len(reminders) == 0 {
			continue
		}
		if err := s.sender.SendWhatsAppMessage(owner, s.formatDigest(reminders)); err != nil {
			s.logger.Printf("scheduler: send digest to %s: %v", owner, err)
		}
	}
}

func (s *Scheduler) formatDigest(reminders []model.Reminder) string {
	var sb strings.Builder
	sb.WriteString("🗓 Daily Digest - " + s.now().In(s.loc).Format("Monday, January 02") + "\n\n")
	for i, r := range reminders {
		timeStr := "No time"
		if r.DueAt != nil {
			timeStr = r.DueAt.In(s.loc).Format("15:04")
		}
		sb.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, r.Text, timeStr))
	}
	sb.WriteString("\n📱 Reply with DONE #number to mark complete")
	return sb.String()
}

func (s *Scheduler) todayBounds() (time.Time, time.Time) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Second)
}
