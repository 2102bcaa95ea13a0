package reminders

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nudgly/nudgly/internal/model"
	"github.com/nudgly/nudgly/internal/store"
)

// ErrNotFound is returned when a command references a reminder that does
// not exist, belongs to someone else, or is no longer pending.
var ErrNotFound = errors.New("reminder not found")

// Scope selects which reminders a list query covers.
type Scope string

const (
	ScopeToday Scope = "today"
	ScopeAll   Scope = "all"
)

// DefaultDue is substituted when a new reminder carries no due time.
const DefaultDue = time.Hour

// Service enforces the reminder lifecycle: creation with defaults,
// PENDING-only status transitions, and the lookup rules used by
// completion and cancellation commands.
type Service struct {
	store *store.Store
	loc   *time.Location

	// now is overridable in tests.
	now func() time.Time
}

// New builds a lifecycle service over the given store, with loc as the
// reference timezone for day boundaries.
func New(s *store.Store, loc *time.Location) *Service {
	return &Service{store: s, loc: loc, now: time.Now}
}

// WithClock overrides the service's time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FindByID fetches one reminder by id, regardless of owner or status.
func (s *Service) FindByID(id uint) (*model.Reminder, error) {
	r, err := s.store.GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create persists a new PENDING reminder. A nil dueAt defaults to one
// hour from now. The stored due time is always normalized to UTC.
func (s *Service) Create(ownerID, text string, dueAt *time.Time, source model.Source) (*model.Reminder, error) {
	due := s.now().Add(DefaultDue)
	if dueAt != nil {
		due = *dueAt
	}
	due = due.UTC()

	reminder := &model.Reminder{
		CreatedBy: ownerID,
		ForUser:   ownerID,
		Text:      strings.TrimSpace(text),
		DueAt:     &due,
		Status:    model.StatusPending,
		Source:    source,
	}
	if err := s.store.Insert(reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

var (
	idPattern      = regexp.MustCompile(`#?(\d+)`)
	commandKeyword = regexp.MustCompile(`(?i)\b(done|cancel|delete|remove)\b`)
)

// FindForCommand resolves the reminder a done/cancel command refers to.
// An explicit numeric id (optionally "#"-prefixed) wins; it must name a
// PENDING reminder owned by ownerID. Without an id the command keywords
// are stripped and the remainder is partial-matched against the owner's
// PENDING reminders, lowest id first.
func (s *Service) FindForCommand(ownerID, freeText string) (*model.Reminder, error) {
	if match := idPattern.FindStringSubmatch(freeText); match != nil {
		id, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil {
			return nil, ErrNotFound
		}
		reminder, err := s.store.GetByID(uint(id))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if reminder.ForUser != ownerID || reminder.Status != model.StatusPending {
			return nil, ErrNotFound
		}
		return reminder, nil
	}

	fragment := strings.TrimSpace(commandKeyword.ReplaceAllString(freeText, ""))
	reminder, err := s.store.FirstPendingMatch(ownerID, fragment)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// MarkDone transitions a PENDING reminder to DONE. For a reminder that
// is already terminal nothing changes and already reports true.
func (s *Service) MarkDone(reminder *model.Reminder) (already bool, err error) {
	return s.transition(reminder, model.StatusDone)
}

// Cancel transitions a PENDING reminder to CANCELLED. For a reminder
// that is already terminal nothing changes and already reports true.
func (s *Service) Cancel(reminder *model.Reminder) (already bool, err error) {
	return s.transition(reminder, model.StatusCancelled)
}

func (s *Service) transition(reminder *model.Reminder, to model.Status) (bool, error) {
	if reminder.Status.IsTerminal() {
		return true, nil
	}
	reminder.Status = to
	// gorm bumps UpdatedAt on save.
	return false, s.store.Update(reminder)
}

// ListForOwner returns the owner's PENDING reminders ordered by due time
// ascending, reminders without a due time last. ScopeToday restricts to
// the current calendar day in the reference timezone.
func (s *Service) ListForOwner(ownerID string, scope Scope) ([]model.Reminder, error) {
	var window *store.Window
	if scope == ScopeToday {
		from, to := s.TodayBounds()
		window = &store.Window{From: from, To: to}
	}
	return s.store.QueryByOwnerStatus(ownerID, model.StatusPending, window)
}

// TodayBounds returns the inclusive start and end of the current local
// calendar day.
func (s *Service) TodayBounds() (time.Time, time.Time) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start, end
}

// Location exposes the reference timezone for display formatting.
func (s *Service) Location() *time.Location {
	return s.loc
}
