package store

import (
	"errors"
	"strings"
	"time"

	"github.com/nudgly/nudgly/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no reminder.
var ErrNotFound = errors.New("reminder not found")

// Window bounds a due-time query, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// Store provides reminder persistence on top of GORM.
type Store struct {
	db *gorm.DB
}

// New wraps an open database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Insert persists a new reminder and fills in its assigned id.
func (s *Store) Insert(r *model.Reminder) error {
	return s.db.Create(r).Error
}

// GetByID fetches a reminder by id. Missing rows yield ErrNotFound.
func (s *Store) GetByID(id uint) (*model.Reminder, error) {
	var r model.Reminder
	err := s.db.First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Update saves every field of the reminder.
func (s *Store) Update(r *model.Reminder) error {
	return s.db.Save(r).Error
}

// QueryByOwnerStatus lists an owner's reminders in a given status,
// optionally restricted to a due window, ordered by due time ascending
// with reminders lacking a due time last.
func (s *Store) QueryByOwnerStatus(owner string, status model.Status, window *Window) ([]model.Reminder, error) {
	q := s.db.Where("for_user = ? AND status = ?", owner, status)
	if window != nil {
		q = q.Where("due_at >= ? AND due_at <= ?", window.From.UTC(), window.To.UTC())
	}

	var reminders []model.Reminder
	err := q.Order("due_at IS NULL").Order("due_at asc").Order("id asc").Find(&reminders).Error
	return reminders, err
}

// PendingDueAfter returns every PENDING reminder whose due time is
// strictly after t. Used by the scheduler to reconcile on startup.
func (s *Store) PendingDueAfter(t time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.
		Where("status = ? AND due_at IS NOT NULL AND due_at > ?", model.StatusPending, t.UTC()).
		Find(&reminders).Error
	return reminders, err
}

// OwnersWithPendingDueBetween lists the distinct owners holding a
// PENDING reminder due inside [from, to].
func (s *Store) OwnersWithPendingDueBetween(from, to time.Time) ([]string, error) {
	var owners []string
	err := s.db.Model(&model.Reminder{}).
		Where("status = ? AND due_at >= ? AND due_at <= ?", model.StatusPending, from.UTC(), to.UTC()).
		Distinct().
		Pluck("for_user", &owners).Error
	return owners, err
}

// FirstPendingMatch finds the owner's oldest PENDING reminder whose text
// contains fragment, case-insensitively. ErrNotFound when nothing matches.
func (s *Store) FirstPendingMatch(owner, fragment string) (*model.Reminder, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, ErrNotFound
	}

	var r model.Reminder
	err := s.db.
		Where("for_user = ? AND status = ?", owner, model.StatusPending).
		Where("LOWER(text) LIKE ?", "%"+strings.ToLower(fragment)+"%").
		Order("id asc").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
