package model

import "time"

// Status is the lifecycle state of a reminder. PENDING is the only live
// state; DONE and CANCELLED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Source records how a reminder entered the system.
type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
	SourceWeb   Source = "web"
)

// Reminder represents a saved reminder for a WhatsApp user.
// DueAt is always stored in UTC; nil means no specific time was given.
type Reminder struct {
	ID         uint       `gorm:"primaryKey"`
	CreatedBy  string     `gorm:"size:50;index;not null"`
	ForUser    string     `gorm:"size:50;index;not null"`
	Text       string     `gorm:"type:text;not null"`
	DueAt      *time.Time `gorm:"index"`
	Recurrence string     `gorm:"size:50"`
	Status     Status     `gorm:"size:20;not null;default:PENDING"`
	Source     Source     `gorm:"size:10;not null;default:text"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime"`
}
