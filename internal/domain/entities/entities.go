package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrShopNotFound   = errors.New("shop not found")
	ErrTaskNotFound   = errors.New("task not found")
	ErrEmptyNote      = errors.New("note must not be empty")
	ErrEmptyShopName  = errors.New("shop name is required")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidType    = errors.New("invalid task type")
	ErrInvalidDueDate = errors.New("due date is required")
)

// Enums and types
type ShopStatus string

const (
	ShopStatusNew  ShopStatus = "New"
	ShopStatusWarm ShopStatus = "Warm"
	ShopStatusHot  ShopStatus = "Hot"
	ShopStatusCold ShopStatus = "Cold"
	ShopStatusDead ShopStatus = "Dead"
)

type TaskType string

const (
	TaskTypeVisit    TaskType = "Visit"
	TaskTypeWhatsApp TaskType = "Send WhatsApp Photos"
	TaskTypeFollowUp TaskType = "Follow-up"
	TaskTypeCall     TaskType = "Call"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
	// TaskStatusOverdue is a read-time derivation, never written to storage
	// by normal operation. Only Pending/Completed are toggled by the user.
	TaskStatusOverdue TaskStatus = "Overdue"
)

// Shop represents a tracked prospect/customer location.
type Shop struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	OwnerName   *string    `json:"ownerName,omitempty" db:"owner_name"`
	PhoneNumber string     `json:"phoneNumber" db:"phone_number"`
	Location    string     `json:"location" db:"location"`
	Status      ShopStatus `json:"status" db:"status"`
	Updates     []Update   `json:"updates"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// Update is a timestamped visit note attached to a shop. Updates are
// append-only: never edited or removed individually, they go away only
// when the owning shop is deleted.
type Update struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note"`
}

// Task is a scheduled follow-up action tied to a shop.
type Task struct {
	ID        string     `json:"id" db:"id"`
	ShopID    string     `json:"shopId" db:"shop_id"`
	Type      TaskType   `json:"type" db:"type"`
	DueDate   string     `json:"dueDate" db:"due_date"`
	Status    TaskStatus `json:"status" db:"status"`
	Note      *string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// NewUpdate builds a visit note with a fresh id and timestamp.
func NewUpdate(note string) Update {
	return Update{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Format(time.RFC3339),
		Note:      note,
	}
}

// LatestUpdate returns the most recent visit note, or nil if there is none.
// Updates are kept newest-first, so this is the head of the slice.
func (s *Shop) LatestUpdate() *Update {
	if len(s.Updates) == 0 {
		return nil
	}
	return &s.Updates[0]
}

// PrependUpdate inserts a visit note at the head, preserving the
// newest-first ordering invariant.
func (s *Shop) PrependUpdate(u Update) {
	s.Updates = append([]Update{u}, s.Updates...)
}

// Validate checks the construction requirements for a shop.
func (s *Shop) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyShopName
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Validate checks the construction requirements for a task.
func (t *Task) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.DueDate == "" {
		return ErrInvalidDueDate
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Utility methods
func (ss ShopStatus) IsValid() bool {
	switch ss {
	case ShopStatusNew, ShopStatusWarm, ShopStatusHot, ShopStatusCold, ShopStatusDead:
		return true
	default:
		return false
	}
}

func (tt TaskType) IsValid() bool {
	switch tt {
	case TaskTypeVisit, TaskTypeWhatsApp, TaskTypeFollowUp, TaskTypeCall:
		return true
	default:
		return false
	}
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusOverdue:
		return true
	default:
		return false
	}
}

// ShopStatuses lists every shop status in display order.
func ShopStatuses() []ShopStatus {
	return []ShopStatus{ShopStatusNew, ShopStatusWarm, ShopStatusHot, ShopStatusCold, ShopStatusDead}
}

// TaskTypes lists every task type in display order.
func TaskTypes() []TaskType {
	return []TaskType{TaskTypeVisit, TaskTypeWhatsApp, TaskTypeFollowUp, TaskTypeCall}
}
