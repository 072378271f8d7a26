package domain

import (
	"time"

	"github.com/google/uuid"
)

// Group is a set of users sharing expenses.
type Group struct {
	ID             uuid.UUID
	Name           string
	Description    *string
	CurrencySymbol string
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
}

// GroupMember is a user's membership in a group, carrying the write
// permission the engine checks before every mutation.
type GroupMember struct {
	GroupID  uuid.UUID
	UserID   uuid.UUID
	IsOwner  bool
	CanWrite bool
	JoinedAt time.Time
}

// Account is something money can be attributed to within a group: usually a
// person, sometimes a shared pot.
type Account struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Description *string
	Priority    int
	Deleted     bool
}

// LogEventKind identifies what a group activity log entry records.
type LogEventKind string

const (
	LogTransactionCreated   LogEventKind = "transaction-created"
	LogTransactionCommitted LogEventKind = "transaction-committed"
	LogTransactionDeleted   LogEventKind = "transaction-deleted"
)

// GroupLogEntry is one line of a group's activity log. The log is a
// best-effort record; failing to append must never undo the change that
// triggered it.
type GroupLogEntry struct {
	ID       uuid.UUID
	GroupID  uuid.UUID
	UserID   uuid.UUID
	Kind     LogEventKind
	Message  string
	Affected *uuid.UUID
	LoggedAt time.Time
}
