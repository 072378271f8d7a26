// Package group implements group membership lookups and the group activity
// log on PostgreSQL.
package group

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/internal/adapter/postgres"
	"github.com/mic-e/abrechnung/internal/domain"
)

const isMemberSQL = `
SELECT EXISTS (
    SELECT 1 FROM group_members
    WHERE group_id = $1 AND user_id = $2
)`

const canWriteSQL = `
SELECT can_write FROM group_members
WHERE group_id = $1 AND user_id = $2`

const insertLogSQL = `
INSERT INTO group_log (id, group_id, user_id, type, message, affected_id, logged_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const listLogSQL = `
SELECT id, group_id, user_id, type, message, affected_id, logged_at
FROM group_log
WHERE group_id = $1
ORDER BY logged_at DESC, id
LIMIT $2`

// Repo provides group membership and activity log persistence.
type Repo struct {
	db postgres.Querier
}

// New creates a new group repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// IsMember reports whether the user belongs to the group.
func (r *Repo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var ok bool
	if err := q.QueryRow(ctx, isMemberSQL, groupID, userID).Scan(&ok); err != nil {
		return false, postgres.MapError(err, "group member", groupID)
	}

	return ok, nil
}

// CanWrite reports whether the user may modify the group's content.
// A user who is not a member cannot write; that case is not an error.
func (r *Repo) CanWrite(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var canWrite bool
	err := q.QueryRow(ctx, canWriteSQL, groupID, userID).Scan(&canWrite)
	if pgxscan.NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, postgres.MapError(err, "group member", groupID)
	}

	return canWrite, nil
}

// Record appends an entry to the group activity log.
func (r *Repo) Record(ctx context.Context, e domain.GroupLogEntry) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}

	if _, err := q.Exec(ctx, insertLogSQL,
		e.ID, e.GroupID, e.UserID, string(e.Kind), e.Message, e.Affected, e.LoggedAt,
	); err != nil {
		return postgres.MapError(err, "group log", e.GroupID)
	}

	return nil
}

// ListLog returns the newest entries of the group activity log.
func (r *Repo) ListLog(ctx context.Context, groupID uuid.UUID, limit int) ([]domain.GroupLogEntry, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var rows []logRow
	if err := pgxscan.Select(ctx, q, &rows, listLogSQL, groupID, limit); err != nil {
		return nil, postgres.MapError(err, "group log", groupID)
	}

	entries := make([]domain.GroupLogEntry, len(rows))
	for i, row := range rows {
		entries[i] = domain.GroupLogEntry{
			ID:       row.ID,
			GroupID:  row.GroupID,
			UserID:   row.UserID,
			Kind:     domain.LogEventKind(row.Type),
			Message:  row.Message,
			Affected: row.AffectedID,
			LoggedAt: row.LoggedAt,
		}
	}

	return entries, nil
}

type logRow struct {
	ID         uuid.UUID  `db:"id"`
	GroupID    uuid.UUID  `db:"group_id"`
	UserID     uuid.UUID  `db:"user_id"`
	Type       string     `db:"type"`
	Message    string     `db:"message"`
	AffectedID *uuid.UUID `db:"affected_id"`
	LoggedAt   time.Time  `db:"logged_at"`
}
