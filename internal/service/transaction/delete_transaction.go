package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/internal/domain"
)

// DeleteTransaction removes a transaction from the group's books. For a
// committed transaction this is a soft delete: a revision flagged deleted
// is committed on top, so history survives and the deletion itself is
// subject to the usual commit race. A never-committed transaction is
// removed physically, since no other member has ever seen it.
func (s *Service) DeleteTransaction(ctx context.Context, input DeleteTransactionInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	var (
		groupID     uuid.UUID
		description string
		affected    = input.TransactionID
	)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.transactions.GetByIDForUpdate(txCtx, input.TransactionID)
		if err != nil {
			return err
		}
		if err := s.requireWrite(txCtx, t.GroupID, input.UserID); err != nil {
			return err
		}
		groupID = t.GroupID

		if t.Committed == nil {
			// Only the creator's draft exists; nobody else may even know
			// about the transaction yet.
			if _, ok := t.Draft(input.UserID); !ok {
				return fmt.Errorf("transaction %s: %w", input.TransactionID, domain.ErrNotFound)
			}
			return s.transactions.HardDelete(txCtx, input.TransactionID)
		}

		if t.Committed.Deleted {
			// Deleting twice is a no-op.
			description = t.Committed.Description
			return nil
		}

		// The caller's pending draft, if any, becomes the deletion revision
		// so their in-flight edits are preserved in history.
		deletion, ok := t.Draft(input.UserID)
		if !ok {
			deletion = t.Committed.Clone()
		}
		deletion.Deleted = true
		description = deletion.Description

		if err := s.transactions.SaveDraft(txCtx, input.TransactionID, input.UserID, deletion); err != nil {
			return fmt.Errorf("save deletion draft: %w", err)
		}
		return s.transactions.Commit(txCtx, input.TransactionID, input.UserID, t.Version)
	})
	if err != nil {
		return err
	}

	s.recordLog(ctx, domain.GroupLogEntry{
		GroupID:  groupID,
		UserID:   input.UserID,
		Kind:     domain.LogTransactionDeleted,
		Message:  description,
		Affected: &affected,
	})

	s.log.InfoContext(ctx, "transaction deleted",
		"transaction_id", input.TransactionID,
		"group_id", groupID,
	)

	return nil
}
