package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/internal/domain"
)

// Commit promotes the caller's draft to the committed revision. The swap is
// atomic: the new revision replaces the old one and every other editor's
// draft is discarded, so concurrent editors follow last-committer-wins.
// A commit that races against another commit of the same transaction loses
// with ErrConflict and changes nothing.
func (s *Service) Commit(ctx context.Context, input CommitInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	var result *domain.Transaction
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.transactions.GetByIDForUpdate(txCtx, input.TransactionID)
		if err != nil {
			return err
		}
		if err := s.requireWrite(txCtx, t.GroupID, input.UserID); err != nil {
			return err
		}

		draft, ok := t.Draft(input.UserID)
		if !ok {
			return fmt.Errorf("draft %s/%s: %w", input.TransactionID, input.UserID, domain.ErrNotFound)
		}

		if err := s.transactions.Commit(txCtx, input.TransactionID, input.UserID, t.Version); err != nil {
			return err
		}

		t.Version++
		t.Committed = draft
		t.Drafts = map[uuid.UUID]*domain.TransactionDetails{}
		result = t
		return nil
	})
	if err != nil {
		return View{}, err
	}

	kind := domain.LogTransactionCommitted
	if result.Committed.Deleted {
		kind = domain.LogTransactionDeleted
	}
	s.recordLog(ctx, domain.GroupLogEntry{
		GroupID:  result.GroupID,
		UserID:   input.UserID,
		Kind:     kind,
		Message:  result.Committed.Description,
		Affected: &result.ID,
	})

	s.log.InfoContext(ctx, "transaction committed",
		"transaction_id", result.ID,
		"group_id", result.GroupID,
		"version", result.Version,
	)

	return NewView(result, input.UserID), nil
}
