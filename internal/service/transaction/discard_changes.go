package transaction

import (
	"context"
	"fmt"

	"github.com/mic-e/abrechnung/internal/domain"
)

// DiscardChanges drops the caller's draft; the committed revision is
// untouched. Discarding the only draft of an uncommitted transaction is
// refused with ErrConflict, because it would leave the transaction without
// any revision; DeleteTransaction is the operation for abandoning it.
func (s *Service) DiscardChanges(ctx context.Context, input DiscardChangesInput) (View, error) {
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

		if _, ok := t.Draft(input.UserID); !ok {
			return fmt.Errorf("draft %s/%s: %w", input.TransactionID, input.UserID, domain.ErrNotFound)
		}
		if t.Committed == nil && len(t.Drafts) == 1 {
			return fmt.Errorf("transaction %s: cannot discard the only revision of an uncommitted transaction: %w",
				input.TransactionID, domain.ErrConflict)
		}

		if err := s.transactions.DeleteDraft(txCtx, input.TransactionID, input.UserID); err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}

		delete(t.Drafts, input.UserID)
		result = t
		return nil
	})
	if err != nil {
		return View{}, err
	}

	return NewView(result, input.UserID), nil
}
