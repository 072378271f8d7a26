package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	txrepo "github.com/mic-e/abrechnung/internal/adapter/postgres/transaction"
	"github.com/mic-e/abrechnung/internal/domain"
)

// GetTransaction returns one transaction as the caller sees it. An
// uncommitted transaction is visible only to the editor holding its draft;
// everyone else gets ErrNotFound, same as for a foreign group.
func (s *Service) GetTransaction(ctx context.Context, input GetTransactionInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.transactions.GetByID(ctx, input.TransactionID)
	if err != nil {
		return View{}, err
	}
	if err := s.requireMember(ctx, t.GroupID, input.UserID); err != nil {
		return View{}, err
	}

	if !visibleTo(t, input.UserID) {
		return View{}, fmt.Errorf("transaction %s: %w", input.TransactionID, domain.ErrNotFound)
	}

	return NewView(t, input.UserID), nil
}

// ListTransactions returns the group's transactions visible to the caller,
// ordered by creation. Soft-deleted transactions are excluded unless
// IncludeDeleted is set; uncommitted transactions appear only for the
// editor holding their draft.
func (s *Service) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]View, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, input.GroupID, input.UserID); err != nil {
		return nil, err
	}

	transactions, err := s.transactions.ListByGroup(ctx, input.GroupID, txrepo.ListFilter{
		BilledAtFrom:   input.BilledAtFrom,
		BilledAtUntil:  input.BilledAtUntil,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(transactions))
	for _, t := range transactions {
		if !visibleTo(t, input.UserID) {
			continue
		}
		views = append(views, NewView(t, input.UserID))
	}

	return views, nil
}

// GroupBalances computes the per-account balances over the whole group,
// resolving each transaction to the caller's draft where one exists so
// editors see the effect of their pending changes.
func (s *Service) GroupBalances(ctx context.Context, input GroupBalancesInput) (BalancesResult, error) {
	if err := input.Validate(); err != nil {
		return BalancesResult{}, err
	}
	if err := s.requireMember(ctx, input.GroupID, input.UserID); err != nil {
		return BalancesResult{}, err
	}

	// Deleted and uncommitted revisions are skipped inside GroupBalances;
	// the caller's drafts may resurrect or remove any of them.
	transactions, err := s.transactions.ListByGroup(ctx, input.GroupID, txrepo.ListFilter{
		IncludeDeleted: true,
	})
	if err != nil {
		return BalancesResult{}, err
	}

	return BalancesResult{
		ViewerID: input.UserID,
		Balances: domain.GroupBalances(transactions, input.UserID),
	}, nil
}

// GroupLog returns the newest entries of the group activity log.
func (s *Service) GroupLog(ctx context.Context, input GroupLogInput) ([]domain.GroupLogEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, input.GroupID, input.UserID); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit == 0 || limit > s.cfg.GroupLogPageSize {
		limit = s.cfg.GroupLogPageSize
	}

	return s.groups.ListLog(ctx, input.GroupID, limit)
}

// visibleTo reports whether the user may see the transaction at all. Only
// uncommitted transactions are restricted: they exist solely as their
// creator's draft.
func visibleTo(t *domain.Transaction, userID uuid.UUID) bool {
	if t.Committed != nil {
		return true
	}
	_, ok := t.Draft(userID)
	return ok
}
