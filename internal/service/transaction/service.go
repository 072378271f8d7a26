// Package transaction implements the collaborative draft/commit engine for
// group transactions. Every mutation edits the caller's private draft; the
// committed revision only changes through an explicit commit, which replaces
// it atomically and discards all competing drafts.
package transaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	txrepo "github.com/mic-e/abrechnung/internal/adapter/postgres/transaction"
	"github.com/mic-e/abrechnung/internal/config"
	"github.com/mic-e/abrechnung/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type transactionRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID, filter txrepo.ListFilter) ([]*domain.Transaction, error)
	Create(ctx context.Context, t *domain.Transaction) error
	SaveDraft(ctx context.Context, txID, editorID uuid.UUID, d *domain.TransactionDetails) error
	DeleteDraft(ctx context.Context, txID, editorID uuid.UUID) error
	Commit(ctx context.Context, txID, editorID uuid.UUID, expectedVersion int64) error
	HardDelete(ctx context.Context, txID uuid.UUID) error
}

type groupRepo interface {
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	CanWrite(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	Record(ctx context.Context, e domain.GroupLogEntry) error
	ListLog(ctx context.Context, groupID uuid.UUID, limit int) ([]domain.GroupLogEntry, error)
}

type currencyRegistry interface {
	IsValidSymbol(symbol string) bool
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the transaction draft/commit business logic.
type Service struct {
	log          *slog.Logger
	transactions transactionRepo
	groups       groupRepo
	currencies   currencyRegistry
	tx           txManager
	cfg          config.TransactionConfig
}

// NewService creates a new transaction service.
func NewService(
	logger *slog.Logger,
	transactions transactionRepo,
	groups groupRepo,
	currencies currencyRegistry,
	tx txManager,
	cfg config.TransactionConfig,
) *Service {
	return &Service{
		log:          logger.With("service", "transaction"),
		transactions: transactions,
		groups:       groups,
		currencies:   currencies,
		tx:           tx,
		cfg:          cfg,
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// checkDescription enforces the configured description length limit.
func (s *Service) checkDescription(description string) error {
	if len(description) > s.cfg.MaxDescriptionLen {
		return domain.NewValidationError("description",
			fmt.Sprintf("too long (max %d)", s.cfg.MaxDescriptionLen))
	}
	return nil
}

// checkItemName enforces the configured purchase item name length limit.
func (s *Service) checkItemName(name string) error {
	if len(name) > s.cfg.MaxItemNameLen {
		return domain.NewValidationError("name",
			fmt.Sprintf("too long (max %d)", s.cfg.MaxItemNameLen))
	}
	return nil
}

// requireMember maps a non-member to ErrNotFound so the group's existence is
// not leaked to outsiders.
func (s *Service) requireMember(ctx context.Context, groupID, userID uuid.UUID) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	return nil
}

// requireWrite distinguishes a read-only member (ErrForbidden) from a
// non-member (ErrNotFound).
func (s *Service) requireWrite(ctx context.Context, groupID, userID uuid.UUID) error {
	canWrite, err := s.groups.CanWrite(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check write permission: %w", err)
	}
	if canWrite {
		return nil
	}
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return err
	}
	return fmt.Errorf("group %s: write permission required: %w", groupID, domain.ErrForbidden)
}

// withDraft is the shared editing path. Inside one store transaction it
// locks the transaction row, checks the caller's write permission, resolves
// the caller's draft (cloning the committed revision if the caller has none
// yet), applies mutate, and persists the draft.
//
// An uncommitted transaction only ever has its creator's draft; anyone else
// touching it gets ErrNotFound because there is no revision they may see.
func (s *Service) withDraft(ctx context.Context, txID, userID uuid.UUID, mutate func(t *domain.Transaction, draft *domain.TransactionDetails) error) (*domain.Transaction, error) {
	var result *domain.Transaction

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.transactions.GetByIDForUpdate(txCtx, txID)
		if err != nil {
			return err
		}
		if err := s.requireWrite(txCtx, t.GroupID, userID); err != nil {
			return err
		}

		draft, ok := t.Draft(userID)
		if !ok {
			if t.Committed == nil {
				return fmt.Errorf("transaction %s has no committed revision: %w", txID, domain.ErrNotFound)
			}
			draft = t.Committed.Clone()
			t.Drafts[userID] = draft
		}

		if err := mutate(t, draft); err != nil {
			return err
		}
		if err := s.transactions.SaveDraft(txCtx, txID, userID, draft); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// recordLog appends to the group activity log after the fact. The log is
// best-effort: a failure is logged and swallowed, never propagated, so it
// cannot undo an already-committed change.
func (s *Service) recordLog(ctx context.Context, entry domain.GroupLogEntry) {
	if err := s.groups.Record(ctx, entry); err != nil {
		s.log.WarnContext(ctx, "failed to record group log entry",
			"group_id", entry.GroupID,
			"kind", string(entry.Kind),
			"error", err,
		)
	}
}
