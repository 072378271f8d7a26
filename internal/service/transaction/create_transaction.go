package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/internal/domain"
)

// CreateTransaction creates a new, uncommitted transaction. Its entire
// content lives in the creator's draft until the first commit; to other
// group members the transaction does not exist yet.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}
	if err := s.checkDescription(input.Description); err != nil {
		return View{}, err
	}
	if !s.currencies.IsValidSymbol(input.CurrencySymbol) {
		return View{}, domain.NewValidationError("currency_symbol", "unknown currency symbol")
	}

	if err := s.requireWrite(ctx, input.GroupID, input.UserID); err != nil {
		return View{}, err
	}

	txType, err := domain.ParseTransactionType(input.Type)
	if err != nil {
		return View{}, err
	}

	draft := domain.NewTransactionDetails(
		input.Description, input.Value, input.CurrencySymbol,
		input.CurrencyConversionRate, input.BilledAt,
	)
	t := &domain.Transaction{
		ID:        uuid.New(),
		GroupID:   input.GroupID,
		Type:      txType,
		Version:   1,
		CreatedBy: input.UserID,
		CreatedAt: time.Now().UTC(),
		Drafts:    map[uuid.UUID]*domain.TransactionDetails{input.UserID: draft},
	}

	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transactions.Create(txCtx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return View{}, txErr
	}

	s.recordLog(ctx, domain.GroupLogEntry{
		GroupID:  input.GroupID,
		UserID:   input.UserID,
		Kind:     domain.LogTransactionCreated,
		Message:  input.Description,
		Affected: &t.ID,
	})

	s.log.InfoContext(ctx, "transaction created",
		"transaction_id", t.ID,
		"group_id", input.GroupID,
		"type", string(txType),
	)

	return NewView(t, input.UserID), nil
}
