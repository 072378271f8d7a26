package transaction

import (
	"context"

	"github.com/mic-e/abrechnung/internal/domain"
)

// UpdateTransaction replaces the scalar fields of the caller's draft,
// opening the draft from the committed revision if needed. Shares and
// purchase items are edited through their own operations.
func (s *Service) UpdateTransaction(ctx context.Context, input UpdateTransactionInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}
	if err := s.checkDescription(input.Description); err != nil {
		return View{}, err
	}
	if !s.currencies.IsValidSymbol(input.CurrencySymbol) {
		return View{}, domain.NewValidationError("currency_symbol", "unknown currency symbol")
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			draft.Description = input.Description
			draft.Value = input.Value
			draft.CurrencySymbol = input.CurrencySymbol
			draft.CurrencyConversionRate = input.CurrencyConversionRate
			draft.BilledAt = input.BilledAt
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}
