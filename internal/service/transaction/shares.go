package transaction

import (
	"context"

	"github.com/mic-e/abrechnung/internal/domain"
)

type shareKind int

const (
	creditorShares shareKind = iota
	debitorShares
)

func (k shareKind) of(d *domain.TransactionDetails) *domain.ShareMap {
	if k == creditorShares {
		return d.CreditorShares
	}
	return d.DebitorShares
}

// AddOrChangeCreditorShare sets the creditor weight of one account in the
// caller's draft, inserting the account or replacing its previous weight.
func (s *Service) AddOrChangeCreditorShare(ctx context.Context, input ShareInput) (View, error) {
	return s.setShare(ctx, input, creditorShares)
}

// AddOrChangeDebitorShare sets the debitor weight of one account in the
// caller's draft.
func (s *Service) AddOrChangeDebitorShare(ctx context.Context, input ShareInput) (View, error) {
	return s.setShare(ctx, input, debitorShares)
}

// SwitchCreditorShare moves the creditor weight from one account to another
// in a single step, so no intermediate revision has both or neither.
func (s *Service) SwitchCreditorShare(ctx context.Context, input SwitchShareInput) (View, error) {
	return s.switchShare(ctx, input, creditorShares)
}

// SwitchDebitorShare moves the debitor weight from one account to another.
func (s *Service) SwitchDebitorShare(ctx context.Context, input SwitchShareInput) (View, error) {
	return s.switchShare(ctx, input, debitorShares)
}

// DeleteCreditorShare removes an account from the creditor shares of the
// caller's draft. Removing an absent account is a no-op.
func (s *Service) DeleteCreditorShare(ctx context.Context, input DeleteShareInput) (View, error) {
	return s.deleteShare(ctx, input, creditorShares)
}

// DeleteDebitorShare removes an account from the debitor shares of the
// caller's draft.
func (s *Service) DeleteDebitorShare(ctx context.Context, input DeleteShareInput) (View, error) {
	return s.deleteShare(ctx, input, debitorShares)
}

func (s *Service) setShare(ctx context.Context, input ShareInput, kind shareKind) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			return kind.of(draft).Set(input.AccountID, input.Shares)
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

func (s *Service) switchShare(ctx context.Context, input SwitchShareInput, kind shareKind) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			m := kind.of(draft)
			weight, ok := m.Get(input.FromAccountID)
			if !ok {
				return domain.NewValidationError("from_account_id", "account holds no share")
			}
			return m.Switch(input.FromAccountID, input.ToAccountID, weight)
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

func (s *Service) deleteShare(ctx context.Context, input DeleteShareInput, kind shareKind) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			kind.of(draft).Remove(input.AccountID)
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}
