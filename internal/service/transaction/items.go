package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/internal/domain"
)

// CreateItem adds a purchase item to the caller's draft. Items only make
// sense on purchases; transfers reject the operation.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}
	if err := s.checkItemName(input.Name); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(t *domain.Transaction, draft *domain.TransactionDetails) error {
			if t.Type != domain.TransactionTypePurchase {
				return domain.NewValidationError("type", "purchase items require a purchase transaction")
			}
			if len(draft.PurchaseItems) >= s.cfg.MaxPurchaseItems {
				return domain.NewValidationError("purchase_items", "item limit reached")
			}

			draft.PurchaseItems = append(draft.PurchaseItems, &domain.PurchaseItem{
				ID:              uuid.New(),
				Name:            input.Name,
				Price:           input.Price,
				CommunistShares: input.CommunistShares,
				Usages:          domain.NewShareMap(),
			})
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

// UpdateItem replaces the scalar fields of a purchase item in the caller's
// draft. The item keeps its ID and usages.
func (s *Service) UpdateItem(ctx context.Context, input UpdateItemInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}
	if err := s.checkItemName(input.Name); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			item, err := requireActiveItem(draft, input.ItemID)
			if err != nil {
				return err
			}
			item.Name = input.Name
			item.Price = input.Price
			item.CommunistShares = input.CommunistShares
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

// DeleteItem flags a purchase item as deleted in the caller's draft. The
// row keeps its place in the item list; deleted items are ignored by the
// balance computation. Deleting an already deleted item is a no-op.
func (s *Service) DeleteItem(ctx context.Context, input DeleteItemInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			item, ok := draft.Item(input.ItemID)
			if !ok {
				return fmt.Errorf("purchase item %s: %w", input.ItemID, domain.ErrNotFound)
			}
			item.Deleted = true
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

// SetItemUsage records how many usage shares of an item an account consumed
// in the caller's draft, replacing any previous value.
func (s *Service) SetItemUsage(ctx context.Context, input SetItemUsageInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			item, err := requireActiveItem(draft, input.ItemID)
			if err != nil {
				return err
			}
			return item.Usages.Set(input.AccountID, input.ShareAmount)
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

// RemoveItemUsage drops an account's usage of an item in the caller's
// draft. Removing an absent usage is a no-op.
func (s *Service) RemoveItemUsage(ctx context.Context, input RemoveItemUsageInput) (View, error) {
	if err := input.Validate(); err != nil {
		return View{}, err
	}

	t, err := s.withDraft(ctx, input.TransactionID, input.UserID,
		func(_ *domain.Transaction, draft *domain.TransactionDetails) error {
			item, err := requireActiveItem(draft, input.ItemID)
			if err != nil {
				return err
			}
			item.Usages.Remove(input.AccountID)
			return nil
		})
	if err != nil {
		return View{}, err
	}

	return NewView(t, input.UserID), nil
}

// requireActiveItem resolves a non-deleted item of the draft.
func requireActiveItem(draft *domain.TransactionDetails, itemID uuid.UUID) (*domain.PurchaseItem, error) {
	item, ok := draft.Item(itemID)
	if !ok || item.Deleted {
		return nil, fmt.Errorf("purchase item %s: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}
