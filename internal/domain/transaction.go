package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType discriminates how a transaction's value is interpreted.
type TransactionType string

const (
	// TransactionTypePurchase is a purchase split among debitor accounts,
	// optionally itemized into purchase items.
	TransactionTypePurchase TransactionType = "purchase"
	// TransactionTypeTransfer moves value directly from creditors to debitors.
	TransactionTypeTransfer TransactionType = "transfer"
)

// ParseTransactionType validates a raw transaction type string.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(raw) {
	case TransactionTypePurchase, TransactionTypeTransfer:
		return TransactionType(raw), nil
	default:
		return "", NewValidationError("type", "must be one of: purchase, transfer")
	}
}

// Transaction is one shared expense of a group. It owns at most one committed
// snapshot (nil until the first commit) and any number of per-editor pending
// drafts. A transaction with neither a committed snapshot nor drafts is
// invalid and must not exist.
type Transaction struct {
	ID      uuid.UUID
	GroupID uuid.UUID
	Type    TransactionType

	// Version increases by one on every commit; it is the compare-and-swap
	// token that serializes competing commits.
	Version int64

	// Committed is the authoritative snapshot, nil until the first commit.
	Committed *TransactionDetails

	CreatedBy uuid.UUID
	CreatedAt time.Time

	// Drafts holds each editor's independent pending revision.
	Drafts map[uuid.UUID]*TransactionDetails
}

// TransactionDetails is one revision of a transaction's content. A revision
// is mutable only while it is somebody's draft; once committed it is a frozen
// snapshot and every further edit produces a new revision (a fresh draft
// cloned from it).
type TransactionDetails struct {
	Description            string
	Value                  decimal.Decimal
	CurrencySymbol         string
	CurrencyConversionRate decimal.Decimal
	BilledAt               time.Time
	Deleted                bool

	// CreditorShares weights who paid; DebitorShares weights who benefits.
	CreditorShares *ShareMap
	DebitorShares  *ShareMap

	// PurchaseItems itemizes part of the transaction's value. Order is the
	// creation order; deleted items stay in place for history.
	PurchaseItems []*PurchaseItem
}

// PurchaseItem is a sub-allocation of a transaction's value. Its ID is stable
// across the revisions of its owning transaction.
type PurchaseItem struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	CommunistShares decimal.Decimal
	Usages          *ShareMap
	Deleted         bool
}

// NewTransactionDetails creates a revision with empty share maps and no items.
func NewTransactionDetails(description string, value decimal.Decimal, currencySymbol string, conversionRate decimal.Decimal, billedAt time.Time) *TransactionDetails {
	return &TransactionDetails{
		Description:            description,
		Value:                  value,
		CurrencySymbol:         currencySymbol,
		CurrencyConversionRate: conversionRate,
		BilledAt:               billedAt,
		CreditorShares:         NewShareMap(),
		DebitorShares:          NewShareMap(),
	}
}

// Clone deep-copies the revision, including share maps and purchase items,
// so committed snapshots are never mutated through a draft.
func (d *TransactionDetails) Clone() *TransactionDetails {
	c := &TransactionDetails{
		Description:            d.Description,
		Value:                  d.Value,
		CurrencySymbol:         d.CurrencySymbol,
		CurrencyConversionRate: d.CurrencyConversionRate,
		BilledAt:               d.BilledAt,
		Deleted:                d.Deleted,
		CreditorShares:         d.CreditorShares.Clone(),
		DebitorShares:          d.DebitorShares.Clone(),
	}
	if len(d.PurchaseItems) > 0 {
		c.PurchaseItems = make([]*PurchaseItem, len(d.PurchaseItems))
		for i, item := range d.PurchaseItems {
			c.PurchaseItems[i] = item.Clone()
		}
	}
	return c
}

// Item returns the purchase item with the given ID.
// Deleted items are found too; callers decide whether that matters.
func (d *TransactionDetails) Item(itemID uuid.UUID) (*PurchaseItem, bool) {
	for _, item := range d.PurchaseItems {
		if item.ID == itemID {
			return item, true
		}
	}
	return nil, false
}

// ActiveItems returns the non-deleted purchase items in order.
func (d *TransactionDetails) ActiveItems() []*PurchaseItem {
	var items []*PurchaseItem
	for _, item := range d.PurchaseItems {
		if !item.Deleted {
			items = append(items, item)
		}
	}
	return items
}

// Clone deep-copies the item.
func (p *PurchaseItem) Clone() *PurchaseItem {
	return &PurchaseItem{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		CommunistShares: p.CommunistShares,
		Usages:          p.Usages.Clone(),
		Deleted:         p.Deleted,
	}
}

// Draft returns the editor's pending revision, if any.
func (t *Transaction) Draft(editorID uuid.UUID) (*TransactionDetails, bool) {
	d, ok := t.Drafts[editorID]
	return d, ok
}

// IsCommitted reports whether the transaction has a committed snapshot.
func (t *Transaction) IsCommitted() bool {
	return t.Committed != nil
}

// IsDeleted reports whether the committed snapshot is flagged deleted.
func (t *Transaction) IsDeleted() bool {
	return t.Committed != nil && t.Committed.Deleted
}
