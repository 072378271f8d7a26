package transaction

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mic-e/abrechnung/internal/domain"
)

// View is a transaction as one particular user sees it: the committed
// revision, every pending draft, and the effective revision (the viewer's
// draft when they have one, the committed revision otherwise).
type View struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	Type      domain.TransactionType
	Version   int64
	CreatedBy uuid.UUID

	Committed *domain.TransactionDetails
	Drafts    map[uuid.UUID]*domain.TransactionDetails

	// Effective is nil only for an uncommitted transaction viewed by
	// someone other than the draft holder (which the service never returns).
	Effective *domain.TransactionDetails

	// IsWIP reports whether any editor currently holds a draft.
	IsWIP bool

	// HasOwnDraft reports whether the viewer is one of those editors.
	HasOwnDraft bool
}

// NewView projects a transaction for the given viewer.
func NewView(t *domain.Transaction, viewerID uuid.UUID) View {
	v := View{
		ID:        t.ID,
		GroupID:   t.GroupID,
		Type:      t.Type,
		Version:   t.Version,
		CreatedBy: t.CreatedBy,
		Committed: t.Committed,
		Drafts:    t.Drafts,
		Effective: t.Committed,
		IsWIP:     len(t.Drafts) > 0,
	}
	if draft, ok := t.Draft(viewerID); ok {
		v.Effective = draft
		v.HasOwnDraft = true
	}
	return v
}

// BalancesResult pairs the per-account balances of a group with the viewer
// the drafts were resolved for.
type BalancesResult struct {
	ViewerID uuid.UUID
	Balances map[uuid.UUID]decimal.Decimal
}

// Total returns the net balance of one account, zero if the account has no
// entries.
func (r *BalancesResult) Total(accountID uuid.UUID) decimal.Decimal {
	return r.Balances[accountID]
}
