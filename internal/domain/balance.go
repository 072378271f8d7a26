package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountBalance is one account's stake in a single transaction revision,
// split into the three contribution channels.
type AccountBalance struct {
	// Positions is what the account owes for explicit purchase item usages.
	Positions decimal.Decimal
	// CommonDebitors is the account's proportional part of the value not
	// covered by explicit item usages, split over the debitor shares.
	CommonDebitors decimal.Decimal
	// CommonCreditors is what the account is owed as a creditor.
	CommonCreditors decimal.Decimal
}

// Net returns the account's net effect: positive means the account is owed
// money, negative means it owes.
func (b AccountBalance) Net() decimal.Decimal {
	return b.CommonCreditors.Sub(b.Positions).Sub(b.CommonDebitors)
}

// AccountBalances distributes a revision's value over the participating
// accounts.
//
// For every active purchase item the total share basis is
// communist_shares + Σusages. Each usage account is billed
// price × usage/basis. The pooled remainder, price × communist/basis, is not
// billed per item; it is folded back into the common pot together with any
// transaction value not covered by item prices, and that pot is split over
// the debitor shares proportionally. Creditors are credited
// value × creditor fraction. Summing every account's allocations reproduces
// the transaction value exactly, up to decimal division precision.
func AccountBalances(d *TransactionDetails) map[uuid.UUID]AccountBalance {
	balances := make(map[uuid.UUID]AccountBalance)

	remaining := d.Value
	for _, item := range d.PurchaseItems {
		if item.Deleted {
			continue
		}

		basis := item.CommunistShares.Add(item.Usages.Total())

		for _, accountID := range item.Usages.Accounts() {
			usage, _ := item.Usages.Get(accountID)
			b := balances[accountID]
			if basis.IsPositive() {
				b.Positions = b.Positions.Add(item.Price.Mul(usage).Div(basis))
			}
			balances[accountID] = b
		}

		// The communist part of the item flows back into the common pot.
		commonRemainder := decimal.Zero
		if basis.IsPositive() {
			commonRemainder = item.Price.Mul(item.CommunistShares).Div(basis)
		}
		remaining = remaining.Sub(item.Price).Add(commonRemainder)
	}

	debitorTotal := d.DebitorShares.Total()
	for _, accountID := range d.DebitorShares.Accounts() {
		weight, _ := d.DebitorShares.Get(accountID)
		b := balances[accountID]
		if debitorTotal.IsPositive() {
			b.CommonDebitors = b.CommonDebitors.Add(remaining.Mul(weight).Div(debitorTotal))
		}
		balances[accountID] = b
	}

	creditorTotal := d.CreditorShares.Total()
	for _, accountID := range d.CreditorShares.Accounts() {
		weight, _ := d.CreditorShares.Get(accountID)
		b := balances[accountID]
		if creditorTotal.IsPositive() {
			b.CommonCreditors = b.CommonCreditors.Add(d.Value.Mul(weight).Div(creditorTotal))
		}
		balances[accountID] = b
	}

	return balances
}

// GroupBalances folds per-transaction balances into a net balance per
// account. For each transaction the viewer's own draft shadows the committed
// snapshot; transactions whose effective revision is deleted (or that have
// no effective revision at all) are skipped.
func GroupBalances(transactions []*Transaction, viewerID uuid.UUID) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)

	for _, t := range transactions {
		details := t.Committed
		if draft, ok := t.Drafts[viewerID]; ok {
			details = draft
		}
		if details == nil || details.Deleted {
			continue
		}

		for accountID, b := range AccountBalances(details) {
			totals[accountID] = totals[accountID].Add(b.Net())
		}
	}

	return totals
}
