package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShareMap is an ordered mapping from account ID to a positive share weight.
// Keys are unique; iteration order is insertion order, which is stable for
// display but carries no meaning for computation; only weight/Σweight
// fractions do. The zero value is not usable; construct via NewShareMap.
type ShareMap struct {
	order  []uuid.UUID
	shares map[uuid.UUID]decimal.Decimal
}

// NewShareMap creates an empty ShareMap.
func NewShareMap() *ShareMap {
	return &ShareMap{
		shares: make(map[uuid.UUID]decimal.Decimal),
	}
}

// Set upserts the share weight for the given account.
// The weight must be strictly positive; entries with weight <= 0 are never
// stored (remove instead of setting zero).
func (m *ShareMap) Set(accountID uuid.UUID, weight decimal.Decimal) error {
	if accountID == uuid.Nil {
		return NewValidationError("account_id", "required")
	}
	if !weight.IsPositive() {
		return NewValidationError("shares", "must be > 0")
	}
	if _, ok := m.shares[accountID]; !ok {
		m.order = append(m.order, accountID)
	}
	m.shares[accountID] = weight
	return nil
}

// Remove deletes the account's entry. Removing an absent account is a no-op.
func (m *ShareMap) Remove(accountID uuid.UUID) {
	if _, ok := m.shares[accountID]; !ok {
		return
	}
	delete(m.shares, accountID)
	for i, id := range m.order {
		if id == accountID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Switch atomically reassigns a share from one account to another: the entry
// for from (if any) is removed and to receives the given weight. There is no
// intermediate state in which neither account holds the share.
func (m *ShareMap) Switch(from, to uuid.UUID, weight decimal.Decimal) error {
	if err := m.Set(to, weight); err != nil {
		return err
	}
	if from != to {
		m.Remove(from)
	}
	return nil
}

// Get returns the weight for the account and whether an entry exists.
func (m *ShareMap) Get(accountID uuid.UUID) (decimal.Decimal, bool) {
	w, ok := m.shares[accountID]
	return w, ok
}

// Total returns the sum of all weights.
func (m *ShareMap) Total() decimal.Decimal {
	total := decimal.Zero
	for _, w := range m.shares {
		total = total.Add(w)
	}
	return total
}

// Fraction returns weight(accountID) / Σweights.
// Returns zero if the account is absent or the map is empty.
func (m *ShareMap) Fraction(accountID uuid.UUID) decimal.Decimal {
	w, ok := m.shares[accountID]
	if !ok {
		return decimal.Zero
	}
	total := m.Total()
	if total.IsZero() {
		return decimal.Zero
	}
	return w.Div(total)
}

// Len returns the number of entries.
func (m *ShareMap) Len() int {
	return len(m.shares)
}

// Accounts returns the account IDs in insertion order.
func (m *ShareMap) Accounts() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.order))
	copy(ids, m.order)
	return ids
}

// Clone returns a deep copy.
func (m *ShareMap) Clone() *ShareMap {
	c := &ShareMap{
		order:  make([]uuid.UUID, len(m.order)),
		shares: make(map[uuid.UUID]decimal.Decimal, len(m.shares)),
	}
	copy(c.order, m.order)
	for id, w := range m.shares {
		c.shares[id] = w
	}
	return c
}

// MarshalJSON renders the map keyed by stringified account IDs, matching the
// wire shape clients expect for share maps.
func (m *ShareMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]decimal.Decimal, len(m.shares))
	for id, w := range m.shares {
		out[id.String()] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a map keyed by stringified account IDs. Weights must
// be positive, same as Set.
func (m *ShareMap) UnmarshalJSON(data []byte) error {
	var raw map[string]decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = *NewShareMap()
	for key, w := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("share map key %q: %w", key, err)
		}
		if err := m.Set(id, w); err != nil {
			return err
		}
	}
	return nil
}
