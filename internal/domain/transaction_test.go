package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseTransactionType(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"purchase", "transfer"} {
		got, err := ParseTransactionType(raw)
		if err != nil {
			t.Errorf("ParseTransactionType(%q): unexpected error: %v", raw, err)
		}
		if string(got) != raw {
			t.Errorf("ParseTransactionType(%q) = %q", raw, got)
		}
	}

	for _, raw := range []string{"", "Purchase", "mimo", "loan"} {
		if _, err := ParseTransactionType(raw); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseTransactionType(%q): got %v, want ErrValidation", raw, err)
		}
	}
}

func TestTransactionDetails_CloneIsDeep(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	d := NewTransactionDetails("groceries", dec("30"), "EUR", dec("1"), time.Date(2021, 5, 2, 0, 0, 0, 0, time.UTC))
	mustSet(t, d.CreditorShares, a, "1")
	mustSet(t, d.DebitorShares, a, "1")
	mustSet(t, d.DebitorShares, b, "1")

	item := &PurchaseItem{ID: uuid.New(), Name: "milk", Price: dec("2"), Usages: NewShareMap()}
	mustSet(t, item.Usages, b, "1")
	d.PurchaseItems = append(d.PurchaseItems, item)

	c := d.Clone()
	c.Description = "changed"
	c.Value = dec("40")
	mustSet(t, c.DebitorShares, uuid.New(), "1")
	c.PurchaseItems[0].Name = "oat milk"
	mustSet(t, c.PurchaseItems[0].Usages, a, "3")
	c.PurchaseItems = append(c.PurchaseItems, &PurchaseItem{ID: uuid.New(), Name: "bread", Price: dec("1"), Usages: NewShareMap()})

	if d.Description != "groceries" || !d.Value.Equal(dec("30")) {
		t.Error("clone mutation leaked into original fields")
	}
	if d.DebitorShares.Len() != 2 {
		t.Errorf("original debitor shares: got %d entries, want 2", d.DebitorShares.Len())
	}
	if len(d.PurchaseItems) != 1 {
		t.Errorf("original items: got %d, want 1", len(d.PurchaseItems))
	}
	if d.PurchaseItems[0].Name != "milk" {
		t.Errorf("original item name: got %q, want %q", d.PurchaseItems[0].Name, "milk")
	}
	if d.PurchaseItems[0].Usages.Len() != 1 {
		t.Errorf("original item usages: got %d entries, want 1", d.PurchaseItems[0].Usages.Len())
	}
}

func TestTransactionDetails_Item(t *testing.T) {
	t.Parallel()

	d := NewTransactionDetails("x", dec("1"), "EUR", dec("1"), time.Now())
	active := &PurchaseItem{ID: uuid.New(), Name: "a", Price: dec("1"), Usages: NewShareMap()}
	gone := &PurchaseItem{ID: uuid.New(), Name: "b", Price: dec("1"), Usages: NewShareMap(), Deleted: true}
	d.PurchaseItems = []*PurchaseItem{active, gone}

	if got, ok := d.Item(active.ID); !ok || got != active {
		t.Error("Item: active item not found")
	}
	if got, ok := d.Item(gone.ID); !ok || got != gone {
		t.Error("Item: deleted items must still be addressable")
	}
	if _, ok := d.Item(uuid.New()); ok {
		t.Error("Item: unknown ID must not be found")
	}

	if items := d.ActiveItems(); len(items) != 1 || items[0] != active {
		t.Errorf("ActiveItems: got %d items, want only the active one", len(items))
	}
}

func TestTransaction_StateAccessors(t *testing.T) {
	t.Parallel()

	editor := uuid.New()
	draft := NewTransactionDetails("x", dec("1"), "EUR", dec("1"), time.Now())
	tx := &Transaction{
		ID:     uuid.New(),
		Type:   TransactionTypeTransfer,
		Drafts: map[uuid.UUID]*TransactionDetails{editor: draft},
	}

	if tx.IsCommitted() {
		t.Error("IsCommitted on uncommitted transaction")
	}
	if tx.IsDeleted() {
		t.Error("IsDeleted without committed snapshot")
	}
	if d, ok := tx.Draft(editor); !ok || d != draft {
		t.Error("Draft: editor's draft not returned")
	}
	if _, ok := tx.Draft(uuid.New()); ok {
		t.Error("Draft: unknown editor must have no draft")
	}

	tx.Committed = NewTransactionDetails("x", dec("1"), "EUR", dec("1"), time.Now())
	tx.Committed.Deleted = true
	if !tx.IsCommitted() || !tx.IsDeleted() {
		t.Error("committed deleted snapshot must report committed and deleted")
	}
}
