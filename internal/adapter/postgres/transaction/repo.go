// Package transaction implements the transaction aggregate repository using
// PostgreSQL. A transaction row carries the version counter and the pointer
// to its committed revision; transaction_details rows hold every revision
// (editor_id NULL = committed/history, non-NULL = that editor's draft) with
// their share and purchase item rows hanging off them.
package transaction

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mic-e/abrechnung/internal/adapter/postgres"
	"github.com/mic-e/abrechnung/internal/domain"
)

// ListFilter narrows ListByGroup results. Date bounds match the committed
// revision's billed_at; transactions without a committed revision are never
// excluded by them.
type ListFilter struct {
	BilledAtFrom   *time.Time
	BilledAtUntil  *time.Time
	IncludeDeleted bool
}

// Repo provides transaction persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new transaction repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL
// ---------------------------------------------------------------------------

const getTransactionSQL = `
SELECT id, group_id, type, version, committed_details_id, created_by, created_at
FROM transactions
WHERE id = $1`

const getTransactionForUpdateSQL = getTransactionSQL + `
FOR UPDATE`

const getDetailsSQL = `
SELECT d.id, d.transaction_id, d.editor_id, d.description, d.value,
       d.currency_symbol, d.currency_conversion_rate, d.billed_at, d.deleted
FROM transaction_details d
JOIN transactions t ON d.transaction_id = t.id
WHERE d.transaction_id = ANY($1::uuid[])
  AND (d.editor_id IS NOT NULL OR d.id = t.committed_details_id)`

const getSharesSQL = `
SELECT details_id, account_id, shares, position
FROM %s
WHERE details_id = ANY($1::uuid[])
ORDER BY details_id, position`

const getItemsSQL = `
SELECT details_id, id, name, price, communist_shares, deleted, position
FROM purchase_items
WHERE details_id = ANY($1::uuid[])
ORDER BY details_id, position`

const getUsagesSQL = `
SELECT details_id, item_id, account_id, share_amount, position
FROM purchase_item_usages
WHERE details_id = ANY($1::uuid[])
ORDER BY details_id, item_id, position`

const insertTransactionSQL = `
INSERT INTO transactions (id, group_id, type, version, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertDetailsSQL = `
INSERT INTO transaction_details
    (id, transaction_id, editor_id, description, value, currency_symbol,
     currency_conversion_rate, billed_at, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertShareSQL = `
INSERT INTO %s (details_id, account_id, shares, position)
VALUES ($1, $2, $3, $4)`

const insertItemSQL = `
INSERT INTO purchase_items (details_id, id, name, price, communist_shares, deleted, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const insertUsageSQL = `
INSERT INTO purchase_item_usages (details_id, item_id, account_id, share_amount, position)
VALUES ($1, $2, $3, $4, $5)`

const deleteDraftSQL = `
DELETE FROM transaction_details
WHERE transaction_id = $1 AND editor_id = $2`

const selectDraftIDSQL = `
SELECT id FROM transaction_details
WHERE transaction_id = $1 AND editor_id = $2`

const commitCASSQL = `
UPDATE transactions
SET version = version + 1, committed_details_id = $1
WHERE id = $2 AND version = $3`

const promoteDraftSQL = `
UPDATE transaction_details SET editor_id = NULL WHERE id = $1`

const discardOtherDraftsSQL = `
DELETE FROM transaction_details
WHERE transaction_id = $1 AND editor_id IS NOT NULL`

const hardDeleteSQL = `
DELETE FROM transactions WHERE id = $1`

// ---------------------------------------------------------------------------
// Row types (scany)
// ---------------------------------------------------------------------------

type txRow struct {
	ID                 uuid.UUID  `db:"id"`
	GroupID            uuid.UUID  `db:"group_id"`
	Type               string     `db:"type"`
	Version            int64      `db:"version"`
	CommittedDetailsID *uuid.UUID `db:"committed_details_id"`
	CreatedBy          uuid.UUID  `db:"created_by"`
	CreatedAt          time.Time  `db:"created_at"`
}

type detailsRow struct {
	ID                     uuid.UUID       `db:"id"`
	TransactionID          uuid.UUID       `db:"transaction_id"`
	EditorID               *uuid.UUID      `db:"editor_id"`
	Description            string          `db:"description"`
	Value                  decimal.Decimal `db:"value"`
	CurrencySymbol         string          `db:"currency_symbol"`
	CurrencyConversionRate decimal.Decimal `db:"currency_conversion_rate"`
	BilledAt               time.Time       `db:"billed_at"`
	Deleted                bool            `db:"deleted"`
}

type shareRow struct {
	DetailsID uuid.UUID       `db:"details_id"`
	AccountID uuid.UUID       `db:"account_id"`
	Shares    decimal.Decimal `db:"shares"`
	Position  int             `db:"position"`
}

type itemRow struct {
	DetailsID       uuid.UUID       `db:"details_id"`
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	Price           decimal.Decimal `db:"price"`
	CommunistShares decimal.Decimal `db:"communist_shares"`
	Deleted         bool            `db:"deleted"`
	Position        int             `db:"position"`
}

type usageRow struct {
	DetailsID   uuid.UUID       `db:"details_id"`
	ItemID      uuid.UUID       `db:"item_id"`
	AccountID   uuid.UUID       `db:"account_id"`
	ShareAmount decimal.Decimal `db:"share_amount"`
	Position    int             `db:"position"`
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID loads the full aggregate: the transaction row, its committed
// revision, and every pending draft.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.get(ctx, id, getTransactionSQL)
}

// GetByIDForUpdate is GetByID with a row lock on the transaction row; it
// serializes concurrent mutations of the same transaction for the duration
// of the surrounding store transaction.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.get(ctx, id, getTransactionForUpdateSQL)
}

func (r *Repo) get(ctx context.Context, id uuid.UUID, query string) (*domain.Transaction, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var row txRow
	if err := pgxscan.Get(ctx, q, &row, query, id); err != nil {
		return nil, postgres.MapError(err, "transaction", id)
	}

	transactions, err := r.loadAggregates(ctx, q, []txRow{row})
	if err != nil {
		return nil, postgres.MapError(err, "transaction", id)
	}

	return transactions[0], nil
}

// ListByGroup returns the group's transactions ordered by creation, each
// with committed revision and drafts attached.
func (r *Repo) ListByGroup(ctx context.Context, groupID uuid.UUID, filter ListFilter) ([]*domain.Transaction, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	qb := sq.Select(
		"t.id", "t.group_id", "t.type", "t.version",
		"t.committed_details_id", "t.created_by", "t.created_at",
	).
		From("transactions t").
		LeftJoin("transaction_details cd ON cd.id = t.committed_details_id").
		Where(sq.Eq{"t.group_id": groupID}).
		OrderBy("t.created_at", "t.id").
		PlaceholderFormat(sq.Dollar)

	if !filter.IncludeDeleted {
		qb = qb.Where("cd.deleted IS DISTINCT FROM TRUE")
	}
	if filter.BilledAtFrom != nil {
		qb = qb.Where(sq.GtOrEq{"cd.billed_at": *filter.BilledAtFrom})
	}
	if filter.BilledAtUntil != nil {
		qb = qb.Where(sq.LtOrEq{"cd.billed_at": *filter.BilledAtUntil})
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []txRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "group transactions", groupID)
	}
	if len(rows) == 0 {
		return []*domain.Transaction{}, nil
	}

	transactions, err := r.loadAggregates(ctx, q, rows)
	if err != nil {
		return nil, postgres.MapError(err, "group transactions", groupID)
	}

	return transactions, nil
}

// loadAggregates attaches revisions, shares and items to transaction rows.
func (r *Repo) loadAggregates(ctx context.Context, q postgres.Querier, rows []txRow) ([]*domain.Transaction, error) {
	txIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		txIDs[i] = row.ID
	}

	var dRows []detailsRow
	if err := pgxscan.Select(ctx, q, &dRows, getDetailsSQL, txIDs); err != nil {
		return nil, fmt.Errorf("load details: %w", err)
	}

	detailsIDs := make([]uuid.UUID, len(dRows))
	details := make(map[uuid.UUID]*domain.TransactionDetails, len(dRows))
	for i, dr := range dRows {
		detailsIDs[i] = dr.ID
		details[dr.ID] = domain.NewTransactionDetails(
			dr.Description, dr.Value, dr.CurrencySymbol, dr.CurrencyConversionRate, dr.BilledAt,
		)
		details[dr.ID].Deleted = dr.Deleted
	}

	if len(detailsIDs) > 0 {
		if err := r.loadShares(ctx, q, detailsIDs, details); err != nil {
			return nil, err
		}
		if err := r.loadItems(ctx, q, detailsIDs, details); err != nil {
			return nil, err
		}
	}

	transactions := make([]*domain.Transaction, len(rows))
	for i, row := range rows {
		t := &domain.Transaction{
			ID:        row.ID,
			GroupID:   row.GroupID,
			Type:      domain.TransactionType(row.Type),
			Version:   row.Version,
			CreatedBy: row.CreatedBy,
			CreatedAt: row.CreatedAt,
			Drafts:    make(map[uuid.UUID]*domain.TransactionDetails),
		}
		if row.CommittedDetailsID != nil {
			t.Committed = details[*row.CommittedDetailsID]
		}
		for _, dr := range dRows {
			if dr.TransactionID == row.ID && dr.EditorID != nil {
				t.Drafts[*dr.EditorID] = details[dr.ID]
			}
		}
		transactions[i] = t
	}

	return transactions, nil
}

func (r *Repo) loadShares(ctx context.Context, q postgres.Querier, detailsIDs []uuid.UUID, details map[uuid.UUID]*domain.TransactionDetails) error {
	for _, table := range []string{"creditor_shares", "debitor_shares"} {
		var rows []shareRow
		query := fmt.Sprintf(getSharesSQL, table)
		if err := pgxscan.Select(ctx, q, &rows, query, detailsIDs); err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}

		for _, row := range rows {
			d := details[row.DetailsID]
			m := d.CreditorShares
			if table == "debitor_shares" {
				m = d.DebitorShares
			}
			if err := m.Set(row.AccountID, row.Shares); err != nil {
				return fmt.Errorf("restore %s for details %s: %w", table, row.DetailsID, err)
			}
		}
	}
	return nil
}

func (r *Repo) loadItems(ctx context.Context, q postgres.Querier, detailsIDs []uuid.UUID, details map[uuid.UUID]*domain.TransactionDetails) error {
	var iRows []itemRow
	if err := pgxscan.Select(ctx, q, &iRows, getItemsSQL, detailsIDs); err != nil {
		return fmt.Errorf("load purchase items: %w", err)
	}

	items := make(map[uuid.UUID]map[uuid.UUID]*domain.PurchaseItem, len(detailsIDs))
	for _, row := range iRows {
		item := &domain.PurchaseItem{
			ID:              row.ID,
			Name:            row.Name,
			Price:           row.Price,
			CommunistShares: row.CommunistShares,
			Usages:          domain.NewShareMap(),
			Deleted:         row.Deleted,
		}
		d := details[row.DetailsID]
		d.PurchaseItems = append(d.PurchaseItems, item)
		if items[row.DetailsID] == nil {
			items[row.DetailsID] = make(map[uuid.UUID]*domain.PurchaseItem)
		}
		items[row.DetailsID][row.ID] = item
	}

	var uRows []usageRow
	if err := pgxscan.Select(ctx, q, &uRows, getUsagesSQL, detailsIDs); err != nil {
		return fmt.Errorf("load item usages: %w", err)
	}
	for _, row := range uRows {
		item := items[row.DetailsID][row.ItemID]
		if item == nil {
			return fmt.Errorf("usage for unknown item %s in details %s", row.ItemID, row.DetailsID)
		}
		if err := item.Usages.Set(row.AccountID, row.ShareAmount); err != nil {
			return fmt.Errorf("restore usages for item %s: %w", row.ItemID, err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts the transaction row and its initial drafts (one per entry
// in t.Drafts; creation always seeds exactly one, owned by the creator).
func (r *Repo) Create(ctx context.Context, t *domain.Transaction) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, insertTransactionSQL,
		t.ID, t.GroupID, string(t.Type), t.Version, t.CreatedBy, t.CreatedAt,
	); err != nil {
		return postgres.MapError(err, "transaction", t.ID)
	}

	for editorID, draft := range t.Drafts {
		if err := r.insertDetails(ctx, q, t.ID, &editorID, draft); err != nil {
			return postgres.MapError(err, "transaction", t.ID)
		}
	}

	return nil
}

// SaveDraft replaces the editor's draft revision wholesale: the old draft
// rows (if any) are removed and a fresh revision is inserted. Committed
// snapshots are never touched.
func (r *Repo) SaveDraft(ctx context.Context, txID, editorID uuid.UUID, d *domain.TransactionDetails) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, deleteDraftSQL, txID, editorID); err != nil {
		return postgres.MapError(err, "draft", txID)
	}
	if err := r.insertDetails(ctx, q, txID, &editorID, d); err != nil {
		return postgres.MapError(err, "draft", txID)
	}

	return nil
}

// DeleteDraft removes the editor's draft.
// Returns domain.ErrNotFound if the editor has no draft.
func (r *Repo) DeleteDraft(ctx context.Context, txID, editorID uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, deleteDraftSQL, txID, editorID)
	if err != nil {
		return postgres.MapError(err, "draft", txID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s/%s: %w", txID, editorID, domain.ErrNotFound)
	}

	return nil
}

// Commit promotes the editor's draft to the committed revision and discards
// every other editor's draft. The version compare-and-swap guarantees that
// of two racing commits exactly one wins; the loser gets domain.ErrConflict.
// Callers must run this inside a store transaction (the surrounding
// TxManager unit), so a conflict leaves no partial write.
func (r *Repo) Commit(ctx context.Context, txID, editorID uuid.UUID, expectedVersion int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var draftID uuid.UUID
	if err := q.QueryRow(ctx, selectDraftIDSQL, txID, editorID).Scan(&draftID); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("draft %s/%s: %w", txID, editorID, domain.ErrNotFound)
		}
		return postgres.MapError(err, "transaction", txID)
	}

	tag, err := q.Exec(ctx, commitCASSQL, draftID, txID, expectedVersion)
	if err != nil {
		return postgres.MapError(err, "transaction", txID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: commit lost against a newer version: %w", txID, domain.ErrConflict)
	}

	if _, err := q.Exec(ctx, promoteDraftSQL, draftID); err != nil {
		return postgres.MapError(err, "transaction", txID)
	}
	if _, err := q.Exec(ctx, discardOtherDraftsSQL, txID); err != nil {
		return postgres.MapError(err, "transaction", txID)
	}

	return nil
}

// HardDelete physically removes the transaction and everything attached.
// Only valid for transactions that were never committed; committed
// transactions are soft-deleted through a revision with deleted = true.
func (r *Repo) HardDelete(ctx context.Context, txID uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, hardDeleteSQL, txID)
	if err != nil {
		return postgres.MapError(err, "transaction", txID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", txID, domain.ErrNotFound)
	}

	return nil
}

// insertDetails writes one revision with all its shares and items in a
// single batch round trip.
func (r *Repo) insertDetails(ctx context.Context, q postgres.Querier, txID uuid.UUID, editorID *uuid.UUID, d *domain.TransactionDetails) error {
	detailsID := uuid.New()

	batch := &pgx.Batch{}
	batch.Queue(insertDetailsSQL,
		detailsID, txID, editorID, d.Description, d.Value,
		d.CurrencySymbol, d.CurrencyConversionRate, d.BilledAt, d.Deleted,
	)

	queueShares := func(table string, m *domain.ShareMap) {
		query := fmt.Sprintf(insertShareSQL, table)
		for pos, accountID := range m.Accounts() {
			weight, _ := m.Get(accountID)
			batch.Queue(query, detailsID, accountID, weight, pos)
		}
	}
	queueShares("creditor_shares", d.CreditorShares)
	queueShares("debitor_shares", d.DebitorShares)

	for pos, item := range d.PurchaseItems {
		batch.Queue(insertItemSQL,
			detailsID, item.ID, item.Name, item.Price, item.CommunistShares, item.Deleted, pos,
		)
		for upos, accountID := range item.Usages.Accounts() {
			amount, _ := item.Usages.Get(accountID)
			batch.Queue(insertUsageSQL, detailsID, item.ID, accountID, amount, upos)
		}
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert revision (statement %d): %w", i, err)
		}
	}

	return nil
}
