package transaction

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txrepo "github.com/mic-e/abrechnung/internal/adapter/postgres/transaction"
	"github.com/mic-e/abrechnung/internal/config"
	"github.com/mic-e/abrechnung/internal/domain"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockTransactionRepo struct {
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdateFunc func(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByGroupFunc      func(ctx context.Context, groupID uuid.UUID, filter txrepo.ListFilter) ([]*domain.Transaction, error)
	CreateFunc           func(ctx context.Context, t *domain.Transaction) error
	SaveDraftFunc        func(ctx context.Context, txID, editorID uuid.UUID, d *domain.TransactionDetails) error
	DeleteDraftFunc      func(ctx context.Context, txID, editorID uuid.UUID) error
	CommitFunc           func(ctx context.Context, txID, editorID uuid.UUID, expectedVersion int64) error
	HardDeleteFunc       func(ctx context.Context, txID uuid.UUID) error
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTransactionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTransactionRepo) ListByGroup(ctx context.Context, groupID uuid.UUID, filter txrepo.ListFilter) ([]*domain.Transaction, error) {
	if m.ListByGroupFunc != nil {
		return m.ListByGroupFunc(ctx, groupID, filter)
	}
	return nil, nil
}

func (m *mockTransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

func (m *mockTransactionRepo) SaveDraft(ctx context.Context, txID, editorID uuid.UUID, d *domain.TransactionDetails) error {
	if m.SaveDraftFunc != nil {
		return m.SaveDraftFunc(ctx, txID, editorID, d)
	}
	return nil
}

func (m *mockTransactionRepo) DeleteDraft(ctx context.Context, txID, editorID uuid.UUID) error {
	if m.DeleteDraftFunc != nil {
		return m.DeleteDraftFunc(ctx, txID, editorID)
	}
	return nil
}

func (m *mockTransactionRepo) Commit(ctx context.Context, txID, editorID uuid.UUID, expectedVersion int64) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, txID, editorID, expectedVersion)
	}
	return nil
}

func (m *mockTransactionRepo) HardDelete(ctx context.Context, txID uuid.UUID) error {
	if m.HardDeleteFunc != nil {
		return m.HardDeleteFunc(ctx, txID)
	}
	return nil
}

type mockGroupRepo struct {
	IsMemberFunc func(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	CanWriteFunc func(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	RecordFunc   func(ctx context.Context, e domain.GroupLogEntry) error
	ListLogFunc  func(ctx context.Context, groupID uuid.UUID, limit int) ([]domain.GroupLogEntry, error)

	recorded []domain.GroupLogEntry
}

func (m *mockGroupRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, groupID, userID)
	}
	return true, nil
}

func (m *mockGroupRepo) CanWrite(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	if m.CanWriteFunc != nil {
		return m.CanWriteFunc(ctx, groupID, userID)
	}
	return true, nil
}

func (m *mockGroupRepo) Record(ctx context.Context, e domain.GroupLogEntry) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, e)
	}
	m.recorded = append(m.recorded, e)
	return nil
}

func (m *mockGroupRepo) ListLog(ctx context.Context, groupID uuid.UUID, limit int) ([]domain.GroupLogEntry, error) {
	if m.ListLogFunc != nil {
		return m.ListLogFunc(ctx, groupID, limit)
	}
	return nil, nil
}

type mockCurrencyRegistry struct {
	IsValidSymbolFunc func(symbol string) bool
}

func (m *mockCurrencyRegistry) IsValidSymbol(symbol string) bool {
	if m.IsValidSymbolFunc != nil {
		return m.IsValidSymbolFunc(symbol)
	}
	return true
}

type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ===========================================================================
// Helpers
// ===========================================================================

type testEnv struct {
	svc          *Service
	transactions *mockTransactionRepo
	groups       *mockGroupRepo
	currencies   *mockCurrencyRegistry
}

func newTestEnv() *testEnv {
	return newTestEnvWithConfig(config.TransactionConfig{
		MaxDescriptionLen: 1000,
		MaxPurchaseItems:  200,
		MaxItemNameLen:    255,
		GroupLogPageSize:  100,
	})
}

func newTestEnvWithConfig(cfg config.TransactionConfig) *testEnv {
	transactions := &mockTransactionRepo{}
	groups := &mockGroupRepo{}
	currencies := &mockCurrencyRegistry{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		svc:          NewService(logger, transactions, groups, currencies, &mockTxManager{}, cfg),
		transactions: transactions,
		groups:       groups,
		currencies:   currencies,
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func billedAt() time.Time {
	return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
}

func newDetails(t *testing.T, value string) *domain.TransactionDetails {
	t.Helper()
	return domain.NewTransactionDetails("groceries", dec(t, value), "EUR", dec(t, "1"), billedAt())
}

// committedTx returns a committed transaction at version 2 with no drafts.
func committedTx(t *testing.T, groupID, creatorID uuid.UUID) *domain.Transaction {
	t.Helper()
	return &domain.Transaction{
		ID:        uuid.New(),
		GroupID:   groupID,
		Type:      domain.TransactionTypePurchase,
		Version:   2,
		Committed: newDetails(t, "30.00"),
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
		Drafts:    map[uuid.UUID]*domain.TransactionDetails{},
	}
}

// uncommittedTx returns a fresh transaction whose only revision is the
// creator's draft.
func uncommittedTx(t *testing.T, groupID, creatorID uuid.UUID) *domain.Transaction {
	t.Helper()
	return &domain.Transaction{
		ID:        uuid.New(),
		GroupID:   groupID,
		Type:      domain.TransactionTypePurchase,
		Version:   1,
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
		Drafts:    map[uuid.UUID]*domain.TransactionDetails{creatorID: newDetails(t, "30.00")},
	}
}

func validCreateInput(userID, groupID uuid.UUID) CreateTransactionInput {
	return CreateTransactionInput{
		UserID:                 userID,
		GroupID:                groupID,
		Type:                   "purchase",
		Description:            "groceries",
		Value:                  decimal.NewFromInt(30),
		CurrencySymbol:         "EUR",
		CurrencyConversionRate: decimal.NewFromInt(1),
		BilledAt:               billedAt(),
	}
}

// ===========================================================================
// CreateTransaction
// ===========================================================================

func TestCreateTransaction(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("creates uncommitted transaction with creator draft", func(t *testing.T) {
		env := newTestEnv()

		var created *domain.Transaction
		env.transactions.CreateFunc = func(_ context.Context, tx *domain.Transaction) error {
			created = tx
			return nil
		}

		view, err := env.svc.CreateTransaction(ctx, validCreateInput(userID, groupID))
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Nil(t, created.Committed)
		assert.Equal(t, int64(1), created.Version)
		require.Len(t, created.Drafts, 1)
		draft := created.Drafts[userID]
		require.NotNil(t, draft)
		assert.Equal(t, "groceries", draft.Description)

		assert.True(t, view.IsWIP)
		assert.True(t, view.HasOwnDraft)
		assert.Same(t, draft, view.Effective)

		require.Len(t, env.groups.recorded, 1)
		assert.Equal(t, domain.LogTransactionCreated, env.groups.recorded[0].Kind)
	})

	t.Run("negative value records a refund", func(t *testing.T) {
		env := newTestEnv()

		var created *domain.Transaction
		env.transactions.CreateFunc = func(_ context.Context, tx *domain.Transaction) error {
			created = tx
			return nil
		}

		input := validCreateInput(userID, groupID)
		input.Value = dec(t, "-5.00")

		_, err := env.svc.CreateTransaction(ctx, input)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.True(t, created.Drafts[userID].Value.Equal(dec(t, "-5.00")))
	})

	t.Run("description limit follows configuration", func(t *testing.T) {
		long := strings.Repeat("x", 1500)

		env := newTestEnv()
		input := validCreateInput(userID, groupID)
		input.Description = long

		_, err := env.svc.CreateTransaction(ctx, input)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "max 1000")

		env = newTestEnvWithConfig(config.TransactionConfig{
			MaxDescriptionLen: 5000,
			MaxPurchaseItems:  200,
			MaxItemNameLen:    255,
			GroupLogPageSize:  100,
		})
		_, err = env.svc.CreateTransaction(ctx, input)
		assert.NoError(t, err)
	})

	t.Run("validation errors collect", func(t *testing.T) {
		env := newTestEnv()

		input := validCreateInput(userID, groupID)
		input.Type = "loan"
		input.CurrencyConversionRate = decimal.Zero

		_, err := env.svc.CreateTransaction(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown currency symbol", func(t *testing.T) {
		env := newTestEnv()
		env.currencies.IsValidSymbolFunc = func(string) bool { return false }

		_, err := env.svc.CreateTransaction(ctx, validCreateInput(userID, groupID))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("read-only member is forbidden", func(t *testing.T) {
		env := newTestEnv()
		env.groups.CanWriteFunc = func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, nil }

		_, err := env.svc.CreateTransaction(ctx, validCreateInput(userID, groupID))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("non-member sees nothing", func(t *testing.T) {
		env := newTestEnv()
		env.groups.CanWriteFunc = func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, nil }
		env.groups.IsMemberFunc = func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, nil }

		_, err := env.svc.CreateTransaction(ctx, validCreateInput(userID, groupID))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// ===========================================================================
// Draft lifecycle
// ===========================================================================

func TestUpdateTransaction(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("opens draft from committed revision", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, uuid.New())
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		var savedEditor uuid.UUID
		var saved *domain.TransactionDetails
		env.transactions.SaveDraftFunc = func(_ context.Context, _, editorID uuid.UUID, d *domain.TransactionDetails) error {
			savedEditor = editorID
			saved = d
			return nil
		}

		view, err := env.svc.UpdateTransaction(ctx, UpdateTransactionInput{
			UserID:                 userID,
			TransactionID:          tx.ID,
			Description:            "dinner",
			Value:                  dec(t, "42.50"),
			CurrencySymbol:         "EUR",
			CurrencyConversionRate: dec(t, "1"),
			BilledAt:               billedAt(),
		})
		require.NoError(t, err)

		assert.Equal(t, userID, savedEditor)
		require.NotNil(t, saved)
		assert.Equal(t, "dinner", saved.Description)
		assert.True(t, saved.Value.Equal(dec(t, "42.50")))

		// The committed revision must not change until commit.
		assert.Equal(t, "groceries", tx.Committed.Description)
		assert.True(t, view.HasOwnDraft)
		assert.Same(t, saved, view.Effective)
	})

	t.Run("uncommitted transaction is invisible to non-creator", func(t *testing.T) {
		env := newTestEnv()
		tx := uncommittedTx(t, groupID, uuid.New())
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.UpdateTransaction(ctx, UpdateTransactionInput{
			UserID:                 userID,
			TransactionID:          tx.ID,
			Description:            "hijack",
			Value:                  dec(t, "1"),
			CurrencySymbol:         "EUR",
			CurrencyConversionRate: dec(t, "1"),
			BilledAt:               billedAt(),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("creator keeps editing their own draft", func(t *testing.T) {
		env := newTestEnv()
		creator := uuid.New()
		tx := uncommittedTx(t, groupID, creator)
		original := tx.Drafts[creator]
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.UpdateTransaction(ctx, UpdateTransactionInput{
			UserID:                 creator,
			TransactionID:          tx.ID,
			Description:            "refined",
			Value:                  dec(t, "31.00"),
			CurrencySymbol:         "EUR",
			CurrencyConversionRate: dec(t, "1"),
			BilledAt:               billedAt(),
		})
		require.NoError(t, err)
		assert.Same(t, original, tx.Drafts[creator])
		assert.Equal(t, "refined", original.Description)
	})
}

func TestCreateChange(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	env := newTestEnv()
	tx := committedTx(t, groupID, uuid.New())
	env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
		return tx, nil
	}

	view, err := env.svc.CreateChange(ctx, CreateChangeInput{UserID: userID, TransactionID: tx.ID})
	require.NoError(t, err)

	require.True(t, view.HasOwnDraft)
	assert.Equal(t, tx.Committed.Description, view.Effective.Description)
	assert.NotSame(t, tx.Committed, view.Effective)
}

func TestDiscardChanges(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("discards draft, committed untouched", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		tx.Drafts[userID] = tx.Committed.Clone()
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		deleted := false
		env.transactions.DeleteDraftFunc = func(_ context.Context, _, editorID uuid.UUID) error {
			deleted = editorID == userID
			return nil
		}

		view, err := env.svc.DiscardChanges(ctx, DiscardChangesInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.False(t, view.HasOwnDraft)
		assert.NotNil(t, view.Committed)
	})

	t.Run("no draft to discard", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.DiscardChanges(ctx, DiscardChangesInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sole revision of uncommitted transaction is protected", func(t *testing.T) {
		env := newTestEnv()
		tx := uncommittedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.DiscardChanges(ctx, DiscardChangesInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

// ===========================================================================
// Commit
// ===========================================================================

func TestCommit(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("promotes draft and discards competitors", func(t *testing.T) {
		env := newTestEnv()
		other := uuid.New()
		tx := committedTx(t, groupID, userID)
		mine := newDetails(t, "42.50")
		tx.Drafts[userID] = mine
		tx.Drafts[other] = newDetails(t, "99.99")
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		var gotExpected int64
		env.transactions.CommitFunc = func(_ context.Context, _, _ uuid.UUID, expectedVersion int64) error {
			gotExpected = expectedVersion
			return nil
		}

		view, err := env.svc.Commit(ctx, CommitInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)

		assert.Equal(t, int64(2), gotExpected)
		assert.Equal(t, int64(3), view.Version)
		assert.Same(t, mine, view.Committed)
		assert.Empty(t, view.Drafts)
		assert.False(t, view.IsWIP)

		require.Len(t, env.groups.recorded, 1)
		assert.Equal(t, domain.LogTransactionCommitted, env.groups.recorded[0].Kind)
	})

	t.Run("no draft", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.Commit(ctx, CommitInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lost commit race surfaces as conflict", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		tx.Drafts[userID] = newDetails(t, "42.50")
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}
		env.transactions.CommitFunc = func(context.Context, uuid.UUID, uuid.UUID, int64) error {
			return domain.ErrConflict
		}

		_, err := env.svc.Commit(ctx, CommitInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Empty(t, env.groups.recorded)
	})
}

// ===========================================================================
// DeleteTransaction
// ===========================================================================

func TestDeleteTransaction(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("uncommitted transaction is removed physically", func(t *testing.T) {
		env := newTestEnv()
		tx := uncommittedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		hardDeleted := false
		env.transactions.HardDeleteFunc = func(context.Context, uuid.UUID) error {
			hardDeleted = true
			return nil
		}

		err := env.svc.DeleteTransaction(ctx, DeleteTransactionInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		assert.True(t, hardDeleted)
	})

	t.Run("committed transaction is soft-deleted via commit", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		var saved *domain.TransactionDetails
		env.transactions.SaveDraftFunc = func(_ context.Context, _, _ uuid.UUID, d *domain.TransactionDetails) error {
			saved = d
			return nil
		}
		committed := false
		env.transactions.CommitFunc = func(context.Context, uuid.UUID, uuid.UUID, int64) error {
			committed = true
			return nil
		}

		err := env.svc.DeleteTransaction(ctx, DeleteTransactionInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.True(t, saved.Deleted)
		assert.True(t, committed)

		require.Len(t, env.groups.recorded, 1)
		assert.Equal(t, domain.LogTransactionDeleted, env.groups.recorded[0].Kind)
	})

	t.Run("pending draft becomes the deletion revision", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		draft := tx.Committed.Clone()
		draft.Description = "groceries, corrected"
		tx.Drafts[userID] = draft
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		var saved *domain.TransactionDetails
		env.transactions.SaveDraftFunc = func(_ context.Context, _, _ uuid.UUID, d *domain.TransactionDetails) error {
			saved = d
			return nil
		}

		err := env.svc.DeleteTransaction(ctx, DeleteTransactionInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Same(t, draft, saved)
		assert.True(t, saved.Deleted)
		assert.Equal(t, "groceries, corrected", saved.Description)

		require.Len(t, env.groups.recorded, 1)
		assert.Equal(t, "groceries, corrected", env.groups.recorded[0].Message)
	})

	t.Run("deleting twice is a no-op", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		tx.Committed.Deleted = true
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		committed := false
		env.transactions.CommitFunc = func(context.Context, uuid.UUID, uuid.UUID, int64) error {
			committed = true
			return nil
		}

		err := env.svc.DeleteTransaction(ctx, DeleteTransactionInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		assert.False(t, committed)
	})
}

// ===========================================================================
// Shares
// ===========================================================================

func TestShares(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	ctx := context.Background()

	newEnvWith := func(t *testing.T) (*testEnv, *domain.Transaction) {
		t.Helper()
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}
		return env, tx
	}

	t.Run("add or change creditor share", func(t *testing.T) {
		env, tx := newEnvWith(t)

		view, err := env.svc.AddOrChangeCreditorShare(ctx, ShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice, Shares: dec(t, "1"),
		})
		require.NoError(t, err)
		w, ok := view.Effective.CreditorShares.Get(alice)
		require.True(t, ok)
		assert.True(t, w.Equal(dec(t, "1")))

		// Same account again replaces the weight, order unchanged.
		view, err = env.svc.AddOrChangeCreditorShare(ctx, ShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice, Shares: dec(t, "3"),
		})
		require.NoError(t, err)
		w, _ = view.Effective.CreditorShares.Get(alice)
		assert.True(t, w.Equal(dec(t, "3")))
		assert.Equal(t, 1, view.Effective.CreditorShares.Len())
	})

	t.Run("switch moves the full weight", func(t *testing.T) {
		env, tx := newEnvWith(t)

		_, err := env.svc.AddOrChangeDebitorShare(ctx, ShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice, Shares: dec(t, "2"),
		})
		require.NoError(t, err)

		view, err := env.svc.SwitchDebitorShare(ctx, SwitchShareInput{
			UserID: userID, TransactionID: tx.ID, FromAccountID: alice, ToAccountID: bob,
		})
		require.NoError(t, err)

		_, ok := view.Effective.DebitorShares.Get(alice)
		assert.False(t, ok)
		assert.True(t, view.Effective.DebitorShares.Fraction(bob).Equal(dec(t, "1")))
	})

	t.Run("switch from an account without a share", func(t *testing.T) {
		env, tx := newEnvWith(t)

		_, err := env.svc.SwitchCreditorShare(ctx, SwitchShareInput{
			UserID: userID, TransactionID: tx.ID, FromAccountID: alice, ToAccountID: bob,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("delete share is idempotent", func(t *testing.T) {
		env, tx := newEnvWith(t)

		_, err := env.svc.AddOrChangeDebitorShare(ctx, ShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice, Shares: dec(t, "2"),
		})
		require.NoError(t, err)

		view, err := env.svc.DeleteDebitorShare(ctx, DeleteShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, view.Effective.DebitorShares.Len())

		// Absent account: still fine.
		_, err = env.svc.DeleteDebitorShare(ctx, DeleteShareInput{
			UserID: userID, TransactionID: tx.ID, AccountID: alice,
		})
		assert.NoError(t, err)
	})
}

// ===========================================================================
// Purchase items
// ===========================================================================

func TestItems(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	alice := uuid.New()
	ctx := context.Background()

	newEnvWith := func(t *testing.T, txType domain.TransactionType) (*testEnv, *domain.Transaction) {
		t.Helper()
		env := newTestEnv()
		tx := committedTx(t, groupID, userID)
		tx.Type = txType
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}
		return env, tx
	}

	t.Run("create item on purchase", func(t *testing.T) {
		env, tx := newEnvWith(t, domain.TransactionTypePurchase)

		view, err := env.svc.CreateItem(ctx, CreateItemInput{
			UserID: userID, TransactionID: tx.ID,
			Name: "wine", Price: dec(t, "12.00"), CommunistShares: dec(t, "1"),
		})
		require.NoError(t, err)
		require.Len(t, view.Effective.PurchaseItems, 1)
		assert.Equal(t, "wine", view.Effective.PurchaseItems[0].Name)
		assert.NotEqual(t, uuid.Nil, view.Effective.PurchaseItems[0].ID)
	})

	t.Run("item name limit follows configuration", func(t *testing.T) {
		env := newTestEnvWithConfig(config.TransactionConfig{
			MaxDescriptionLen: 1000,
			MaxPurchaseItems:  200,
			MaxItemNameLen:    10,
			GroupLogPageSize:  100,
		})
		tx := committedTx(t, groupID, userID)
		env.transactions.GetByIDForUpdateFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.CreateItem(ctx, CreateItemInput{
			UserID: userID, TransactionID: tx.ID,
			Name: "a name past the limit", Price: dec(t, "12.00"), CommunistShares: dec(t, "1"),
		})
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "max 10")
	})

	t.Run("items rejected on transfers", func(t *testing.T) {
		env, tx := newEnvWith(t, domain.TransactionTypeTransfer)

		_, err := env.svc.CreateItem(ctx, CreateItemInput{
			UserID: userID, TransactionID: tx.ID,
			Name: "wine", Price: dec(t, "12.00"), CommunistShares: dec(t, "1"),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("update and usage lifecycle", func(t *testing.T) {
		env, tx := newEnvWith(t, domain.TransactionTypePurchase)

		view, err := env.svc.CreateItem(ctx, CreateItemInput{
			UserID: userID, TransactionID: tx.ID,
			Name: "wine", Price: dec(t, "12.00"), CommunistShares: dec(t, "1"),
		})
		require.NoError(t, err)
		itemID := view.Effective.PurchaseItems[0].ID

		view, err = env.svc.UpdateItem(ctx, UpdateItemInput{
			UserID: userID, TransactionID: tx.ID, ItemID: itemID,
			Name: "red wine", Price: dec(t, "13.00"), CommunistShares: dec(t, "0"),
		})
		require.NoError(t, err)
		item := view.Effective.PurchaseItems[0]
		assert.Equal(t, "red wine", item.Name)
		assert.Equal(t, itemID, item.ID)

		view, err = env.svc.SetItemUsage(ctx, SetItemUsageInput{
			UserID: userID, TransactionID: tx.ID, ItemID: itemID,
			AccountID: alice, ShareAmount: dec(t, "2"),
		})
		require.NoError(t, err)
		u, ok := view.Effective.PurchaseItems[0].Usages.Get(alice)
		require.True(t, ok)
		assert.True(t, u.Equal(dec(t, "2")))

		view, err = env.svc.RemoveItemUsage(ctx, RemoveItemUsageInput{
			UserID: userID, TransactionID: tx.ID, ItemID: itemID, AccountID: alice,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, view.Effective.PurchaseItems[0].Usages.Len())
	})

	t.Run("deleted item stays in place but is inert", func(t *testing.T) {
		env, tx := newEnvWith(t, domain.TransactionTypePurchase)

		view, err := env.svc.CreateItem(ctx, CreateItemInput{
			UserID: userID, TransactionID: tx.ID,
			Name: "wine", Price: dec(t, "12.00"), CommunistShares: dec(t, "1"),
		})
		require.NoError(t, err)
		itemID := view.Effective.PurchaseItems[0].ID

		view, err = env.svc.DeleteItem(ctx, DeleteItemInput{
			UserID: userID, TransactionID: tx.ID, ItemID: itemID,
		})
		require.NoError(t, err)
		require.Len(t, view.Effective.PurchaseItems, 1)
		assert.True(t, view.Effective.PurchaseItems[0].Deleted)

		// Deleted items reject further edits.
		_, err = env.svc.SetItemUsage(ctx, SetItemUsageInput{
			UserID: userID, TransactionID: tx.ID, ItemID: itemID,
			AccountID: alice, ShareAmount: dec(t, "1"),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// ===========================================================================
// Reads
// ===========================================================================

func TestGetTransaction(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	t.Run("committed transaction is visible to members", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, uuid.New())
		env.transactions.GetByIDFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		view, err := env.svc.GetTransaction(ctx, GetTransactionInput{UserID: userID, TransactionID: tx.ID})
		require.NoError(t, err)
		assert.Same(t, tx.Committed, view.Effective)
		assert.False(t, view.IsWIP)
	})

	t.Run("uncommitted transaction hidden from others", func(t *testing.T) {
		env := newTestEnv()
		tx := uncommittedTx(t, groupID, uuid.New())
		env.transactions.GetByIDFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}

		_, err := env.svc.GetTransaction(ctx, GetTransactionInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("non-member gets not found", func(t *testing.T) {
		env := newTestEnv()
		tx := committedTx(t, groupID, uuid.New())
		env.transactions.GetByIDFunc = func(context.Context, uuid.UUID) (*domain.Transaction, error) {
			return tx, nil
		}
		env.groups.IsMemberFunc = func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, nil }

		_, err := env.svc.GetTransaction(ctx, GetTransactionInput{UserID: userID, TransactionID: tx.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListTransactions(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	env := newTestEnv()
	visible := committedTx(t, groupID, uuid.New())
	mine := uncommittedTx(t, groupID, userID)
	foreign := uncommittedTx(t, groupID, uuid.New())
	env.transactions.ListByGroupFunc = func(context.Context, uuid.UUID, txrepo.ListFilter) ([]*domain.Transaction, error) {
		return []*domain.Transaction{visible, mine, foreign}, nil
	}

	views, err := env.svc.ListTransactions(ctx, ListTransactionsInput{UserID: userID, GroupID: groupID})
	require.NoError(t, err)

	require.Len(t, views, 2)
	assert.Equal(t, visible.ID, views[0].ID)
	assert.Equal(t, mine.ID, views[1].ID)
}

func TestGroupBalances(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	ctx := context.Background()

	env := newTestEnv()

	// Committed: alice paid 30, split 1:2 between alice and bob.
	tx := committedTx(t, groupID, userID)
	require.NoError(t, tx.Committed.CreditorShares.Set(alice, dec(t, "1")))
	require.NoError(t, tx.Committed.DebitorShares.Set(alice, dec(t, "1")))
	require.NoError(t, tx.Committed.DebitorShares.Set(bob, dec(t, "2")))

	env.transactions.ListByGroupFunc = func(_ context.Context, _ uuid.UUID, filter txrepo.ListFilter) ([]*domain.Transaction, error) {
		// Balances must consider soft-deleted transactions too, since the
		// caller's draft may differ from the committed deletion state.
		assert.True(t, filter.IncludeDeleted)
		return []*domain.Transaction{tx}, nil
	}

	result, err := env.svc.GroupBalances(ctx, GroupBalancesInput{UserID: userID, GroupID: groupID})
	require.NoError(t, err)

	assert.True(t, result.Total(alice).Equal(dec(t, "20")), "alice net = %s", result.Total(alice))
	assert.True(t, result.Total(bob).Equal(dec(t, "-20")), "bob net = %s", result.Total(bob))
}

func TestGroupLog(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	ctx := context.Background()

	env := newTestEnv()
	var gotLimit int
	env.groups.ListLogFunc = func(_ context.Context, _ uuid.UUID, limit int) ([]domain.GroupLogEntry, error) {
		gotLimit = limit
		return []domain.GroupLogEntry{{GroupID: groupID}}, nil
	}

	entries, err := env.svc.GroupLog(ctx, GroupLogInput{UserID: userID, GroupID: groupID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 100, gotLimit, "zero limit falls back to the configured page size")

	_, err = env.svc.GroupLog(ctx, GroupLogInput{UserID: userID, GroupID: groupID, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, gotLimit, "limit is capped at the configured page size")
}
