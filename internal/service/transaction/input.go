package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mic-e/abrechnung/internal/domain"
)

// CreateTransactionInput holds the parameters for creating a transaction.
// The new transaction starts uncommitted, with the creator's draft holding
// the given fields.
type CreateTransactionInput struct {
	UserID                 uuid.UUID
	GroupID                uuid.UUID
	Type                   string
	Description            string
	Value                  decimal.Decimal
	CurrencySymbol         string
	CurrencyConversionRate decimal.Decimal
	BilledAt               time.Time
}

// Validate checks all fields and collects all errors.
func (i *CreateTransactionInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if _, err := domain.ParseTransactionType(i.Type); err != nil {
		errs = append(errs, domain.FieldError{Field: "type", Message: "must be one of: purchase, transfer"})
	}
	errs = append(errs, validateDetailsFields(i.CurrencySymbol, i.CurrencyConversionRate, i.BilledAt)...)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CreateChangeInput holds the parameters for explicitly opening a draft.
type CreateChangeInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *CreateChangeInput) Validate() error {
	return validateIDs(i.UserID, i.TransactionID)
}

// DiscardChangesInput holds the parameters for discarding the caller's draft.
type DiscardChangesInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *DiscardChangesInput) Validate() error {
	return validateIDs(i.UserID, i.TransactionID)
}

// UpdateTransactionInput holds the parameters for editing the scalar fields
// of the caller's draft.
type UpdateTransactionInput struct {
	UserID                 uuid.UUID
	TransactionID          uuid.UUID
	Description            string
	Value                  decimal.Decimal
	CurrencySymbol         string
	CurrencyConversionRate decimal.Decimal
	BilledAt               time.Time
}

// Validate checks all fields and collects all errors.
func (i *UpdateTransactionInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	errs = append(errs, validateDetailsFields(i.CurrencySymbol, i.CurrencyConversionRate, i.BilledAt)...)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ShareInput holds the parameters for setting one account's weight in a
// creditor or debitor share map.
type ShareInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Shares        decimal.Decimal
}

// Validate checks all fields and collects all errors.
func (i *ShareInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.AccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "account_id", Message: "required"})
	}
	if !i.Shares.IsPositive() {
		errs = append(errs, domain.FieldError{Field: "shares", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// SwitchShareInput holds the parameters for atomically moving a weight from
// one account to another within a share map.
type SwitchShareInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *SwitchShareInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.FromAccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "from_account_id", Message: "required"})
	}
	if i.ToAccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "to_account_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// DeleteShareInput holds the parameters for removing an account from a
// share map.
type DeleteShareInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *DeleteShareInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.AccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "account_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CreateItemInput holds the parameters for adding a purchase item to the
// caller's draft.
type CreateItemInput struct {
	UserID          uuid.UUID
	TransactionID   uuid.UUID
	Name            string
	Price           decimal.Decimal
	CommunistShares decimal.Decimal
}

// Validate checks all fields and collects all errors.
func (i *CreateItemInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	errs = append(errs, validateItemFields(i.Name, i.Price, i.CommunistShares)...)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateItemInput holds the parameters for editing a purchase item.
type UpdateItemInput struct {
	UserID          uuid.UUID
	TransactionID   uuid.UUID
	ItemID          uuid.UUID
	Name            string
	Price           decimal.Decimal
	CommunistShares decimal.Decimal
}

// Validate checks all fields and collects all errors.
func (i *UpdateItemInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.ItemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}
	errs = append(errs, validateItemFields(i.Name, i.Price, i.CommunistShares)...)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// DeleteItemInput holds the parameters for flagging a purchase item deleted.
type DeleteItemInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	ItemID        uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *DeleteItemInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.ItemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// SetItemUsageInput holds the parameters for recording how much of an item
// an account used.
type SetItemUsageInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	ItemID        uuid.UUID
	AccountID     uuid.UUID
	ShareAmount   decimal.Decimal
}

// Validate checks all fields and collects all errors.
func (i *SetItemUsageInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.ItemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}
	if i.AccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "account_id", Message: "required"})
	}
	if !i.ShareAmount.IsPositive() {
		errs = append(errs, domain.FieldError{Field: "share_amount", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// RemoveItemUsageInput holds the parameters for removing an account's usage
// of an item.
type RemoveItemUsageInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	ItemID        uuid.UUID
	AccountID     uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *RemoveItemUsageInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.TransactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}
	if i.ItemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}
	if i.AccountID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "account_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CommitInput holds the parameters for committing the caller's draft.
type CommitInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *CommitInput) Validate() error {
	return validateIDs(i.UserID, i.TransactionID)
}

// DeleteTransactionInput holds the parameters for deleting a transaction.
type DeleteTransactionInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *DeleteTransactionInput) Validate() error {
	return validateIDs(i.UserID, i.TransactionID)
}

// GetTransactionInput holds the parameters for fetching one transaction.
type GetTransactionInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *GetTransactionInput) Validate() error {
	return validateIDs(i.UserID, i.TransactionID)
}

// ListTransactionsInput holds the parameters for listing a group's
// transactions.
type ListTransactionsInput struct {
	UserID         uuid.UUID
	GroupID        uuid.UUID
	BilledAtFrom   *time.Time
	BilledAtUntil  *time.Time
	IncludeDeleted bool
}

// Validate checks all fields and collects all errors.
func (i *ListTransactionsInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if i.BilledAtFrom != nil && i.BilledAtUntil != nil && i.BilledAtFrom.After(*i.BilledAtUntil) {
		errs = append(errs, domain.FieldError{Field: "billed_at_from", Message: "must not be after billed_at_until"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// GroupBalancesInput holds the parameters for computing a group's balances.
type GroupBalancesInput struct {
	UserID  uuid.UUID
	GroupID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *GroupBalancesInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// GroupLogInput holds the parameters for reading a group's activity log.
type GroupLogInput struct {
	UserID  uuid.UUID
	GroupID uuid.UUID
	Limit   int
}

// Validate checks all fields and collects all errors.
func (i *GroupLogInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if i.Limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared field checks
// ---------------------------------------------------------------------------

func validateIDs(userID, transactionID uuid.UUID) error {
	var errs []domain.FieldError

	if userID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if transactionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "transaction_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// validateDetailsFields checks the structural detail fields. The description
// length limit comes from runtime configuration and is enforced by the
// service; value is signed, a negative value records a refund.
func validateDetailsFields(currencySymbol string, conversionRate decimal.Decimal, billedAt time.Time) []domain.FieldError {
	var errs []domain.FieldError

	if currencySymbol == "" {
		errs = append(errs, domain.FieldError{Field: "currency_symbol", Message: "required"})
	}
	if !conversionRate.IsPositive() {
		errs = append(errs, domain.FieldError{Field: "currency_conversion_rate", Message: "must be positive"})
	}
	if billedAt.IsZero() {
		errs = append(errs, domain.FieldError{Field: "billed_at", Message: "required"})
	}

	return errs
}

func validateItemFields(name string, price, communistShares decimal.Decimal) []domain.FieldError {
	var errs []domain.FieldError

	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	}
	if price.IsNegative() {
		errs = append(errs, domain.FieldError{Field: "price", Message: "must not be negative"})
	}
	if communistShares.IsNegative() {
		errs = append(errs, domain.FieldError{Field: "communist_shares", Message: "must not be negative"})
	}

	return errs
}
