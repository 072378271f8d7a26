package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mic-e/abrechnung/internal/domain"
	"github.com/mic-e/abrechnung/internal/service/transaction"
)

// transactionService defines the minimal interface needed by
// TransactionHandler.
type transactionService interface {
	CreateTransaction(ctx context.Context, input transaction.CreateTransactionInput) (transaction.View, error)
	CreateChange(ctx context.Context, input transaction.CreateChangeInput) (transaction.View, error)
	DiscardChanges(ctx context.Context, input transaction.DiscardChangesInput) (transaction.View, error)
	UpdateTransaction(ctx context.Context, input transaction.UpdateTransactionInput) (transaction.View, error)
	Commit(ctx context.Context, input transaction.CommitInput) (transaction.View, error)
	DeleteTransaction(ctx context.Context, input transaction.DeleteTransactionInput) error
	GetTransaction(ctx context.Context, input transaction.GetTransactionInput) (transaction.View, error)
	ListTransactions(ctx context.Context, input transaction.ListTransactionsInput) ([]transaction.View, error)

	AddOrChangeCreditorShare(ctx context.Context, input transaction.ShareInput) (transaction.View, error)
	AddOrChangeDebitorShare(ctx context.Context, input transaction.ShareInput) (transaction.View, error)
	SwitchCreditorShare(ctx context.Context, input transaction.SwitchShareInput) (transaction.View, error)
	SwitchDebitorShare(ctx context.Context, input transaction.SwitchShareInput) (transaction.View, error)
	DeleteCreditorShare(ctx context.Context, input transaction.DeleteShareInput) (transaction.View, error)
	DeleteDebitorShare(ctx context.Context, input transaction.DeleteShareInput) (transaction.View, error)

	CreateItem(ctx context.Context, input transaction.CreateItemInput) (transaction.View, error)
	UpdateItem(ctx context.Context, input transaction.UpdateItemInput) (transaction.View, error)
	DeleteItem(ctx context.Context, input transaction.DeleteItemInput) (transaction.View, error)
	SetItemUsage(ctx context.Context, input transaction.SetItemUsageInput) (transaction.View, error)
	RemoveItemUsage(ctx context.Context, input transaction.RemoveItemUsageInput) (transaction.View, error)

	GroupBalances(ctx context.Context, input transaction.GroupBalancesInput) (transaction.BalancesResult, error)
	GroupLog(ctx context.Context, input transaction.GroupLogInput) ([]domain.GroupLogEntry, error)
}

// TransactionHandler serves the transaction REST endpoints.
type TransactionHandler struct {
	svc transactionService
	log *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(svc transactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, log: logger.With("handler", "transaction")}
}

type detailsRequest struct {
	Description            string          `json:"description"`
	Value                  decimal.Decimal `json:"value"`
	CurrencySymbol         string          `json:"currencySymbol"`
	CurrencyConversionRate decimal.Decimal `json:"currencyConversionRate"`
	BilledAt               time.Time       `json:"billedAt"`
}

type createTransactionRequest struct {
	Type string `json:"type"`
	detailsRequest
}

type shareRequest struct {
	AccountID uuid.UUID       `json:"accountId"`
	Shares    decimal.Decimal `json:"shares"`
}

type switchShareRequest struct {
	FromAccountID uuid.UUID `json:"fromAccountId"`
	ToAccountID   uuid.UUID `json:"toAccountId"`
}

type itemRequest struct {
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	CommunistShares decimal.Decimal `json:"communistShares"`
}

type itemUsageRequest struct {
	AccountID   uuid.UUID       `json:"accountId"`
	ShareAmount decimal.Decimal `json:"shareAmount"`
}

// Create handles POST /groups/{groupID}/transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.CreateTransaction(r.Context(), transaction.CreateTransactionInput{
		UserID:                 userID,
		GroupID:                groupID,
		Type:                   req.Type,
		Description:            req.Description,
		Value:                  req.Value,
		CurrencySymbol:         req.CurrencySymbol,
		CurrencyConversionRate: req.CurrencyConversionRate,
		BilledAt:               req.BilledAt,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(view))
}

// List handles GET /groups/{groupID}/transactions.
// Query parameters: billedAtFrom, billedAtUntil (RFC 3339), includeDeleted.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	input := transaction.ListTransactionsInput{UserID: userID, GroupID: groupID}

	q := r.URL.Query()
	if input.BilledAtFrom, err = parseTimeParam(q.Get("billedAtFrom")); err != nil {
		h.handleError(w, r, domain.NewValidationError("billedAtFrom", "must be RFC 3339"))
		return
	}
	if input.BilledAtUntil, err = parseTimeParam(q.Get("billedAtUntil")); err != nil {
		h.handleError(w, r, domain.NewValidationError("billedAtUntil", "must be RFC 3339"))
		return
	}
	input.IncludeDeleted = q.Get("includeDeleted") == "true"

	views, err := h.svc.ListTransactions(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]transactionResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toTransactionResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /transactions/{transactionID}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.GetTransaction(ctx, transaction.GetTransactionInput{UserID: userID, TransactionID: txID})
	})
}

// Update handles PUT /transactions/{transactionID}. It edits the scalar
// fields of the caller's draft, opening one when none exists yet.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.UpdateTransaction(ctx, transaction.UpdateTransactionInput{
			UserID:                 userID,
			TransactionID:          txID,
			Description:            req.Description,
			Value:                  req.Value,
			CurrencySymbol:         req.CurrencySymbol,
			CurrencyConversionRate: req.CurrencyConversionRate,
			BilledAt:               req.BilledAt,
		})
	})
}

// CreateChange handles POST /transactions/{transactionID}/changes.
func (h *TransactionHandler) CreateChange(w http.ResponseWriter, r *http.Request) {
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.CreateChange(ctx, transaction.CreateChangeInput{UserID: userID, TransactionID: txID})
	})
}

// DiscardChanges handles DELETE /transactions/{transactionID}/changes.
func (h *TransactionHandler) DiscardChanges(w http.ResponseWriter, r *http.Request) {
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.DiscardChanges(ctx, transaction.DiscardChangesInput{UserID: userID, TransactionID: txID})
	})
}

// Commit handles POST /transactions/{transactionID}/commit.
func (h *TransactionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.Commit(ctx, transaction.CommitInput{UserID: userID, TransactionID: txID})
	})
}

// Delete handles DELETE /transactions/{transactionID}.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	txID, err := pathUUID(r, "transactionID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), transaction.DeleteTransactionInput{
		UserID:        userID,
		TransactionID: txID,
	}); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCreditorShare handles POST /transactions/{transactionID}/creditor-shares.
func (h *TransactionHandler) SetCreditorShare(w http.ResponseWriter, r *http.Request) {
	h.setShare(w, r, h.svc.AddOrChangeCreditorShare)
}

// SetDebitorShare handles POST /transactions/{transactionID}/debitor-shares.
func (h *TransactionHandler) SetDebitorShare(w http.ResponseWriter, r *http.Request) {
	h.setShare(w, r, h.svc.AddOrChangeDebitorShare)
}

// SwitchCreditorShare handles POST /transactions/{transactionID}/creditor-shares/switch.
func (h *TransactionHandler) SwitchCreditorShare(w http.ResponseWriter, r *http.Request) {
	h.switchShare(w, r, h.svc.SwitchCreditorShare)
}

// SwitchDebitorShare handles POST /transactions/{transactionID}/debitor-shares/switch.
func (h *TransactionHandler) SwitchDebitorShare(w http.ResponseWriter, r *http.Request) {
	h.switchShare(w, r, h.svc.SwitchDebitorShare)
}

// DeleteCreditorShare handles DELETE /transactions/{transactionID}/creditor-shares/{accountID}.
func (h *TransactionHandler) DeleteCreditorShare(w http.ResponseWriter, r *http.Request) {
	h.deleteShare(w, r, h.svc.DeleteCreditorShare)
}

// DeleteDebitorShare handles DELETE /transactions/{transactionID}/debitor-shares/{accountID}.
func (h *TransactionHandler) DeleteDebitorShare(w http.ResponseWriter, r *http.Request) {
	h.deleteShare(w, r, h.svc.DeleteDebitorShare)
}

// CreateItem handles POST /transactions/{transactionID}/items.
func (h *TransactionHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return h.svc.CreateItem(ctx, transaction.CreateItemInput{
			UserID:          userID,
			TransactionID:   txID,
			Name:            req.Name,
			Price:           req.Price,
			CommunistShares: req.CommunistShares,
		})
	})
}

// UpdateItem handles PUT /transactions/{transactionID}/items/{itemID}.
func (h *TransactionHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.itemOp(w, r, func(ctx context.Context, userID, txID, itemID uuid.UUID) (transaction.View, error) {
		return h.svc.UpdateItem(ctx, transaction.UpdateItemInput{
			UserID:          userID,
			TransactionID:   txID,
			ItemID:          itemID,
			Name:            req.Name,
			Price:           req.Price,
			CommunistShares: req.CommunistShares,
		})
	})
}

// DeleteItem handles DELETE /transactions/{transactionID}/items/{itemID}.
func (h *TransactionHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	h.itemOp(w, r, func(ctx context.Context, userID, txID, itemID uuid.UUID) (transaction.View, error) {
		return h.svc.DeleteItem(ctx, transaction.DeleteItemInput{
			UserID:        userID,
			TransactionID: txID,
			ItemID:        itemID,
		})
	})
}

// SetItemUsage handles PUT /transactions/{transactionID}/items/{itemID}/usages.
func (h *TransactionHandler) SetItemUsage(w http.ResponseWriter, r *http.Request) {
	var req itemUsageRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.itemOp(w, r, func(ctx context.Context, userID, txID, itemID uuid.UUID) (transaction.View, error) {
		return h.svc.SetItemUsage(ctx, transaction.SetItemUsageInput{
			UserID:        userID,
			TransactionID: txID,
			ItemID:        itemID,
			AccountID:     req.AccountID,
			ShareAmount:   req.ShareAmount,
		})
	})
}

// RemoveItemUsage handles DELETE /transactions/{transactionID}/items/{itemID}/usages/{accountID}.
func (h *TransactionHandler) RemoveItemUsage(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "accountID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.itemOp(w, r, func(ctx context.Context, userID, txID, itemID uuid.UUID) (transaction.View, error) {
		return h.svc.RemoveItemUsage(ctx, transaction.RemoveItemUsageInput{
			UserID:        userID,
			TransactionID: txID,
			ItemID:        itemID,
			AccountID:     accountID,
		})
	})
}

// Balances handles GET /groups/{groupID}/balances.
func (h *TransactionHandler) Balances(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := h.svc.GroupBalances(r.Context(), transaction.GroupBalancesInput{
		UserID:  userID,
		GroupID: groupID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalancesResponse(result))
}

// Log handles GET /groups/{groupID}/log. Query parameter: limit.
func (h *TransactionHandler) Log(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			h.handleError(w, r, domain.NewValidationError("limit", "must be an integer"))
			return
		}
	}

	entries, err := h.svc.GroupLog(r.Context(), transaction.GroupLogInput{
		UserID:  userID,
		GroupID: groupID,
		Limit:   limit,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toLogEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// viewOp runs a transaction-scoped operation that returns a full view.
func (h *TransactionHandler) viewOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	txID, err := pathUUID(r, "transactionID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	view, err := op(r.Context(), userID, txID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(view))
}

// itemOp is viewOp plus the itemID path segment.
func (h *TransactionHandler) itemOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, txID, itemID uuid.UUID) (transaction.View, error)) {
	itemID, err := pathUUID(r, "itemID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return op(ctx, userID, txID, itemID)
	})
}

func (h *TransactionHandler) setShare(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, input transaction.ShareInput) (transaction.View, error)) {
	var req shareRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return op(ctx, transaction.ShareInput{
			UserID:        userID,
			TransactionID: txID,
			AccountID:     req.AccountID,
			Shares:        req.Shares,
		})
	})
}

func (h *TransactionHandler) switchShare(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, input transaction.SwitchShareInput) (transaction.View, error)) {
	var req switchShareRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return op(ctx, transaction.SwitchShareInput{
			UserID:        userID,
			TransactionID: txID,
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
		})
	})
}

func (h *TransactionHandler) deleteShare(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, input transaction.DeleteShareInput) (transaction.View, error)) {
	accountID, err := pathUUID(r, "accountID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.viewOp(w, r, func(ctx context.Context, userID, txID uuid.UUID) (transaction.View, error) {
		return op(ctx, transaction.DeleteShareInput{
			UserID:        userID,
			TransactionID: txID,
			AccountID:     accountID,
		})
	})
}

func (h *TransactionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *TransactionHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	writeDomainError(h.log, w, r, err)
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
