package rest

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mic-e/abrechnung/internal/domain"
	"github.com/mic-e/abrechnung/internal/service/transaction"
)

type shareResponse struct {
	AccountID uuid.UUID       `json:"accountId"`
	Shares    decimal.Decimal `json:"shares"`
}

type purchaseItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	CommunistShares decimal.Decimal `json:"communistShares"`
	Deleted         bool            `json:"deleted"`
	Usages          []shareResponse `json:"usages"`
}

type detailsResponse struct {
	Description            string                 `json:"description"`
	Value                  decimal.Decimal        `json:"value"`
	CurrencySymbol         string                 `json:"currencySymbol"`
	CurrencyConversionRate decimal.Decimal        `json:"currencyConversionRate"`
	BilledAt               time.Time              `json:"billedAt"`
	Deleted                bool                   `json:"deleted"`
	CreditorShares         []shareResponse        `json:"creditorShares"`
	DebitorShares          []shareResponse        `json:"debitorShares"`
	PurchaseItems          []purchaseItemResponse `json:"purchaseItems"`
}

type draftResponse struct {
	EditorID uuid.UUID       `json:"editorId"`
	Details  detailsResponse `json:"details"`
}

type transactionResponse struct {
	ID          uuid.UUID        `json:"id"`
	GroupID     uuid.UUID        `json:"groupId"`
	Type        string           `json:"type"`
	Version     int64            `json:"version"`
	CreatedBy   uuid.UUID        `json:"createdBy"`
	Committed   *detailsResponse `json:"committed,omitempty"`
	Drafts      []draftResponse  `json:"drafts"`
	Effective   *detailsResponse `json:"effective,omitempty"`
	IsWIP       bool             `json:"isWip"`
	HasOwnDraft bool             `json:"hasOwnDraft"`
}

type balancesResponse struct {
	Balances []accountBalanceResponse `json:"balances"`
}

type accountBalanceResponse struct {
	AccountID uuid.UUID       `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

type logEntryResponse struct {
	ID       uuid.UUID  `json:"id"`
	GroupID  uuid.UUID  `json:"groupId"`
	UserID   uuid.UUID  `json:"userId"`
	Type     string     `json:"type"`
	Message  string     `json:"message"`
	Affected *uuid.UUID `json:"affectedId,omitempty"`
	LoggedAt time.Time  `json:"loggedAt"`
}

func toTransactionResponse(v transaction.View) transactionResponse {
	resp := transactionResponse{
		ID:          v.ID,
		GroupID:     v.GroupID,
		Type:        string(v.Type),
		Version:     v.Version,
		CreatedBy:   v.CreatedBy,
		Drafts:      make([]draftResponse, 0, len(v.Drafts)),
		IsWIP:       v.IsWIP,
		HasOwnDraft: v.HasOwnDraft,
	}
	if v.Committed != nil {
		c := toDetailsResponse(v.Committed)
		resp.Committed = &c
	}
	if v.Effective != nil {
		e := toDetailsResponse(v.Effective)
		resp.Effective = &e
	}
	for editorID, d := range v.Drafts {
		resp.Drafts = append(resp.Drafts, draftResponse{
			EditorID: editorID,
			Details:  toDetailsResponse(d),
		})
	}
	// Map iteration order is random; keep the wire format stable.
	sort.Slice(resp.Drafts, func(i, j int) bool {
		return resp.Drafts[i].EditorID.String() < resp.Drafts[j].EditorID.String()
	})
	return resp
}

func toDetailsResponse(d *domain.TransactionDetails) detailsResponse {
	resp := detailsResponse{
		Description:            d.Description,
		Value:                  d.Value,
		CurrencySymbol:         d.CurrencySymbol,
		CurrencyConversionRate: d.CurrencyConversionRate,
		BilledAt:               d.BilledAt,
		Deleted:                d.Deleted,
		CreditorShares:         toShareResponses(d.CreditorShares),
		DebitorShares:          toShareResponses(d.DebitorShares),
		PurchaseItems:          make([]purchaseItemResponse, 0, len(d.PurchaseItems)),
	}
	for _, item := range d.PurchaseItems {
		resp.PurchaseItems = append(resp.PurchaseItems, purchaseItemResponse{
			ID:              item.ID,
			Name:            item.Name,
			Price:           item.Price,
			CommunistShares: item.CommunistShares,
			Deleted:         item.Deleted,
			Usages:          toShareResponses(item.Usages),
		})
	}
	return resp
}

func toShareResponses(m *domain.ShareMap) []shareResponse {
	shares := make([]shareResponse, 0, m.Len())
	for _, accountID := range m.Accounts() {
		weight, _ := m.Get(accountID)
		shares = append(shares, shareResponse{AccountID: accountID, Shares: weight})
	}
	return shares
}

func toBalancesResponse(result transaction.BalancesResult) balancesResponse {
	resp := balancesResponse{
		Balances: make([]accountBalanceResponse, 0, len(result.Balances)),
	}
	for accountID, balance := range result.Balances {
		resp.Balances = append(resp.Balances, accountBalanceResponse{
			AccountID: accountID,
			Balance:   balance,
		})
	}
	sort.Slice(resp.Balances, func(i, j int) bool {
		return resp.Balances[i].AccountID.String() < resp.Balances[j].AccountID.String()
	})
	return resp
}

func toLogEntryResponse(e domain.GroupLogEntry) logEntryResponse {
	return logEntryResponse{
		ID:       e.ID,
		GroupID:  e.GroupID,
		UserID:   e.UserID,
		Type:     string(e.Kind),
		Message:  e.Message,
		Affected: e.Affected,
		LoggedAt: e.LoggedAt,
	}
}
