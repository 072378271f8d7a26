package rest

import (
	"log/slog"
	"net/http"

	"github.com/mic-e/abrechnung/internal/config"
	"github.com/mic-e/abrechnung/internal/transport/middleware"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Transactions *TransactionHandler
	Health       *HealthHandler

	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter        *middleware.RateLimiter
	RateLimitPerMinute int
}

// NewRouter builds the full HTTP handler: routes plus the middleware chain
// (request id, panic recovery, request logging, CORS, caller identity).
func NewRouter(logger *slog.Logger, corsCfg config.CORSConfig, deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.Health.Health)
	mux.HandleFunc("GET /health/live", deps.Health.Live)
	mux.HandleFunc("GET /health/ready", deps.Health.Ready)

	tx := deps.Transactions
	mux.HandleFunc("POST /api/groups/{groupID}/transactions", tx.Create)
	mux.HandleFunc("GET /api/groups/{groupID}/transactions", tx.List)
	mux.HandleFunc("GET /api/groups/{groupID}/balances", tx.Balances)
	mux.HandleFunc("GET /api/groups/{groupID}/log", tx.Log)

	mux.HandleFunc("GET /api/transactions/{transactionID}", tx.Get)
	mux.HandleFunc("PUT /api/transactions/{transactionID}", tx.Update)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}", tx.Delete)
	mux.HandleFunc("POST /api/transactions/{transactionID}/changes", tx.CreateChange)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}/changes", tx.DiscardChanges)
	mux.HandleFunc("POST /api/transactions/{transactionID}/commit", tx.Commit)

	mux.HandleFunc("POST /api/transactions/{transactionID}/creditor-shares", tx.SetCreditorShare)
	mux.HandleFunc("POST /api/transactions/{transactionID}/creditor-shares/switch", tx.SwitchCreditorShare)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}/creditor-shares/{accountID}", tx.DeleteCreditorShare)
	mux.HandleFunc("POST /api/transactions/{transactionID}/debitor-shares", tx.SetDebitorShare)
	mux.HandleFunc("POST /api/transactions/{transactionID}/debitor-shares/switch", tx.SwitchDebitorShare)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}/debitor-shares/{accountID}", tx.DeleteDebitorShare)

	mux.HandleFunc("POST /api/transactions/{transactionID}/items", tx.CreateItem)
	mux.HandleFunc("PUT /api/transactions/{transactionID}/items/{itemID}", tx.UpdateItem)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}/items/{itemID}", tx.DeleteItem)
	mux.HandleFunc("PUT /api/transactions/{transactionID}/items/{itemID}/usages", tx.SetItemUsage)
	mux.HandleFunc("DELETE /api/transactions/{transactionID}/items/{itemID}/usages/{accountID}", tx.RemoveItemUsage)

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(corsCfg),
		middleware.Identity,
	}
	if deps.RateLimiter != nil && deps.RateLimitPerMinute > 0 {
		mws = append(mws, deps.RateLimiter.Limit(deps.RateLimitPerMinute))
	}

	return middleware.Chain(mws...)(mux)
}
