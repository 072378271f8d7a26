// Package currency provides a static registry of currency symbols accepted
// on transactions. Conversion rates are stored with the transaction, never
// derived, so the registry only answers "is this a known symbol".
package currency

// Registry knows the accepted currency symbols.
type Registry struct {
	symbols map[string]struct{}
}

// common ISO 4217 codes plus the symbols the web clients send.
var defaultSymbols = []string{
	"EUR", "USD", "GBP", "CHF", "JPY", "CNY", "CAD", "AUD", "NZD",
	"SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "RON", "BGN", "HRK",
	"RUB", "TRY", "INR", "BRL", "MXN", "ZAR", "KRW", "SGD", "HKD",
	"€", "$", "£",
}

// NewRegistry creates a registry with the default symbol set.
func NewRegistry() *Registry {
	return NewRegistryWith(defaultSymbols)
}

// NewRegistryWith creates a registry accepting exactly the given symbols.
func NewRegistryWith(symbols []string) *Registry {
	r := &Registry{symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		r.symbols[s] = struct{}{}
	}
	return r
}

// IsValidSymbol reports whether the symbol is accepted.
func (r *Registry) IsValidSymbol(symbol string) bool {
	_, ok := r.symbols[symbol]
	return ok
}
