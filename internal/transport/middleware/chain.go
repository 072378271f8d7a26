package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middleware into a single Middleware. Middleware
// run in the order given: Chain(mw1, mw2)(handler) yields mw1(mw2(handler)),
// so the first argument sees the request first. The router relies on this to
// keep RequestID outermost and identity resolution innermost.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
