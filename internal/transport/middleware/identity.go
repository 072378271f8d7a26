package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mic-e/abrechnung/pkg/ctxutil"
)

// Identity resolves the calling user from the X-User-Id header, set by the
// authenticating reverse proxy in front of this service. Requests without
// the header pass through anonymously; handlers that need a user reject
// those themselves. A malformed header is a client error.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-Id")
		if raw == "" {
			next.ServeHTTP(w, r) // Anonymous
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			http.Error(w, "invalid user id", http.StatusUnauthorized)
			return
		}
		ctx := ctxutil.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
