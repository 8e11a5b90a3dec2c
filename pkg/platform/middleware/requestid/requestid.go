// Package requestid assigns each request an identifier for log correlation.
// An incoming X-Request-ID is trusted if present; otherwise one is minted.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"docproof/pkg/requestcontext"
)

// Header is the request-id header read from and echoed to clients.
const Header = "X-Request-ID"

// Middleware stores the request id in the context and echoes it on the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
