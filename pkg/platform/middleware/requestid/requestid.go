// Package requestid assigns every request a correlation ID, honoring one
// supplied by an upstream proxy.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"certledger/pkg/requestcontext"
)

// Header is the inbound and outbound correlation header.
const Header = "X-Request-ID"

// Middleware stores the request ID in the context and echoes it in the
// response so clients can quote it when reporting problems.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
