// Package actor reads the caller identity asserted by the fronting auth
// layer. Authentication itself is an external collaborator; this service
// only propagates the identity into the audit trail.
package actor

import (
	"net/http"
	"strings"

	"certledger/pkg/requestcontext"
)

// Header carries the authenticated caller identity, set by the gateway in
// front of this service.
const Header = "X-Actor"

// Middleware stores the actor identity in the context when present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if who := strings.TrimSpace(r.Header.Get(Header)); who != "" {
			r = r.WithContext(requestcontext.WithActor(r.Context(), who))
		}
		next.ServeHTTP(w, r)
	})
}
