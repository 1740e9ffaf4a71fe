package middleware

import (
	"context"
	"net/http"

	"bustrack/internal/domain"
)

// The session layer in front of this service authenticates users and
// forwards the caller's identity in headers. This middleware only lifts
// those headers into a Principal; it performs no authentication itself.
const (
	HeaderStaffID = "X-Staff-Id"
	HeaderRole    = "X-Role"
)

type principalKey struct{}

// WithPrincipal extracts the calling principal from request headers and
// stores it on the context. Requests without identity headers pass
// through with no principal; handlers that require one reject them.
func WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderStaffID)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		role := domain.RoleStaff
		if r.Header.Get(HeaderRole) == string(domain.RoleAdmin) {
			role = domain.RoleAdmin
		}

		ctx := context.WithValue(r.Context(), principalKey{}, domain.Principal{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the request's principal, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
