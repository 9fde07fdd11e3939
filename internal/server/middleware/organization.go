package middleware

import "net/http"

// RequireOrganization rejects users that belong to no organization. System
// owners pass regardless.
func RequireOrganization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if _, hasOrg := OrganizationIDFromContext(r.Context()); !hasOrg && !u.IsSystemOwner {
				writeProblem(w, http.StatusForbidden, "organization membership required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
