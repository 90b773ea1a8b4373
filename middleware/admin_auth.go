package middleware

import (
	"citizenone/models"
	"net/http"
)

// RequireRole lets a request through only when the principal set by
// RequireAuth has one of the given roles. Missing principal → 401, wrong role → 403.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondWithError(w, http.StatusForbidden, "Forbidden", "Your role may not use this endpoint")
		})
	}
}

// RequireAdminAuth admits admins only
func RequireAdminAuth(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)(next)
}

// RequireStaff admits officers, supervisors and admins
func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(models.RoleOfficer, models.RoleSupervisor, models.RoleAdmin)(next)
}
