package middleware

import (
	"errors"
	"net/http"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

// ActingRoleHeader lets a single request override the session's acting role.
const ActingRoleHeader = "X-Acting-Role"

// ActingRoleMiddleware resolves the single role this request operates under
// and stores it in context for the authorization middleware and handlers.
//
// Precedence (implemented by the IAM service):
//  1. X-Acting-Role header (per-request override)
//  2. the session's persisted active role
//  3. the user's stored preference
//  4. the highest-ranked granted role
//
// Failure modes are strict only for the header: an unknown role name is 400,
// a role the caller does not hold is 403. Unauthenticated requests pass
// through untouched.
func ActingRoleMiddleware(iamService iam.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, ok := auth.GetUserFromContext(ctx)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			acting, err := iamService.ResolveActingRole(ctx, &principal, r.Header.Get(ActingRoleHeader))
			if err != nil {
				switch {
				case errors.Is(err, iam.ErrInvalidRole):
					http.Error(w, "invalid acting role", http.StatusBadRequest)
				case errors.Is(err, iam.ErrRoleNotGranted):
					http.Error(w, "acting role not granted", http.StatusForbidden)
				default:
					http.Error(w, "acting role resolution failed", http.StatusInternalServerError)
				}
				return
			}

			ctx = auth.SetActingRole(ctx, acting)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
