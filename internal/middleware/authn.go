package middleware

import (
	"log"
	"net/http"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

// MultiAuthMiddleware is the unified authentication middleware.
//
// This middleware:
//  1. Extracts headers and cookies from the HTTP request
//  2. Calls iamService.AuthenticateRequest(), which tries all authenticators
//  3. Sets the principal in context if authentication succeeds
//  4. Continues to the next handler (missing authentication is handled by authz)
//
// Authentication flow:
//   - SessionAuthenticator checks the reach.session cookie
//   - JWTAuthenticator checks the Authorization: Bearer header
//   - TestModeAuthenticator supplies the synthetic identity (AUTH_TEST_MODE only)
//   - First successful authenticator wins
//   - If all return (nil, nil): unauthenticated request (allowed through)
//   - If any returns (nil, error): authentication failed (401)
func MultiAuthMiddleware(iamService iam.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := iamService.AuthenticateRequest(ctx, iam.AuthRequestFromHTTP(r))
			if err != nil {
				log.Printf("authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
				http.Error(w, "authentication failed", http.StatusUnauthorized)
				return
			}

			if principal != nil {
				ctx = auth.SetUserContext(ctx, *principal)
			}

			// Unauthenticated requests (principal == nil) pass through here;
			// the authorization middleware enforces per-route requirements.
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
