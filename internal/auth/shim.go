package auth

import (
	"net/http"
	"strings"
)

// legacyTokenHeader is the header older dashboard builds used to carry the
// bearer token before they switched to a standard Authorization header.
const legacyTokenHeader = "X-Dashboard-Token"

// LegacyTokenShim rewrites the legacy X-Dashboard-Token header into a standard
// Bearer token header so downstream middleware can operate on a canonical
// representation. Requests that already present an Authorization header are
// left untouched.
func LegacyTokenShim(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldPromoteLegacyToken(r) {
			token := strings.TrimSpace(r.Header.Get(legacyTokenHeader))
			r.Header.Set("Authorization", "Bearer "+token)
		}

		next.ServeHTTP(w, r)
	})
}

func shouldPromoteLegacyToken(r *http.Request) bool {
	if r == nil {
		return false
	}

	if r.Header.Get("Authorization") != "" {
		return false
	}

	return strings.TrimSpace(r.Header.Get(legacyTokenHeader)) != ""
}
