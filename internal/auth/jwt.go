package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer issues and verifies API bearer tokens (HS256 JWTs).
//
// Tokens carry sub (user ID), jti (revocation handle), email, and name.
// External callers may mint tokens with the shared secret as long as they
// populate the same claims; the jti denylist applies to those too.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewTokenIssuer creates a token issuer. The secret must be non-empty.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		tokenTTL: ttl,
	}, nil
}

// IssuedToken is the result of minting a bearer token.
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Issue mints a bearer token for the given user.
func (ti *TokenIssuer) Issue(userID, email, name string) (*IssuedToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is empty")
	}

	now := time.Now()
	expiresAt := now.Add(ti.tokenTTL)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": ti.issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": jti,
	}
	if email != "" {
		claims["email"] = email
	}
	if name != "" {
		claims["name"] = name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates a bearer token, returning its claims.
// Signature, algorithm, issuer, and time-based claims are all enforced.
func (ti *TokenIssuer) Verify(tokenString string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Belt and braces on top of the parser options: required claims plus
	// iat/nbf sanity with clock-skew tolerance.
	if err := ValidateClaims(claims, []string{"sub", "jti"}); err != nil {
		return nil, err
	}

	return claims, nil
}
