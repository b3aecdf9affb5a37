package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// SessionDuration is the default session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated session tokens in bytes
	TokenLength = 32

	// SessionCookieName is the cookie carrying the session token
	SessionCookieName = "reach.session"
)

// SessionInfo represents session metadata for creation
type SessionInfo struct {
	UserID     string // Backing user record
	ActiveRole Role   // Acting role at session creation (usually the resolved default)
	UserAgent  string // Browser user agent
	IPAddress  string // Client IP address
}

// GenerateSessionToken generates a cryptographically secure random session token
// Returns: token (hex string), token hash (SHA256 hex), error
func GenerateSessionToken() (string, string, error) {
	// Generate random bytes
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	// Convert to hex string
	token := hex.EncodeToString(tokenBytes)

	// Hash for storage
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	return token, tokenHash, nil
}

// HashSessionToken hashes a session token for storage/lookup
// Returns SHA256 hex hash
func HashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateSessionInfo validates session info before creation
func ValidateSessionInfo(info *SessionInfo) error {
	if info.UserID == "" {
		return fmt.Errorf("session must reference a user_id")
	}

	if info.ActiveRole != "" && !ValidRole(string(info.ActiveRole)) {
		return fmt.Errorf("invalid active role: %q", info.ActiveRole)
	}

	return nil
}

// CalculateExpiry calculates session expiry time from creation
// Returns creation time + ttl, falling back to SessionDuration when ttl is zero
func CalculateExpiry(createdAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return createdAt.Add(ttl)
}

// IsSessionExpired checks if a session has expired
func IsSessionExpired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}

// ValidateSessionToken performs comprehensive session validation
// Checks expiration, revocation, and user status
func ValidateSessionToken(expiresAt time.Time, revoked bool, userDisabled bool) error {
	// Check expiration
	if IsSessionExpired(expiresAt) {
		return fmt.Errorf("session expired")
	}

	// Check revocation
	if revoked {
		return fmt.Errorf("session revoked")
	}

	// Check user disabled
	if userDisabled {
		return fmt.Errorf("identity disabled")
	}

	return nil
}
