package auth

import (
	"fmt"
	"strings"
)

// Prefix constants for Casbin identifiers
// These ensure consistent naming across policy subjects and audit output
const (
	PrefixUser = "user:"
	PrefixOrg  = "org:"
	PrefixRole = "role:"
)

// UserID creates a Casbin user identifier with the standard prefix
// Example: UserID("alice@example.com") → "user:alice@example.com"
func UserID(id string) string {
	return PrefixUser + id
}

// OrgID creates a Casbin org identifier with the standard prefix
// Example: OrgID("acme-ads") → "org:acme-ads"
func OrgID(name string) string {
	return PrefixOrg + name
}

// RoleID creates a Casbin role identifier with the standard prefix
// Example: RoleID("advertiser") → "role:advertiser"
func RoleID(name string) string {
	return PrefixRole + name
}

// ExtractUserID extracts the user ID from a Casbin principal identifier
// Returns the ID without prefix, or error if prefix mismatch
func ExtractUserID(principal string) (string, error) {
	if !strings.HasPrefix(principal, PrefixUser) {
		return "", fmt.Errorf("invalid user principal: %s (expected prefix %s)", principal, PrefixUser)
	}
	return strings.TrimPrefix(principal, PrefixUser), nil
}

// ExtractOrgID extracts the org name from a Casbin principal identifier
// Returns the name without prefix, or error if prefix mismatch
func ExtractOrgID(principal string) (string, error) {
	if !strings.HasPrefix(principal, PrefixOrg) {
		return "", fmt.Errorf("invalid org principal: %s (expected prefix %s)", principal, PrefixOrg)
	}
	return strings.TrimPrefix(principal, PrefixOrg), nil
}

// ExtractRoleID extracts the role name from a Casbin principal identifier
// Returns the name without prefix, or error if prefix mismatch
func ExtractRoleID(principal string) (string, error) {
	if !strings.HasPrefix(principal, PrefixRole) {
		return "", fmt.Errorf("invalid role principal: %s (expected prefix %s)", principal, PrefixRole)
	}
	return strings.TrimPrefix(principal, PrefixRole), nil
}

// GetPrincipalType returns the type of a Casbin principal (user, org, role)
// Returns empty string if prefix not recognized
func GetPrincipalType(principal string) string {
	switch {
	case strings.HasPrefix(principal, PrefixUser):
		return "user"
	case strings.HasPrefix(principal, PrefixOrg):
		return "org"
	case strings.HasPrefix(principal, PrefixRole):
		return "role"
	default:
		return ""
	}
}
