package auth

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ExtractOrgs handles both flat and nested org claims from JWT tokens
// Supports:
//   - Flat arrays: ["acme-ads", "north-media"]
//   - Nested objects: [{"name": "acme-ads", "kind": "advertiser"}] with claimPath="name"
func ExtractOrgs(claims map[string]interface{}, claimField string, claimPath string) ([]string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		// Orgs claim not present - return empty list (not an error, user may have no orgs)
		return []string{}, nil
	}

	// Try flat string array first: ["acme-ads", "north-media"]
	if orgs, ok := rawValue.([]interface{}); ok {
		result := make([]string, 0, len(orgs))
		for _, o := range orgs {
			if str, ok := o.(string); ok {
				result = append(result, str)
			}
		}
		if len(result) > 0 {
			return result, nil
		}
	}

	// Try nested extraction if path provided: [{"name": "acme-ads"}]
	if claimPath != "" {
		return extractNestedOrgs(rawValue, claimPath)
	}

	return nil, fmt.Errorf("orgs claim invalid format (expected []string or []object with path)")
}

// extractNestedOrgs uses mapstructure to extract from nested objects
// Supports simple single-level paths like "name", "value", "id"
func extractNestedOrgs(rawValue interface{}, path string) ([]string, error) {
	// For simple nested objects: [{"name": "acme-ads"}] with path="name"
	if path == "name" || path == "value" || path == "id" {
		var objects []map[string]interface{}
		if err := mapstructure.Decode(rawValue, &objects); err != nil {
			return nil, fmt.Errorf("failed to decode nested orgs: %w", err)
		}

		result := make([]string, 0, len(objects))
		for _, obj := range objects {
			if val, ok := obj[path].(string); ok {
				result = append(result, val)
			}
		}
		return result, nil
	}

	return nil, fmt.Errorf("complex nested paths not supported (path: %s)", path)
}

// ExtractClaimString extracts a string claim from JWT claims
// Generic helper for extracting string values from configurable claim fields
func ExtractClaimString(claims map[string]interface{}, claimField string) (string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		return "", fmt.Errorf("claim field %s not found", claimField)
	}

	value, ok := rawValue.(string)
	if !ok {
		return "", fmt.Errorf("claim field %s is not a string", claimField)
	}

	if value == "" {
		return "", fmt.Errorf("claim field %s is empty", claimField)
	}

	return value, nil
}

// ExtractEmailFromClaims extracts the email from JWT claims (optional)
func ExtractEmailFromClaims(claims map[string]interface{}) string {
	email, err := ExtractClaimString(claims, "email")
	if err != nil {
		return ""
	}
	return email
}

// ExtractNameFromClaims extracts the name from JWT claims (optional)
func ExtractNameFromClaims(claims map[string]interface{}) string {
	rawValue, ok := claims["name"]
	if !ok {
		return ""
	}

	name, ok := rawValue.(string)
	if !ok {
		return ""
	}

	return name
}
