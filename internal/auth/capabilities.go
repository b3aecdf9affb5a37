package auth

import (
	"fmt"
	"strings"
)

// Capability constants for authorization checks
// These constants define all possible actions in the marketplace API for use
// with Casbin policies. A role is nothing more than a named bundle of these.

// Dashboard Capabilities
const (
	// DashboardView allows loading the role-specific dashboard data
	DashboardView = "dashboard:view"
)

// Campaign Capabilities (advertiser surface)
const (
	// CampaignCreate allows creating new ad campaigns
	CampaignCreate = "campaign:create"

	// CampaignRead allows reading campaign details
	CampaignRead = "campaign:read"

	// CampaignList allows listing campaigns
	CampaignList = "campaign:list"

	// CampaignUpdate allows updating campaign budget, targeting, and status
	CampaignUpdate = "campaign:update"

	// CampaignArchive allows archiving (soft-deleting) campaigns
	CampaignArchive = "campaign:archive"
)

// Ad Space Capabilities (publisher surface)
const (
	// AdSpaceCreate allows creating new ad spaces
	AdSpaceCreate = "adspace:create"

	// AdSpaceRead allows reading ad space details
	AdSpaceRead = "adspace:read"

	// AdSpaceList allows listing ad spaces
	AdSpaceList = "adspace:list"

	// AdSpaceUpdate allows updating ad space dimensions, pricing, and status
	AdSpaceUpdate = "adspace:update"

	// AdSpaceArchive allows archiving (soft-deleting) ad spaces
	AdSpaceArchive = "adspace:archive"
)

// Reporting Capabilities
const (
	// ReportViewOwn allows viewing performance reports for owned resources
	ReportViewOwn = "report:view-own"

	// ReportViewAll allows viewing marketplace-wide reports (stakeholder, admin)
	ReportViewAll = "report:view-all"
)

// Account Capabilities (self-service)
const (
	// AccountReadSelf allows a user to read their own account and role state
	AccountReadSelf = "account:read-self"

	// AccountUpdateSelf allows a user to update their own profile and role preference
	AccountUpdateSelf = "account:update-self"
)

// Admin Capabilities (user and access management)
const (
	// AdminUserManage allows creating, disabling, and updating users
	AdminUserManage = "admin:user-manage"

	// AdminRoleGrant allows granting and revoking roles on users
	AdminRoleGrant = "admin:role-grant"

	// AdminOrgManage allows managing orgs, memberships, and org-role mappings
	AdminOrgManage = "admin:org-manage"

	// AdminSessionRevoke allows revoking sessions and denylisting tokens
	AdminSessionRevoke = "admin:session-revoke"

	// AdminCacheRefresh allows manually refreshing the org→role cache
	AdminCacheRefresh = "admin:cache-refresh"
)

// Wildcard Capabilities (used in policies for broad access)
const (
	// CampaignWildcard grants all campaign capabilities
	CampaignWildcard = "campaign:*"

	// AdSpaceWildcard grants all ad space capabilities
	AdSpaceWildcard = "adspace:*"

	// ReportWildcard grants all reporting capabilities
	ReportWildcard = "report:*"

	// AccountWildcard grants all account capabilities
	AccountWildcard = "account:*"

	// AdminWildcard grants all admin capabilities
	AdminWildcard = "admin:*"

	// AllWildcard grants all capabilities (admin role)
	AllWildcard = "*"
)

// Object Types for Casbin policies
const (
	// ObjectTypeDashboard represents dashboard data
	ObjectTypeDashboard = "dashboard"

	// ObjectTypeCampaign represents campaign resources
	ObjectTypeCampaign = "campaign"

	// ObjectTypeAdSpace represents ad space resources
	ObjectTypeAdSpace = "adspace"

	// ObjectTypeReport represents reporting data
	ObjectTypeReport = "report"

	// ObjectTypeAccount represents the caller's own account
	ObjectTypeAccount = "account"

	// ObjectTypeAdmin represents administrative resources
	ObjectTypeAdmin = "admin"

	// ObjectTypeAll is a wildcard for all object types
	ObjectTypeAll = "*"
)

// ValidateCapability checks if a capability string is valid
// This prevents typos when creating/updating policies
func ValidateCapability(capability string) bool {
	validCapabilities := map[string]bool{
		// Dashboard
		DashboardView: true,
		// Campaigns
		CampaignCreate:  true,
		CampaignRead:    true,
		CampaignList:    true,
		CampaignUpdate:  true,
		CampaignArchive: true,
		// Ad Spaces
		AdSpaceCreate:  true,
		AdSpaceRead:    true,
		AdSpaceList:    true,
		AdSpaceUpdate:  true,
		AdSpaceArchive: true,
		// Reporting
		ReportViewOwn: true,
		ReportViewAll: true,
		// Account
		AccountReadSelf:   true,
		AccountUpdateSelf: true,
		// Admin
		AdminUserManage:    true,
		AdminRoleGrant:     true,
		AdminOrgManage:     true,
		AdminSessionRevoke: true,
		AdminCacheRefresh:  true,
		// Wildcards
		CampaignWildcard: true,
		AdSpaceWildcard:  true,
		ReportWildcard:   true,
		AccountWildcard:  true,
		AdminWildcard:    true,
		AllWildcard:      true,
	}

	return validCapabilities[capability]
}

// CapMatch reports whether a requested capability satisfies a policy
// capability. A policy entry can be the global wildcard ("*"), a namespace
// wildcard ("campaign:*"), or a concrete capability.
func CapMatch(requested, policy string) bool {
	if policy == AllWildcard || policy == requested {
		return true
	}
	if namespace, ok := strings.CutSuffix(policy, ":*"); ok {
		return strings.HasPrefix(requested, namespace+":")
	}
	return false
}

// CapMatchFunction adapts CapMatch to the Casbin custom-function signature
// so it can back the capMatch matcher.
func CapMatchFunction() func(args ...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("capMatch requires 2 arguments: requested, policy")
		}

		requested, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("capMatch: first argument must be string (requested)")
		}

		policy, ok := args[1].(string)
		if !ok {
			return false, fmt.Errorf("capMatch: second argument must be string (policy)")
		}

		return CapMatch(requested, policy), nil
	}
}

// ExpandWildcard expands wildcard capabilities to their concrete forms
// Example: "campaign:*" → ["campaign:create", "campaign:read", ...]
func ExpandWildcard(capability string) []string {
	switch capability {
	case CampaignWildcard:
		return []string{CampaignCreate, CampaignRead, CampaignList, CampaignUpdate, CampaignArchive}
	case AdSpaceWildcard:
		return []string{AdSpaceCreate, AdSpaceRead, AdSpaceList, AdSpaceUpdate, AdSpaceArchive}
	case ReportWildcard:
		return []string{ReportViewOwn, ReportViewAll}
	case AccountWildcard:
		return []string{AccountReadSelf, AccountUpdateSelf}
	case AdminWildcard:
		return []string{AdminUserManage, AdminRoleGrant, AdminOrgManage, AdminSessionRevoke, AdminCacheRefresh}
	case AllWildcard:
		// Return all concrete capabilities
		all := []string{DashboardView}
		all = append(all, ExpandWildcard(CampaignWildcard)...)
		all = append(all, ExpandWildcard(AdSpaceWildcard)...)
		all = append(all, ExpandWildcard(ReportWildcard)...)
		all = append(all, ExpandWildcard(AccountWildcard)...)
		all = append(all, ExpandWildcard(AdminWildcard)...)
		return all
	default:
		// Not a wildcard, return as-is
		return []string{capability}
	}
}
