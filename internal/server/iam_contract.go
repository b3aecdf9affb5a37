package server

import (
	"context"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

// iamAdminService defines the exact IAM methods used by server handlers.
// This interface provides compile-time proof that iam.Service satisfies
// all requirements without circular imports.
//
// By defining this contract in the server package, we avoid importing
// repositories or internal IAM implementation details while ensuring
// type safety at compile time.
type iamAdminService interface {
	// Role resolution and authorization (used by reporting and dashboard handlers)
	ResolveRoles(ctx context.Context, userID string, orgNames []string) ([]auth.Role, error)
	Authorize(ctx context.Context, actingRole auth.Role, obj, act string, attrs map[string]interface{}) (bool, error)

	// Acting role
	SwitchRole(ctx context.Context, principal *auth.AuthenticatedPrincipal, target auth.Role) error

	// Sessions and tokens
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*models.Session, string, error)
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeAllSessions(ctx context.Context, userID string) error
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]models.Session, error)
	IssueToken(ctx context.Context, userID string) (*auth.IssuedToken, error)
	RevokeJTI(ctx context.Context, jti, subject string, expiresAt time.Time, revokedBy string) error

	// Role preferences
	SetRolePreference(ctx context.Context, userID string, role auth.Role) error
	GetRolePreference(ctx context.Context, userID string) (*models.RolePreference, error)
	ClearRolePreference(ctx context.Context, userID string) error

	// User management
	CreateUser(ctx context.Context, email, name, password string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DisableUser(ctx context.Context, userID string) error

	// Role grants
	GrantRole(ctx context.Context, userID string, role auth.Role, grantedBy string) error
	RevokeRole(ctx context.Context, userID string, role auth.Role) error
	ListGrantedRoles(ctx context.Context, userID string) ([]auth.Role, error)

	// Org management
	CreateOrg(ctx context.Context, name, kind string) (*models.Org, error)
	GetOrgByName(ctx context.Context, name string) (*models.Org, error)
	ListOrgs(ctx context.Context) ([]models.Org, error)
	AddOrgMember(ctx context.Context, orgID, userID, addedBy string) error
	RemoveOrgMember(ctx context.Context, orgID, userID string) error
	ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error)
	AssignOrgRole(ctx context.Context, orgName string, role auth.Role, assignedBy string) error
	RemoveOrgRole(ctx context.Context, orgName string, role auth.Role) error

	// Cache management
	RefreshOrgRoleCache(ctx context.Context) error
	GetOrgRoleCacheSnapshot() iam.OrgRoleSnapshot
}

// Compile-time assertion: iam.Service must implement iamAdminService.
// This will cause a build failure if iam.Service is missing any required method.
var _ iamAdminService = (iam.Service)(nil)
