package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
// Callers should test with errors.Is.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for marketplace users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, name string) error
	Disable(ctx context.Context, id string) error
}

// SessionRepository exposes persistence operations for browser sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Session, error)
	UpdateLastUsed(ctx context.Context, id string) error
	UpdateActiveRole(ctx context.Context, id string, role string) error
	SwitchActiveRole(ctx context.Context, id string, userID string, role string) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, gracePeriod time.Duration) error
}

// RoleGrantRepository exposes persistence operations for user role grants.
type RoleGrantRepository interface {
	Create(ctx context.Context, grant *models.RoleGrant) error
	Delete(ctx context.Context, userID string, role string) error
	GetByUserID(ctx context.Context, userID string) ([]models.RoleGrant, error)
	Exists(ctx context.Context, userID string, role string) (bool, error)
}

// RolePreferenceRepository exposes persistence operations for default-role preferences.
type RolePreferenceRepository interface {
	Get(ctx context.Context, userID string) (*models.RolePreference, error)
	Upsert(ctx context.Context, userID string, role string) error
	Delete(ctx context.Context, userID string) error
}

// OrgRepository exposes persistence operations for orgs.
type OrgRepository interface {
	Create(ctx context.Context, org *models.Org) error
	GetByID(ctx context.Context, id string) (*models.Org, error)
	GetByName(ctx context.Context, name string) (*models.Org, error)
	List(ctx context.Context) ([]models.Org, error)
}

// OrgMembershipRepository exposes persistence operations for org memberships.
type OrgMembershipRepository interface {
	Add(ctx context.Context, membership *models.OrgMembership) error
	Remove(ctx context.Context, orgID, userID string) error
	// ListByUser returns memberships with the Org relation populated.
	ListByUser(ctx context.Context, userID string) ([]models.OrgMembership, error)
	ListByOrg(ctx context.Context, orgID string) ([]models.OrgMembership, error)
}

// OrgRoleMappingRepository exposes persistence operations for org→role mappings.
type OrgRoleMappingRepository interface {
	Create(ctx context.Context, mapping *models.OrgRoleMapping) error
	Delete(ctx context.Context, orgName string, role string) error
	List(ctx context.Context) ([]models.OrgRoleMapping, error)
}

// RevokedJTIRepository exposes persistence operations for the JWT denylist.
type RevokedJTIRepository interface {
	Create(ctx context.Context, revokedJTI *models.RevokedJTI) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, gracePeriod time.Duration) error
}

// CampaignRepository exposes persistence operations for ad campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error)
	List(ctx context.Context) ([]models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Archive(ctx context.Context, id string) error
}

// AdSpaceRepository exposes persistence operations for ad spaces.
type AdSpaceRepository interface {
	Create(ctx context.Context, adSpace *models.AdSpace) error
	GetByID(ctx context.Context, id string) (*models.AdSpace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.AdSpace, error)
	List(ctx context.Context) ([]models.AdSpace, error)
	Update(ctx context.Context, adSpace *models.AdSpace) error
	Archive(ctx context.Context, id string) error
}
