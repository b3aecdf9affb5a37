package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents a marketplace account. Every user can view the marketplace;
// the roles they can act under live in role_grants (plus org-derived roles).
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:uuid"`
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name"`
	PasswordHash *string    `bun:"password_hash"` // bcrypt hash for password login
	IsTest       bool       `bun:"is_test,notnull,default:false"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
	DisabledAt   *time.Time `bun:"disabled_at"`
}

// PrincipalSubject returns the stable identifier used for Casbin bindings.
func (u *User) PrincipalSubject() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// Disabled reports whether the account has been disabled.
func (u *User) Disabled() bool {
	return u != nil && u.DisabledAt != nil
}

// Org kinds. An org's kind determines the role its members inherit.
const (
	OrgKindAdvertiser = "advertiser"
	OrgKindPublisher  = "publisher"
)

// Org represents an advertiser or publisher organization.
type Org struct {
	bun.BaseModel `bun:"table:orgs,alias:o"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	Kind      string    `bun:"kind,notnull"` // advertiser | publisher
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// OrgMembership links a user to an org. Membership in an org confers the
// role matching the org's kind (resolved at authentication time).
type OrgMembership struct {
	bun.BaseModel `bun:"table:org_memberships,alias:om"`

	ID      string    `bun:"id,pk,type:uuid"`
	OrgID   string    `bun:"org_id,notnull,type:uuid"`  // FK to orgs(id)
	UserID  string    `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	AddedAt time.Time `bun:"added_at,notnull,default:current_timestamp"`
	AddedBy string    `bun:"added_by,notnull,type:uuid"` // FK to users(id)

	Org *Org `bun:"rel:belongs-to,join:org_id=id"`
}

// OrgRoleMapping grants an extra role to every member of the named org,
// beyond the role implied by the org's kind (e.g. a publisher org whose
// members also get stakeholder reporting access).
type OrgRoleMapping struct {
	bun.BaseModel `bun:"table:org_role_mappings,alias:orm"`

	ID         string    `bun:"id,pk,type:uuid"`
	OrgName    string    `bun:"org_name,notnull"`
	Role       string    `bun:"role,notnull"`
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
	AssignedBy string    `bun:"assigned_by,notnull,type:uuid"` // FK to users(id)
}

// RoleGrant records that a user holds a role. Roles themselves are a fixed
// enum defined in code; only the grants are data.
type RoleGrant struct {
	bun.BaseModel `bun:"table:role_grants,alias:rg"`

	ID        string    `bun:"id,pk,type:uuid"`
	UserID    string    `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	Role      string    `bun:"role,notnull"`
	GrantedAt time.Time `bun:"granted_at,notnull,default:current_timestamp"`
	GrantedBy string    `bun:"granted_by,notnull,type:uuid"` // FK to users(id)
}

// RolePreference stores the user's chosen default acting role. One row per
// user. Consulted when a session carries no explicit active role.
type RolePreference struct {
	bun.BaseModel `bun:"table:role_preferences,alias:rp"`

	UserID        string    `bun:"user_id,pk,type:uuid"` // FK to users(id)
	PreferredRole string    `bun:"preferred_role,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session tracks active browser sessions.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string    `bun:"id,pk,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	TokenHash  string    `bun:"token_hash,notnull,unique"` // SHA256 hash of session token
	ActiveRole string    `bun:"active_role"`               // Acting role for this session, empty until first switch
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	UserAgent  *string   `bun:"user_agent"`
	IPAddress  *string   `bun:"ip_address"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
}

// RevokedJTI tracks revoked JWT tokens by their JTI claim for denylist-based revocation
type RevokedJTI struct {
	bun.BaseModel `bun:"table:revoked_jti,alias:rjti"`

	JTI       string    `bun:"jti,pk"`                                       // JWT ID (jti claim from token)
	Subject   string    `bun:"subject,notnull"`                              // Subject (sub claim) - user ID
	Exp       time.Time `bun:"exp,notnull"`                                  // Token expiration time (for cleanup)
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"` // When the token was revoked
	RevokedBy *string   `bun:"revoked_by"`                                   // Optional: who revoked it (user ID)
}
