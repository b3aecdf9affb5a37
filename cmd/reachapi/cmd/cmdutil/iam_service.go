package cmdutil

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

// IAMServiceBundle bundles the service with its underlying DB connection so
// callers can reuse the connection for other repositories when necessary.
type IAMServiceBundle struct {
	Service iam.Service
	DB      *bun.DB
}

// Close releases the underlying database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewIAMServiceBundle centralizes IAM service construction for CLI commands.
// It wires repositories, initializes Casbin, and returns a ready-to-use service.
func NewIAMServiceBundle(cfg *config.Config) (*IAMServiceBundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	enforcer, err := auth.InitEnforcer(db)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to initialize casbin enforcer: %w", err)
	}
	// Policies are seeded by migrations; runtime checks never mutate them.
	enforcer.EnableAutoSave(false)

	deps := iam.Dependencies{
		Users:           repository.NewBunUserRepository(db),
		Sessions:        repository.NewBunSessionRepository(db),
		RoleGrants:      repository.NewBunRoleGrantRepository(db),
		RolePreferences: repository.NewBunRolePreferenceRepository(db),
		Orgs:            repository.NewBunOrgRepository(db),
		OrgMemberships:  repository.NewBunOrgMembershipRepository(db),
		OrgRoleMappings: repository.NewBunOrgRoleMappingRepository(db),
		RevokedJTIs:     repository.NewBunRevokedJTIRepository(db),
		Enforcer:        enforcer,
	}

	iamService, err := iam.NewIAMService(deps, cfg)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &IAMServiceBundle{
		Service: iamService,
		DB:      db,
	}, nil
}
