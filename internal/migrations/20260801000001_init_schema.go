package migrations

import (
	"context"
	"fmt"

	casbinbunadapter "github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth/bunadapter"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260801000001, down_20260801000001)
}

// up_20260801000001 creates the identity, session, role, and marketplace tables
func up_20260801000001(ctx context.Context, db *bun.DB) error {
	// 1. Create users table
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`)
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	fmt.Println(" OK")

	// 2. Create orgs table
	fmt.Print(" [up] creating orgs table...")
	_, err = db.NewCreateTable().
		Model((*models.Org)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create orgs table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_orgs_name ON orgs(name)`)
	if err != nil {
		return fmt.Errorf("failed to create orgs name index: %w", err)
	}
	fmt.Println(" OK")

	// 3. Create org_memberships table
	fmt.Print(" [up] creating org_memberships table...")
	_, err = db.NewCreateTable().
		Model((*models.OrgMembership)(nil)).
		IfNotExists().
		ForeignKey(`(org_id) REFERENCES orgs(id) ON DELETE CASCADE`).
		ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create org_memberships table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_org_memberships_org_user ON org_memberships(org_id, user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create org_memberships unique index: %w", err)
	}
	fmt.Println(" OK")

	// 4. Create org_role_mappings table
	fmt.Print(" [up] creating org_role_mappings table...")
	_, err = db.NewCreateTable().
		Model((*models.OrgRoleMapping)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create org_role_mappings table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_org_role_mappings_org_role ON org_role_mappings(org_name, role)`)
	if err != nil {
		return fmt.Errorf("failed to create org_role_mappings unique index: %w", err)
	}
	fmt.Println(" OK")

	// 5. Create role_grants table
	fmt.Print(" [up] creating role_grants table...")
	_, err = db.NewCreateTable().
		Model((*models.RoleGrant)(nil)).
		IfNotExists().
		ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create role_grants table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_role_grants_user_role ON role_grants(user_id, role)`)
	if err != nil {
		return fmt.Errorf("failed to create role_grants unique index: %w", err)
	}
	fmt.Println(" OK")

	// 6. Create role_preferences table
	fmt.Print(" [up] creating role_preferences table...")
	_, err = db.NewCreateTable().
		Model((*models.RolePreference)(nil)).
		IfNotExists().
		ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create role_preferences table: %w", err)
	}
	fmt.Println(" OK")

	// 7. Create sessions table
	fmt.Print(" [up] creating sessions table...")
	_, err = db.NewCreateTable().
		Model((*models.Session)(nil)).
		IfNotExists().
		ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions token_hash index: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions user_id index: %w", err)
	}
	fmt.Println(" OK")

	// 8. Create revoked_jti table
	fmt.Print(" [up] creating revoked_jti table...")
	_, err = db.NewCreateTable().
		Model((*models.RevokedJTI)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create revoked_jti table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_revoked_jti_exp ON revoked_jti(exp)`)
	if err != nil {
		return fmt.Errorf("failed to create revoked_jti exp index: %w", err)
	}
	fmt.Println(" OK")

	// 9. Create campaigns table
	fmt.Print(" [up] creating campaigns table...")
	_, err = db.NewCreateTable().
		Model((*models.Campaign)(nil)).
		IfNotExists().
		ForeignKey(`(owner_id) REFERENCES users(id)`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create campaigns table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_campaigns_owner_id ON campaigns(owner_id)`)
	if err != nil {
		return fmt.Errorf("failed to create campaigns owner index: %w", err)
	}
	fmt.Println(" OK")

	// 10. Create ad_spaces table
	fmt.Print(" [up] creating ad_spaces table...")
	_, err = db.NewCreateTable().
		Model((*models.AdSpace)(nil)).
		IfNotExists().
		ForeignKey(`(owner_id) REFERENCES users(id)`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ad_spaces table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ad_spaces_owner_id ON ad_spaces(owner_id)`)
	if err != nil {
		return fmt.Errorf("failed to create ad_spaces owner index: %w", err)
	}
	fmt.Println(" OK")

	// 11. Create casbin_rules table (policy storage for the enforcer)
	fmt.Print(" [up] creating casbin_rules table...")
	_, err = db.NewCreateTable().
		Model((*casbinbunadapter.CasbinRule)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create casbin_rules table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260801000001 drops all tables created by this migration
func down_20260801000001(ctx context.Context, db *bun.DB) error {
	// Drop in reverse dependency order
	tables := []string{
		"casbin_rules",
		"ad_spaces",
		"campaigns",
		"revoked_jti",
		"sessions",
		"role_preferences",
		"role_grants",
		"org_role_mappings",
		"org_memberships",
		"orgs",
		"users",
	}

	for _, table := range tables {
		fmt.Printf(" [down] dropping %s table...", table)
		if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}

	return nil
}
