package migrations

import (
	"context"
	"fmt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	casbinbunadapter "github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth/bunadapter"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260801000002, down_20260801000002)
}

// up_20260801000002 seeds the system user and the role capability policies
func up_20260801000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding system user...")

	// System user for seed data attribution
	systemUser := models.User{
		ID:    auth.SystemUserID,
		Email: "system@proofofreach.internal",
		Name:  "System",
	}

	_, err := db.NewInsert().
		Model(&systemUser).
		On("CONFLICT (id) DO NOTHING"). // Idempotent
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed system user: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding role capability policies...")

	// Policies use the model: p = rolePrincipal, objType, capability, scopeExpr, eft
	//
	// Authorization always runs against the single acting role, so every role
	// carries its own dashboard and account policies. A user acting as viewer
	// gets viewer's capabilities even when they also hold admin.
	var defaultPolicies []casbinbunadapter.CasbinRule

	// Baseline: every role can view its dashboard and manage its own account
	for _, role := range auth.AllRoles() {
		defaultPolicies = append(defaultPolicies,
			casbinbunadapter.CasbinRule{Ptype: "p", V0: role.Principal(), V1: auth.ObjectTypeDashboard, V2: auth.DashboardView, V3: "", V4: "allow"},
			casbinbunadapter.CasbinRule{Ptype: "p", V0: role.Principal(), V1: auth.ObjectTypeAccount, V2: auth.AccountReadSelf, V3: "", V4: "allow"},
			casbinbunadapter.CasbinRule{Ptype: "p", V0: role.Principal(), V1: auth.ObjectTypeAccount, V2: auth.AccountUpdateSelf, V3: "", V4: "allow"},
		)
	}

	advertiser := auth.RoleAdvertiser.Principal()
	publisher := auth.RolePublisher.Principal()
	stakeholder := auth.RoleStakeholder.Principal()

	defaultPolicies = append(defaultPolicies,
		// advertiser: full campaign lifecycle, scoped reporting.
		// Scope expressions evaluate against resource attributes built by the
		// authz middleware: "own" (caller owns the resource) and "status".
		// Reads are limited to owned campaigns; mutations additionally reject
		// archived ones.
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeCampaign, V2: auth.CampaignCreate, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeCampaign, V2: auth.CampaignRead, V3: `own == "true"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeCampaign, V2: auth.CampaignList, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeCampaign, V2: auth.CampaignUpdate, V3: `own == "true" and status != "archived"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeCampaign, V2: auth.CampaignArchive, V3: `own == "true" and status != "archived"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: advertiser, V1: auth.ObjectTypeReport, V2: auth.ReportViewOwn, V3: "", V4: "allow"},

		// publisher: full ad space lifecycle, scoped reporting
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceCreate, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceRead, V3: `own == "true"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceList, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceUpdate, V3: `own == "true" and status != "archived"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceArchive, V3: `own == "true" and status != "archived"`, V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: publisher, V1: auth.ObjectTypeReport, V2: auth.ReportViewOwn, V3: "", V4: "allow"},

		// stakeholder: marketplace-wide read access, no mutations
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeReport, V2: auth.ReportViewAll, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeReport, V2: auth.ReportViewOwn, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeCampaign, V2: auth.CampaignRead, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeCampaign, V2: auth.CampaignList, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceRead, V3: "", V4: "allow"},
		casbinbunadapter.CasbinRule{Ptype: "p", V0: stakeholder, V1: auth.ObjectTypeAdSpace, V2: auth.AdSpaceList, V3: "", V4: "allow"},

		// admin: full access (wildcard, no constraint)
		casbinbunadapter.CasbinRule{Ptype: "p", V0: auth.RoleAdmin.Principal(), V1: auth.ObjectTypeAll, V2: auth.AllWildcard, V3: "", V4: "allow"},
	)

	// Guard against typos in the capability column before anything lands.
	for _, rule := range defaultPolicies {
		if !auth.ValidateCapability(rule.V2) {
			return fmt.Errorf("seed policy carries unknown capability %q", rule.V2)
		}
	}

	// Bulk insert with conflict handling
	_, err = db.NewInsert().
		Model(&defaultPolicies).
		On("CONFLICT (ptype, v0, v1, v2, v3, v4, v5) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed Casbin policies: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260801000002 removes the seeded policies and system user
func down_20260801000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing seeded Casbin policies...")
	_, err := db.NewDelete().
		Model((*casbinbunadapter.CasbinRule)(nil)).
		Where("ptype = ?", "p").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete Casbin policies: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [down] removing system user...")
	_, err = db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", auth.SystemUserID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete system user: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
