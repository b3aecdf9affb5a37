package repository

import (
	"context"
	"fmt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrgMembershipRepository implements OrgMembershipRepository using Bun ORM
type BunOrgMembershipRepository struct {
	db *bun.DB
}

// NewBunOrgMembershipRepository creates a new Bun-based org membership repository
func NewBunOrgMembershipRepository(db *bun.DB) *BunOrgMembershipRepository {
	return &BunOrgMembershipRepository{db: db}
}

// Add records an org membership. Duplicate memberships are ignored.
func (r *BunOrgMembershipRepository) Add(ctx context.Context, membership *models.OrgMembership) error {
	_, err := r.db.NewInsert().
		Model(membership).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add org membership: %w", err)
	}
	return nil
}

// Remove deletes an org membership
func (r *BunOrgMembershipRepository) Remove(ctx context.Context, orgID, userID string) error {
	_, err := r.db.NewDelete().
		Model((*models.OrgMembership)(nil)).
		Where("org_id = ?", orgID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove org membership: %w", err)
	}
	return nil
}

// ListByUser retrieves all memberships for a user with the Org relation
// populated. Used by role resolution to derive kind-based roles.
func (r *BunOrgMembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.OrgMembership, error) {
	var memberships []models.OrgMembership
	err := r.db.NewSelect().
		Model(&memberships).
		Relation("Org").
		Where("om.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user org memberships: %w", err)
	}
	return memberships, nil
}

// ListByOrg retrieves all memberships for an org
func (r *BunOrgMembershipRepository) ListByOrg(ctx context.Context, orgID string) ([]models.OrgMembership, error) {
	var memberships []models.OrgMembership
	err := r.db.NewSelect().
		Model(&memberships).
		Where("om.org_id = ?", orgID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list org memberships: %w", err)
	}
	return memberships, nil
}
