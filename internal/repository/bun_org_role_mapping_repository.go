package repository

import (
	"context"
	"fmt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrgRoleMappingRepository implements OrgRoleMappingRepository using Bun ORM
type BunOrgRoleMappingRepository struct {
	db *bun.DB
}

// NewBunOrgRoleMappingRepository creates a new Bun-based org role mapping repository
func NewBunOrgRoleMappingRepository(db *bun.DB) *BunOrgRoleMappingRepository {
	return &BunOrgRoleMappingRepository{db: db}
}

// Create records an org→role mapping
func (r *BunOrgRoleMappingRepository) Create(ctx context.Context, mapping *models.OrgRoleMapping) error {
	_, err := r.db.NewInsert().
		Model(mapping).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create org role mapping: %w", err)
	}
	return nil
}

// Delete removes an org→role mapping
func (r *BunOrgRoleMappingRepository) Delete(ctx context.Context, orgName string, role string) error {
	_, err := r.db.NewDelete().
		Model((*models.OrgRoleMapping)(nil)).
		Where("org_name = ?", orgName).
		Where("role = ?", role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete org role mapping: %w", err)
	}
	return nil
}

// List returns all org→role mappings (consumed by the cache refresh)
func (r *BunOrgRoleMappingRepository) List(ctx context.Context) ([]models.OrgRoleMapping, error) {
	var mappings []models.OrgRoleMapping
	err := r.db.NewSelect().
		Model(&mappings).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list org role mappings: %w", err)
	}
	return mappings, nil
}
