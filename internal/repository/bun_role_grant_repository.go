package repository

import (
	"context"
	"fmt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRoleGrantRepository implements RoleGrantRepository using Bun ORM
type BunRoleGrantRepository struct {
	db *bun.DB
}

// NewBunRoleGrantRepository creates a new Bun-based role grant repository
func NewBunRoleGrantRepository(db *bun.DB) *BunRoleGrantRepository {
	return &BunRoleGrantRepository{db: db}
}

// Create records a role grant. Duplicate grants are ignored.
func (r *BunRoleGrantRepository) Create(ctx context.Context, grant *models.RoleGrant) error {
	_, err := r.db.NewInsert().
		Model(grant).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role grant: %w", err)
	}
	return nil
}

// Delete removes a role grant from a user
func (r *BunRoleGrantRepository) Delete(ctx context.Context, userID string, role string) error {
	_, err := r.db.NewDelete().
		Model((*models.RoleGrant)(nil)).
		Where("user_id = ?", userID).
		Where("role = ?", role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role grant: %w", err)
	}
	return nil
}

// GetByUserID retrieves all role grants for a user
func (r *BunRoleGrantRepository) GetByUserID(ctx context.Context, userID string) ([]models.RoleGrant, error) {
	var grants []models.RoleGrant
	err := r.db.NewSelect().
		Model(&grants).
		Where("user_id = ?", userID).
		Order("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get role grants: %w", err)
	}
	return grants, nil
}

// Exists checks whether a user already holds a role
func (r *BunRoleGrantRepository) Exists(ctx context.Context, userID string, role string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RoleGrant)(nil)).
		Where("user_id = ?", userID).
		Where("role = ?", role).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role grant: %w", err)
	}
	return exists, nil
}
