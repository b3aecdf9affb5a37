package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRolePreferenceRepository implements RolePreferenceRepository using Bun ORM
type BunRolePreferenceRepository struct {
	db *bun.DB
}

// NewBunRolePreferenceRepository creates a new Bun-based role preference repository
func NewBunRolePreferenceRepository(db *bun.DB) *BunRolePreferenceRepository {
	return &BunRolePreferenceRepository{db: db}
}

// Get retrieves the preferred default role for a user
func (r *BunRolePreferenceRepository) Get(ctx context.Context, userID string) (*models.RolePreference, error) {
	pref := new(models.RolePreference)
	err := r.db.NewSelect().
		Model(pref).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role preference for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get role preference: %w", err)
	}
	return pref, nil
}

// Upsert inserts or replaces the user's preferred default role
func (r *BunRolePreferenceRepository) Upsert(ctx context.Context, userID string, role string) error {
	pref := &models.RolePreference{
		UserID:        userID,
		PreferredRole: role,
		UpdatedAt:     time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(pref).
		On("CONFLICT (user_id) DO UPDATE").
		Set("preferred_role = EXCLUDED.preferred_role").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert role preference: %w", err)
	}
	return nil
}

// Delete removes the user's role preference (falls back to highest grant)
func (r *BunRolePreferenceRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.NewDelete().
		Model((*models.RolePreference)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role preference: %w", err)
	}
	return nil
}
