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

// BunAdSpaceRepository implements AdSpaceRepository using Bun ORM
type BunAdSpaceRepository struct {
	db *bun.DB
}

// NewBunAdSpaceRepository creates a new Bun-based ad space repository
func NewBunAdSpaceRepository(db *bun.DB) *BunAdSpaceRepository {
	return &BunAdSpaceRepository{db: db}
}

// Create inserts a new ad space
func (r *BunAdSpaceRepository) Create(ctx context.Context, adSpace *models.AdSpace) error {
	_, err := r.db.NewInsert().
		Model(adSpace).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create ad space: %w", err)
	}
	return nil
}

// GetByID retrieves an ad space by ID
func (r *BunAdSpaceRepository) GetByID(ctx context.Context, id string) (*models.AdSpace, error) {
	adSpace := new(models.AdSpace)
	err := r.db.NewSelect().
		Model(adSpace).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ad space %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get ad space: %w", err)
	}
	return adSpace, nil
}

// ListByOwner retrieves all ad spaces owned by a user
func (r *BunAdSpaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.AdSpace, error) {
	var adSpaces []models.AdSpace
	err := r.db.NewSelect().
		Model(&adSpaces).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ad spaces by owner: %w", err)
	}
	return adSpaces, nil
}

// List returns all ad spaces (marketplace-wide reporting)
func (r *BunAdSpaceRepository) List(ctx context.Context) ([]models.AdSpace, error) {
	var adSpaces []models.AdSpace
	err := r.db.NewSelect().
		Model(&adSpaces).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ad spaces: %w", err)
	}
	return adSpaces, nil
}

// Update persists ad space changes (dimensions, pricing, status)
func (r *BunAdSpaceRepository) Update(ctx context.Context, adSpace *models.AdSpace) error {
	adSpace.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().
		Model(adSpace).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update ad space: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("ad space %s: %w", adSpace.ID, ErrNotFound)
	}
	return nil
}

// Archive soft-deletes an ad space
func (r *BunAdSpaceRepository) Archive(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.AdSpace)(nil)).
		Set("status = ?", models.AdSpaceStatusArchived).
		Set("archived_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive ad space: %w", err)
	}
	return nil
}
