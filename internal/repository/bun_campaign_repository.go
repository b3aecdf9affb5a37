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

// BunCampaignRepository implements CampaignRepository using Bun ORM
type BunCampaignRepository struct {
	db *bun.DB
}

// NewBunCampaignRepository creates a new Bun-based campaign repository
func NewBunCampaignRepository(db *bun.DB) *BunCampaignRepository {
	return &BunCampaignRepository{db: db}
}

// Create inserts a new campaign
func (r *BunCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	_, err := r.db.NewInsert().
		Model(campaign).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// GetByID retrieves a campaign by ID
func (r *BunCampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	campaign := new(models.Campaign)
	err := r.db.NewSelect().
		Model(campaign).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return campaign, nil
}

// ListByOwner retrieves all campaigns owned by a user
func (r *BunCampaignRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.NewSelect().
		Model(&campaigns).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaigns by owner: %w", err)
	}
	return campaigns, nil
}

// List returns all campaigns (marketplace-wide reporting)
func (r *BunCampaignRepository) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.NewSelect().
		Model(&campaigns).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

// Update persists campaign changes (name, budget, targeting, status)
func (r *BunCampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().
		Model(campaign).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("campaign %s: %w", campaign.ID, ErrNotFound)
	}
	return nil
}

// Archive soft-deletes a campaign
func (r *BunCampaignRepository) Archive(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.Campaign)(nil)).
		Set("status = ?", models.CampaignStatusArchived).
		Set("archived_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive campaign: %w", err)
	}
	return nil
}
