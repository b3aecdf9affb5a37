package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrgRepository implements OrgRepository using Bun ORM
type BunOrgRepository struct {
	db *bun.DB
}

// NewBunOrgRepository creates a new Bun-based org repository
func NewBunOrgRepository(db *bun.DB) *BunOrgRepository {
	return &BunOrgRepository{db: db}
}

// Create inserts a new org
func (r *BunOrgRepository) Create(ctx context.Context, org *models.Org) error {
	_, err := r.db.NewInsert().
		Model(org).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create org: %w", err)
	}
	return nil
}

// GetByID retrieves an org by ID
func (r *BunOrgRepository) GetByID(ctx context.Context, id string) (*models.Org, error) {
	org := new(models.Org)
	err := r.db.NewSelect().
		Model(org).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("org %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get org: %w", err)
	}
	return org, nil
}

// GetByName retrieves an org by its unique name
func (r *BunOrgRepository) GetByName(ctx context.Context, name string) (*models.Org, error) {
	org := new(models.Org)
	err := r.db.NewSelect().
		Model(org).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("org %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get org by name: %w", err)
	}
	return org, nil
}

// List returns all orgs ordered by name
func (r *BunOrgRepository) List(ctx context.Context) ([]models.Org, error) {
	var orgs []models.Org
	err := r.db.NewSelect().
		Model(&orgs).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	return orgs, nil
}
