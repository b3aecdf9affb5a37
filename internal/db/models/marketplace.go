package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Campaign statuses.
const (
	CampaignStatusDraft    = "draft"
	CampaignStatusActive   = "active"
	CampaignStatusPaused   = "paused"
	CampaignStatusArchived = "archived"
)

// Campaign is an advertiser-owned ad campaign. Kept intentionally thin: it
// exists so ownership-scoped authorization has something real to protect.
type Campaign struct {
	bun.BaseModel `bun:"table:campaigns,alias:c"`

	ID           string     `bun:"id,pk,type:uuid"`
	OwnerID      string     `bun:"owner_id,notnull,type:uuid"` // FK to users(id)
	OrgID        *string    `bun:"org_id,type:uuid"`           // FK to orgs(id), nullable
	Name         string     `bun:"name,notnull"`
	TargetURL    string     `bun:"target_url"`
	BudgetCents  int64      `bun:"budget_cents,notnull,default:0"`
	Status       string     `bun:"status,notnull,default:'draft'"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	ArchivedAt   *time.Time `bun:"archived_at"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (c *Campaign) ValidateForCreate() error {
	if c.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if len(c.Name) > 128 {
		return errors.New("name exceeds maximum length")
	}
	if c.BudgetCents < 0 {
		return errors.New("budget cannot be negative")
	}
	switch c.Status {
	case "", CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused:
	default:
		return errors.New("invalid status for new campaign")
	}
	return nil
}

// Archived reports whether the campaign has been archived.
func (c *Campaign) Archived() bool {
	return c.Status == CampaignStatusArchived
}

// Ad space statuses.
const (
	AdSpaceStatusPending  = "pending"
	AdSpaceStatusApproved = "approved"
	AdSpaceStatusArchived = "archived"
)

// AdSpace is a publisher-owned advertising slot.
type AdSpace struct {
	bun.BaseModel `bun:"table:ad_spaces,alias:ads"`

	ID              string     `bun:"id,pk,type:uuid"`
	OwnerID         string     `bun:"owner_id,notnull,type:uuid"` // FK to users(id)
	OrgID           *string    `bun:"org_id,type:uuid"`           // FK to orgs(id), nullable
	Name            string     `bun:"name,notnull"`
	Website         string     `bun:"website"`
	Width           int        `bun:"width,notnull,default:0"`
	Height          int        `bun:"height,notnull,default:0"`
	FloorPriceCents int64      `bun:"floor_price_cents,notnull,default:0"`
	Status          string     `bun:"status,notnull,default:'pending'"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	ArchivedAt      *time.Time `bun:"archived_at"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (a *AdSpace) ValidateForCreate() error {
	if a.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if a.Name == "" {
		return errors.New("name is required")
	}
	if len(a.Name) > 128 {
		return errors.New("name exceeds maximum length")
	}
	if a.Width < 0 || a.Height < 0 {
		return errors.New("dimensions cannot be negative")
	}
	if a.FloorPriceCents < 0 {
		return errors.New("floor price cannot be negative")
	}
	switch a.Status {
	case "", AdSpaceStatusPending, AdSpaceStatusApproved:
	default:
		return errors.New("invalid status for new ad space")
	}
	return nil
}

// Archived reports whether the ad space has been archived.
func (a *AdSpace) Archived() bool {
	return a.Status == AdSpaceStatusArchived
}
