package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	reachmiddleware "github.com/ProofOfReach/ProofOfReachApp-sub001/internal/middleware"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// CampaignRequest represents the body of campaign create/update calls
type CampaignRequest struct {
	Name        string `json:"name"`
	TargetURL   string `json:"target_url"`
	BudgetCents int64  `json:"budget_cents"`
	Status      string `json:"status"`
}

// CampaignResponse represents campaign data in API responses
type CampaignResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	TargetURL   string `json:"target_url,omitempty"`
	BudgetCents int64  `json:"budget_cents"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

func campaignResponse(c *models.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		TargetURL:   c.TargetURL,
		BudgetCents: c.BudgetCents,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt.UnixMilli(),
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
	}
}

// HandleCreateCampaign creates a campaign owned by the caller.
func HandleCreateCampaign(campaigns repository.CampaignRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		var req CampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		now := time.Now()
		campaign := &models.Campaign{
			ID:          bunx.NewUUIDv7(),
			OwnerID:     principal.InternalID,
			Name:        req.Name,
			TargetURL:   req.TargetURL,
			BudgetCents: req.BudgetCents,
			Status:      req.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if campaign.Status == "" {
			campaign.Status = models.CampaignStatusDraft
		}
		if err := campaign.ValidateForCreate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := campaigns.Create(r.Context(), campaign); err != nil {
			log.Printf("create campaign failed for %s: %v", principal.InternalID, err)
			http.Error(w, "Failed to create campaign", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, campaignResponse(campaign))
	}
}

// HandleListCampaigns lists campaigns. Advertisers see their own; roles
// with marketplace-wide read (stakeholder, admin) see everything.
func HandleListCampaigns(campaigns repository.CampaignRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		acting, _ := auth.GetActingRole(ctx)

		var (
			list []models.Campaign
			err  error
		)
		switch acting.Role {
		case auth.RoleAdmin, auth.RoleStakeholder:
			list, err = campaigns.List(ctx)
		default:
			list, err = campaigns.ListByOwner(ctx, principal.InternalID)
		}
		if err != nil {
			http.Error(w, "Failed to list campaigns", http.StatusInternalServerError)
			return
		}

		out := make([]CampaignResponse, 0, len(list))
		for i := range list {
			out = append(out, campaignResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleGetCampaign returns the campaign loaded by the authorization
// middleware. By the time this runs the ownership scope has already passed.
func HandleGetCampaign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign, ok := reachmiddleware.CampaignFromContext(r.Context())
		if !ok {
			http.Error(w, "Campaign not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, campaignResponse(campaign))
	}
}

// HandleUpdateCampaign applies field updates to an owned campaign.
func HandleUpdateCampaign(campaigns repository.CampaignRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign, ok := reachmiddleware.CampaignFromContext(r.Context())
		if !ok {
			http.Error(w, "Campaign not found", http.StatusNotFound)
			return
		}

		var req CampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name != "" {
			campaign.Name = req.Name
		}
		if req.TargetURL != "" {
			campaign.TargetURL = req.TargetURL
		}
		if req.BudgetCents > 0 {
			campaign.BudgetCents = req.BudgetCents
		}
		if req.Status != "" {
			switch req.Status {
			case models.CampaignStatusDraft, models.CampaignStatusActive, models.CampaignStatusPaused:
				campaign.Status = req.Status
			default:
				// Archiving goes through DELETE, never a status update.
				http.Error(w, "Invalid status", http.StatusBadRequest)
				return
			}
		}
		campaign.UpdatedAt = time.Now()

		if err := campaigns.Update(r.Context(), campaign); err != nil {
			http.Error(w, "Failed to update campaign", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, campaignResponse(campaign))
	}
}

// HandleArchiveCampaign soft-deletes an owned campaign.
func HandleArchiveCampaign(campaigns repository.CampaignRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign, ok := reachmiddleware.CampaignFromContext(r.Context())
		if !ok {
			http.Error(w, "Campaign not found", http.StatusNotFound)
			return
		}

		if err := campaigns.Archive(r.Context(), campaign.ID); err != nil {
			notFoundOr500(w, err, "Campaign not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// AdSpaceRequest represents the body of ad space create/update calls
type AdSpaceRequest struct {
	Name            string `json:"name"`
	Website         string `json:"website"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FloorPriceCents int64  `json:"floor_price_cents"`
	Status          string `json:"status"`
}

// AdSpaceResponse represents ad space data in API responses
type AdSpaceResponse struct {
	ID              string `json:"id"`
	OwnerID         string `json:"owner_id"`
	Name            string `json:"name"`
	Website         string `json:"website,omitempty"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FloorPriceCents int64  `json:"floor_price_cents"`
	Status          string `json:"status"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

func adSpaceResponse(a *models.AdSpace) AdSpaceResponse {
	return AdSpaceResponse{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		Name:            a.Name,
		Website:         a.Website,
		Width:           a.Width,
		Height:          a.Height,
		FloorPriceCents: a.FloorPriceCents,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt.UnixMilli(),
		UpdatedAt:       a.UpdatedAt.UnixMilli(),
	}
}

// HandleCreateAdSpace creates an ad space owned by the caller.
func HandleCreateAdSpace(adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		var req AdSpaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		now := time.Now()
		adSpace := &models.AdSpace{
			ID:              bunx.NewUUIDv7(),
			OwnerID:         principal.InternalID,
			Name:            req.Name,
			Website:         req.Website,
			Width:           req.Width,
			Height:          req.Height,
			FloorPriceCents: req.FloorPriceCents,
			Status:          req.Status,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if adSpace.Status == "" {
			adSpace.Status = models.AdSpaceStatusPending
		}
		if err := adSpace.ValidateForCreate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := adSpaces.Create(r.Context(), adSpace); err != nil {
			log.Printf("create ad space failed for %s: %v", principal.InternalID, err)
			http.Error(w, "Failed to create ad space", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, adSpaceResponse(adSpace))
	}
}

// HandleListAdSpaces lists ad spaces. Publishers see their own; roles with
// marketplace-wide read (stakeholder, admin) see everything.
func HandleListAdSpaces(adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		acting, _ := auth.GetActingRole(ctx)

		var (
			list []models.AdSpace
			err  error
		)
		switch acting.Role {
		case auth.RoleAdmin, auth.RoleStakeholder:
			list, err = adSpaces.List(ctx)
		default:
			list, err = adSpaces.ListByOwner(ctx, principal.InternalID)
		}
		if err != nil {
			http.Error(w, "Failed to list ad spaces", http.StatusInternalServerError)
			return
		}

		out := make([]AdSpaceResponse, 0, len(list))
		for i := range list {
			out = append(out, adSpaceResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleGetAdSpace returns the ad space loaded by the authorization middleware.
func HandleGetAdSpace() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adSpace, ok := reachmiddleware.AdSpaceFromContext(r.Context())
		if !ok {
			http.Error(w, "Ad space not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, adSpaceResponse(adSpace))
	}
}

// HandleUpdateAdSpace applies field updates to an owned ad space.
func HandleUpdateAdSpace(adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adSpace, ok := reachmiddleware.AdSpaceFromContext(r.Context())
		if !ok {
			http.Error(w, "Ad space not found", http.StatusNotFound)
			return
		}

		var req AdSpaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name != "" {
			adSpace.Name = req.Name
		}
		if req.Website != "" {
			adSpace.Website = req.Website
		}
		if req.Width > 0 {
			adSpace.Width = req.Width
		}
		if req.Height > 0 {
			adSpace.Height = req.Height
		}
		if req.FloorPriceCents > 0 {
			adSpace.FloorPriceCents = req.FloorPriceCents
		}
		if req.Status != "" {
			switch req.Status {
			case models.AdSpaceStatusPending, models.AdSpaceStatusApproved:
				adSpace.Status = req.Status
			default:
				http.Error(w, "Invalid status", http.StatusBadRequest)
				return
			}
		}
		adSpace.UpdatedAt = time.Now()

		if err := adSpaces.Update(r.Context(), adSpace); err != nil {
			http.Error(w, "Failed to update ad space", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, adSpaceResponse(adSpace))
	}
}

// HandleArchiveAdSpace soft-deletes an owned ad space.
func HandleArchiveAdSpace(adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adSpace, ok := reachmiddleware.AdSpaceFromContext(r.Context())
		if !ok {
			http.Error(w, "Ad space not found", http.StatusNotFound)
			return
		}

		if err := adSpaces.Archive(r.Context(), adSpace.ID); err != nil {
			notFoundOr500(w, err, "Ad space not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
