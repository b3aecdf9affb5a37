package server

import (
	"net/http"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// CampaignSummary aggregates campaign figures for dashboards and reports
type CampaignSummary struct {
	Total            int   `json:"total"`
	Active           int   `json:"active"`
	TotalBudgetCents int64 `json:"total_budget_cents"`
}

// AdSpaceSummary aggregates ad space figures for dashboards and reports
type AdSpaceSummary struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
}

// DashboardResponse represents the response from GET /dashboard.
// The populated sections depend on the acting role.
type DashboardResponse struct {
	Role      string           `json:"role"`
	Campaigns *CampaignSummary `json:"campaigns,omitempty"`
	AdSpaces  *AdSpaceSummary  `json:"ad_spaces,omitempty"`
}

// ReportResponse represents the response from GET /reports
type ReportResponse struct {
	Scope     string          `json:"scope"` // "own" or "all"
	Campaigns CampaignSummary `json:"campaigns"`
	AdSpaces  AdSpaceSummary  `json:"ad_spaces"`
}

func summarizeCampaigns(list []models.Campaign) CampaignSummary {
	s := CampaignSummary{Total: len(list)}
	for i := range list {
		if list[i].Status == models.CampaignStatusActive {
			s.Active++
		}
		s.TotalBudgetCents += list[i].BudgetCents
	}
	return s
}

func summarizeAdSpaces(list []models.AdSpace) AdSpaceSummary {
	s := AdSpaceSummary{Total: len(list)}
	for i := range list {
		switch list[i].Status {
		case models.AdSpaceStatusApproved:
			s.Approved++
		case models.AdSpaceStatusPending:
			s.Pending++
		}
	}
	return s
}

// HandleDashboard returns the data backing the role-specific dashboard.
// Each role gets a different slice of the marketplace:
//
//   - advertiser: own campaign figures
//   - publisher: own ad space figures
//   - stakeholder, admin: marketplace-wide figures for both
//   - viewer: an empty shell (the frontend shows onboarding)
func HandleDashboard(campaigns repository.CampaignRepository, adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		acting, _ := auth.GetActingRole(ctx)

		resp := DashboardResponse{Role: string(acting.Role)}

		switch acting.Role {
		case auth.RoleAdvertiser:
			list, err := campaigns.ListByOwner(ctx, principal.InternalID)
			if err != nil {
				http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
				return
			}
			s := summarizeCampaigns(list)
			resp.Campaigns = &s

		case auth.RolePublisher:
			list, err := adSpaces.ListByOwner(ctx, principal.InternalID)
			if err != nil {
				http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
				return
			}
			s := summarizeAdSpaces(list)
			resp.AdSpaces = &s

		case auth.RoleStakeholder, auth.RoleAdmin:
			campaignList, err := campaigns.List(ctx)
			if err != nil {
				http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
				return
			}
			adSpaceList, err := adSpaces.List(ctx)
			if err != nil {
				http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
				return
			}
			cs := summarizeCampaigns(campaignList)
			as := summarizeAdSpaces(adSpaceList)
			resp.Campaigns = &cs
			resp.AdSpaces = &as
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleReports returns performance figures. The middleware guarantees
// report:view-own; this handler widens to marketplace-wide data when the
// acting role also holds report:view-all.
func HandleReports(iamService iamAdminService, campaigns repository.CampaignRepository, adSpaces repository.AdSpaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		acting, _ := auth.GetActingRole(ctx)

		viewAll, err := iamService.Authorize(ctx, acting.Role, auth.ObjectTypeReport, auth.ReportViewAll, nil)
		if err != nil {
			http.Error(w, "authorization error", http.StatusInternalServerError)
			return
		}

		var (
			campaignList []models.Campaign
			adSpaceList  []models.AdSpace
		)
		if viewAll {
			campaignList, err = campaigns.List(ctx)
			if err == nil {
				adSpaceList, err = adSpaces.List(ctx)
			}
		} else {
			campaignList, err = campaigns.ListByOwner(ctx, principal.InternalID)
			if err == nil {
				adSpaceList, err = adSpaces.ListByOwner(ctx, principal.InternalID)
			}
		}
		if err != nil {
			http.Error(w, "Failed to load report", http.StatusInternalServerError)
			return
		}

		scope := "own"
		if viewAll {
			scope = "all"
		}
		writeJSON(w, http.StatusOK, ReportResponse{
			Scope:     scope,
			Campaigns: summarizeCampaigns(campaignList),
			AdSpaces:  summarizeAdSpaces(adSpaceList),
		})
	}
}
