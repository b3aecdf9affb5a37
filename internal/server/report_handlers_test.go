package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
)

func seedMarketplace(t *testing.T) (*mockCampaignRepo, *mockAdSpaceRepo) {
	t.Helper()
	campaigns := newMockCampaignRepo()
	adSpaces := newMockAdSpaceRepo()
	now := time.Now()

	for _, c := range []*models.Campaign{
		{ID: "c1", OwnerID: "user-1", Name: "Mine active", Status: models.CampaignStatusActive, BudgetCents: 1000, CreatedAt: now, UpdatedAt: now},
		{ID: "c2", OwnerID: "user-1", Name: "Mine draft", Status: models.CampaignStatusDraft, BudgetCents: 500, CreatedAt: now, UpdatedAt: now},
		{ID: "c3", OwnerID: "user-2", Name: "Theirs", Status: models.CampaignStatusActive, BudgetCents: 2000, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, campaigns.Create(context.Background(), c))
	}
	for _, a := range []*models.AdSpace{
		{ID: "a1", OwnerID: "user-1", Name: "Mine approved", Status: models.AdSpaceStatusApproved, CreatedAt: now, UpdatedAt: now},
		{ID: "a2", OwnerID: "user-2", Name: "Theirs pending", Status: models.AdSpaceStatusPending, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, adSpaces.Create(context.Background(), a))
	}
	return campaigns, adSpaces
}

func TestHandleDashboard(t *testing.T) {
	campaigns, adSpaces := seedMarketplace(t)
	handler := HandleDashboard(campaigns, adSpaces)

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) DashboardResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var resp DashboardResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	t.Run("advertiser gets own campaign figures", func(t *testing.T) {
		req := actingRequest(http.MethodGet, "/dashboard", "", testPrincipal(), auth.RoleAdvertiser)
		rec := httptest.NewRecorder()

		handler(rec, req)

		resp := decode(t, rec)
		assert.Equal(t, "advertiser", resp.Role)
		require.NotNil(t, resp.Campaigns)
		assert.Equal(t, 2, resp.Campaigns.Total)
		assert.Equal(t, 1, resp.Campaigns.Active)
		assert.Equal(t, int64(1500), resp.Campaigns.TotalBudgetCents)
		assert.Nil(t, resp.AdSpaces)
	})

	t.Run("publisher gets own ad space figures", func(t *testing.T) {
		req := actingRequest(http.MethodGet, "/dashboard", "", testPrincipal(), auth.RolePublisher)
		rec := httptest.NewRecorder()

		handler(rec, req)

		resp := decode(t, rec)
		assert.Equal(t, "publisher", resp.Role)
		assert.Nil(t, resp.Campaigns)
		require.NotNil(t, resp.AdSpaces)
		assert.Equal(t, 1, resp.AdSpaces.Total)
		assert.Equal(t, 1, resp.AdSpaces.Approved)
	})

	t.Run("stakeholder gets marketplace-wide figures", func(t *testing.T) {
		req := actingRequest(http.MethodGet, "/dashboard", "", testPrincipal(), auth.RoleStakeholder)
		rec := httptest.NewRecorder()

		handler(rec, req)

		resp := decode(t, rec)
		require.NotNil(t, resp.Campaigns)
		require.NotNil(t, resp.AdSpaces)
		assert.Equal(t, 3, resp.Campaigns.Total)
		assert.Equal(t, int64(3500), resp.Campaigns.TotalBudgetCents)
		assert.Equal(t, 2, resp.AdSpaces.Total)
		assert.Equal(t, 1, resp.AdSpaces.Pending)
	})

	t.Run("viewer gets an empty shell", func(t *testing.T) {
		req := actingRequest(http.MethodGet, "/dashboard", "", testPrincipal(), auth.RoleViewer)
		rec := httptest.NewRecorder()

		handler(rec, req)

		resp := decode(t, rec)
		assert.Equal(t, "viewer", resp.Role)
		assert.Nil(t, resp.Campaigns)
		assert.Nil(t, resp.AdSpaces)
	})

	t.Run("unauthenticated returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleReports(t *testing.T) {
	campaigns, adSpaces := seedMarketplace(t)

	// Authorize answers the single report:view-all check; which role widens
	// the scope is policy data, so the stub just records what was asked.
	newSvc := func(viewAll bool) *stubIAM {
		s := &stubIAM{}
		s.authorizeFn = func(_ context.Context, actingRole auth.Role, obj, act string, _ map[string]interface{}) (bool, error) {
			assert.Equal(t, auth.ObjectTypeReport, obj)
			assert.Equal(t, auth.ReportViewAll, act)
			return viewAll, nil
		}
		return s
	}

	t.Run("own scope without view-all", func(t *testing.T) {
		handler := HandleReports(newSvc(false), campaigns, adSpaces)
		req := actingRequest(http.MethodGet, "/reports", "", testPrincipal(), auth.RoleAdvertiser)
		rec := httptest.NewRecorder()

		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReportResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "own", resp.Scope)
		assert.Equal(t, 2, resp.Campaigns.Total)
		assert.Equal(t, 1, resp.AdSpaces.Total)
	})

	t.Run("all scope with view-all", func(t *testing.T) {
		handler := HandleReports(newSvc(true), campaigns, adSpaces)
		req := actingRequest(http.MethodGet, "/reports", "", testPrincipal(), auth.RoleStakeholder)
		rec := httptest.NewRecorder()

		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReportResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "all", resp.Scope)
		assert.Equal(t, 3, resp.Campaigns.Total)
		assert.Equal(t, 2, resp.AdSpaces.Total)
	})
}
