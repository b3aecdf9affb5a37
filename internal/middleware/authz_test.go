package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

func TestClassifyRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		matched  bool
		methodOK bool
		obj      string
		act      string
		kind     resourceKind
		id       string
	}{
		{"dashboard", http.MethodGet, "/dashboard", true, true, auth.ObjectTypeDashboard, auth.DashboardView, resourceNone, ""},
		{"dashboard wrong method", http.MethodPost, "/dashboard", true, false, "", "", resourceNone, ""},

		{"campaign create", http.MethodPost, "/campaigns", true, true, auth.ObjectTypeCampaign, auth.CampaignCreate, resourceNone, ""},
		{"campaign list", http.MethodGet, "/campaigns", true, true, auth.ObjectTypeCampaign, auth.CampaignList, resourceNone, ""},
		{"campaign read", http.MethodGet, "/campaigns/c-1", true, true, auth.ObjectTypeCampaign, auth.CampaignRead, resourceCampaign, "c-1"},
		{"campaign update", http.MethodPut, "/campaigns/c-1", true, true, auth.ObjectTypeCampaign, auth.CampaignUpdate, resourceCampaign, "c-1"},
		{"campaign patch", http.MethodPatch, "/campaigns/c-1", true, true, auth.ObjectTypeCampaign, auth.CampaignUpdate, resourceCampaign, "c-1"},
		{"campaign archive", http.MethodDelete, "/campaigns/c-1", true, true, auth.ObjectTypeCampaign, auth.CampaignArchive, resourceCampaign, "c-1"},
		{"campaign bad method", http.MethodDelete, "/campaigns", true, false, "", "", resourceNone, ""},

		{"adspace create", http.MethodPost, "/adspaces", true, true, auth.ObjectTypeAdSpace, auth.AdSpaceCreate, resourceNone, ""},
		{"adspace read", http.MethodGet, "/adspaces/a-1", true, true, auth.ObjectTypeAdSpace, auth.AdSpaceRead, resourceAdSpace, "a-1"},

		{"reports", http.MethodGet, "/reports", true, true, auth.ObjectTypeReport, auth.ReportViewOwn, resourceNone, ""},

		{"whoami", http.MethodGet, "/auth/whoami", true, true, auth.ObjectTypeAccount, auth.AccountReadSelf, resourceNone, ""},
		{"role read", http.MethodGet, "/auth/role", true, true, auth.ObjectTypeAccount, auth.AccountReadSelf, resourceNone, ""},
		{"role switch", http.MethodPost, "/auth/role/switch", true, true, auth.ObjectTypeAccount, auth.AccountUpdateSelf, resourceNone, ""},
		{"preference get", http.MethodGet, "/auth/preference", true, true, auth.ObjectTypeAccount, auth.AccountReadSelf, resourceNone, ""},
		{"preference put", http.MethodPut, "/auth/preference", true, true, auth.ObjectTypeAccount, auth.AccountUpdateSelf, resourceNone, ""},
		{"preference delete", http.MethodDelete, "/auth/preference", true, true, auth.ObjectTypeAccount, auth.AccountUpdateSelf, resourceNone, ""},

		{"admin users", http.MethodPost, "/admin/users", true, true, auth.ObjectTypeAdmin, auth.AdminUserManage, resourceNone, ""},
		{"admin grants", http.MethodPost, "/admin/grants", true, true, auth.ObjectTypeAdmin, auth.AdminRoleGrant, resourceNone, ""},
		{"admin orgs nested", http.MethodPost, "/admin/orgs/acme/members", true, true, auth.ObjectTypeAdmin, auth.AdminOrgManage, resourceNone, ""},
		{"admin sessions", http.MethodDelete, "/admin/sessions/sess-1", true, true, auth.ObjectTypeAdmin, auth.AdminSessionRevoke, resourceNone, ""},
		{"admin cache", http.MethodPost, "/admin/cache/refresh", true, true, auth.ObjectTypeAdmin, auth.AdminCacheRefresh, resourceNone, ""},
		{"admin unknown section", http.MethodGet, "/admin/other", false, false, "", "", resourceNone, ""},

		// Deliberately unmatched: public or self-enforcing handlers.
		{"login", http.MethodPost, "/auth/login", false, false, "", "", resourceNone, ""},
		{"logout", http.MethodPost, "/auth/logout", false, false, "", "", resourceNone, ""},
		{"token", http.MethodPost, "/auth/token", false, false, "", "", resourceNone, ""},
		{"healthz", http.MethodGet, "/healthz", false, false, "", "", resourceNone, ""},
		{"root", http.MethodGet, "/", false, false, "", "", resourceNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			req, matched := classifyRequest(r)

			if matched != tt.matched {
				t.Fatalf("matched = %v, want %v", matched, tt.matched)
			}
			if !matched {
				return
			}
			if req.methodOK != tt.methodOK {
				t.Fatalf("methodOK = %v, want %v", req.methodOK, tt.methodOK)
			}
			if !req.methodOK {
				return
			}
			if req.obj != tt.obj || req.act != tt.act {
				t.Errorf("capability = (%s, %s), want (%s, %s)", req.obj, req.act, tt.obj, tt.act)
			}
			if req.kind != tt.kind || req.id != tt.id {
				t.Errorf("resource = (%d, %q), want (%d, %q)", req.kind, req.id, tt.kind, tt.id)
			}
		})
	}
}

// stubIAM overrides just the methods the middleware touches. The rest of the
// interface panics if reached, which is what we want in these tests.
type stubIAM struct {
	iam.Service

	allow     bool
	lastObj   string
	lastAct   string
	lastAttrs map[string]interface{}
}

func (s *stubIAM) Authorize(_ context.Context, _ auth.Role, obj, act string, attrs map[string]interface{}) (bool, error) {
	s.lastObj, s.lastAct, s.lastAttrs = obj, act, attrs
	return s.allow, nil
}

type stubCampaignRepo struct {
	repository.CampaignRepository
	campaigns map[string]*models.Campaign
}

func (s *stubCampaignRepo) GetByID(_ context.Context, id string) (*models.Campaign, error) {
	if c, ok := s.campaigns[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

type stubAdSpaceRepo struct {
	repository.AdSpaceRepository
	adSpaces map[string]*models.AdSpace
}

func (s *stubAdSpaceRepo) GetByID(_ context.Context, id string) (*models.AdSpace, error) {
	if a, ok := s.adSpaces[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func newAuthzHandler(t *testing.T, svc iam.Service, campaigns repository.CampaignRepository, adSpaces repository.AdSpaceRepository, next http.Handler) http.Handler {
	t.Helper()

	mw, err := NewAuthzMiddleware(AuthzDependencies{IAM: svc, Campaigns: campaigns, AdSpaces: adSpaces})
	if err != nil {
		t.Fatalf("NewAuthzMiddleware failed: %v", err)
	}
	return mw(next)
}

func authedRequest(method, path string, userID string, role auth.Role) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	ctx := auth.SetUserContext(r.Context(), auth.AuthenticatedPrincipal{
		Subject:     userID,
		PrincipalID: auth.UserID(userID),
		InternalID:  userID,
		Roles:       []auth.Role{auth.RoleViewer, role},
	})
	ctx = auth.SetActingRole(ctx, auth.ActingRole{Role: role, Source: "default"})
	return r.WithContext(ctx)
}

func TestAuthzMiddlewareLoadsResourceAttrs(t *testing.T) {
	svc := &stubIAM{allow: true}
	campaigns := &stubCampaignRepo{campaigns: map[string]*models.Campaign{
		"c-1": {ID: "c-1", OwnerID: "user-1", Status: "active"},
	}}
	adSpaces := &stubAdSpaceRepo{}

	var loaded *models.Campaign
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loaded, _ = CampaignFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := newAuthzHandler(t, svc, campaigns, adSpaces, next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/campaigns/c-1", "user-1", auth.RoleAdvertiser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastObj != "campaign" || svc.lastAct != "campaign:read" {
		t.Errorf("authorize called with (%s, %s)", svc.lastObj, svc.lastAct)
	}
	if svc.lastAttrs["own"] != "true" || svc.lastAttrs["status"] != "active" {
		t.Errorf("attrs = %v", svc.lastAttrs)
	}
	if loaded == nil || loaded.ID != "c-1" {
		t.Error("handler should receive the preloaded campaign")
	}
}

func TestAuthzMiddlewareNotOwner(t *testing.T) {
	svc := &stubIAM{allow: true}
	campaigns := &stubCampaignRepo{campaigns: map[string]*models.Campaign{
		"c-1": {ID: "c-1", OwnerID: "someone-else", Status: "active"},
	}}
	handler := newAuthzHandler(t, svc, campaigns, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/campaigns/c-1", "user-1", auth.RoleAdvertiser))

	if svc.lastAttrs["own"] != "false" {
		t.Errorf("attrs = %v, want own=false", svc.lastAttrs)
	}
}

func TestAuthzMiddlewareMissingResource(t *testing.T) {
	handler := newAuthzHandler(t, &stubIAM{allow: true}, &stubCampaignRepo{}, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/campaigns/missing", "user-1", auth.RoleAdvertiser))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthzMiddlewareDenied(t *testing.T) {
	handler := newAuthzHandler(t, &stubIAM{allow: false}, &stubCampaignRepo{}, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/campaigns", "user-1", auth.RoleViewer))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAuthzMiddlewareUnauthenticated(t *testing.T) {
	handler := newAuthzHandler(t, &stubIAM{allow: true}, &stubCampaignRepo{}, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthzMiddlewareUnmatchedPassesThrough(t *testing.T) {
	called := false
	handler := newAuthzHandler(t, &stubIAM{allow: false}, &stubCampaignRepo{}, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	if !called {
		t.Error("login should pass through without authorization")
	}
}

func TestAuthzMiddlewareMethodNotAllowed(t *testing.T) {
	handler := newAuthzHandler(t, &stubIAM{allow: true}, &stubCampaignRepo{}, &stubAdSpaceRepo{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/campaigns", "user-1", auth.RoleAdmin))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
