package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

func (s *stubIAM) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	return s.createUserFn(ctx, email, name, password)
}

func (s *stubIAM) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsersFn(ctx)
}

func (s *stubIAM) DisableUser(ctx context.Context, userID string) error {
	return s.disableUserFn(ctx, userID)
}

func (s *stubIAM) GrantRole(ctx context.Context, userID string, role auth.Role, grantedBy string) error {
	return s.grantRoleFn(ctx, userID, role, grantedBy)
}

func (s *stubIAM) RevokeRole(ctx context.Context, userID string, role auth.Role) error {
	return s.revokeRoleFn(ctx, userID, role)
}

func (s *stubIAM) ListGrantedRoles(ctx context.Context, userID string) ([]auth.Role, error) {
	return s.listGrantedRolesFn(ctx, userID)
}

func (s *stubIAM) CreateOrg(ctx context.Context, name, kind string) (*models.Org, error) {
	return s.createOrgFn(ctx, name, kind)
}

func (s *stubIAM) ListOrgs(ctx context.Context) ([]models.Org, error) {
	return s.listOrgsFn(ctx)
}

func (s *stubIAM) GetOrgByName(ctx context.Context, name string) (*models.Org, error) {
	return s.getOrgByNameFn(ctx, name)
}

func (s *stubIAM) AddOrgMember(ctx context.Context, orgID, userID, addedBy string) error {
	return s.addOrgMemberFn(ctx, orgID, userID, addedBy)
}

func (s *stubIAM) RemoveOrgMember(ctx context.Context, orgID, userID string) error {
	return s.removeOrgMemberFn(ctx, orgID, userID)
}

func (s *stubIAM) ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error) {
	return s.listOrgMembersFn(ctx, orgID)
}

func (s *stubIAM) AssignOrgRole(ctx context.Context, orgName string, role auth.Role, assignedBy string) error {
	return s.assignOrgRoleFn(ctx, orgName, role, assignedBy)
}

func (s *stubIAM) RemoveOrgRole(ctx context.Context, orgName string, role auth.Role) error {
	return s.removeOrgRoleFn(ctx, orgName, role)
}

func (s *stubIAM) ListUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.listUserSessionsFn(ctx, userID)
}

func (s *stubIAM) RevokeAllSessions(ctx context.Context, userID string) error {
	return s.revokeAllSessionsFn(ctx, userID)
}

func (s *stubIAM) RefreshOrgRoleCache(ctx context.Context) error {
	return s.refreshCacheFn(ctx)
}

func (s *stubIAM) GetOrgRoleCacheSnapshot() iam.OrgRoleSnapshot {
	return s.snapshotFn()
}

// adminPrincipal returns an authenticated admin for the admin surface tests.
func adminPrincipal() auth.AuthenticatedPrincipal {
	p := testPrincipal()
	p.Roles = []auth.Role{auth.RoleAdmin, auth.RoleViewer}
	return p
}

// withURLParams attaches chi route parameters the way the router would.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleCreateUser(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		svc := &stubIAM{
			createUserFn: func(_ context.Context, email, name, password string) (*models.User, error) {
				require.Equal(t, "new@example.com", email)
				require.NotEmpty(t, password)
				return &models.User{ID: "user-9", Email: email, Name: name, CreatedAt: time.Now()}, nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/users",
			`{"email":"new@example.com","name":"New User","password":"hunter22"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCreateUser(svc)(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp AdminUserResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "user-9", resp.ID)
		assert.False(t, resp.Disabled)
	})

	t.Run("service rejection returns 400", func(t *testing.T) {
		svc := &stubIAM{
			createUserFn: func(_ context.Context, _, _, _ string) (*models.User, error) {
				return nil, errors.New("email already exists")
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/users",
			`{"email":"dup@example.com","password":"x"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCreateUser(svc)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "email already exists")
	})
}

func TestHandleListUsers(t *testing.T) {
	lastLogin := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	disabledAt := time.Now()
	svc := &stubIAM{
		listUsersFn: func(_ context.Context) ([]models.User, error) {
			return []models.User{
				{ID: "user-1", Email: "amy@example.com", LastLoginAt: &lastLogin, CreatedAt: time.Now()},
				{ID: "user-2", Email: "bob@example.com", DisabledAt: &disabledAt, CreatedAt: time.Now()},
			}, nil
		},
	}

	req := requestWithPrincipal(http.MethodGet, "/admin/users", "", adminPrincipal())
	rec := httptest.NewRecorder()

	HandleListUsers(svc)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []AdminUserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out, 2)
	require.NotNil(t, out[0].LastLoginAt)
	assert.Equal(t, lastLogin.UnixMilli(), *out[0].LastLoginAt)
	assert.False(t, out[0].Disabled)
	assert.True(t, out[1].Disabled)
}

func TestHandleDisableUser(t *testing.T) {
	t.Run("disables and returns 204", func(t *testing.T) {
		var disabled string
		svc := &stubIAM{
			disableUserFn: func(_ context.Context, userID string) error {
				disabled = userID
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/users/user-2/disable", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"userID": "user-2"})
		rec := httptest.NewRecorder()

		HandleDisableUser(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-2", disabled)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		svc := &stubIAM{
			disableUserFn: func(_ context.Context, _ string) error {
				return repository.ErrNotFound
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/users/ghost/disable", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"userID": "ghost"})
		rec := httptest.NewRecorder()

		HandleDisableUser(svc)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleGrantRole(t *testing.T) {
	t.Run("grants role with caller attribution", func(t *testing.T) {
		var gotUser, gotBy string
		var gotRole auth.Role
		svc := &stubIAM{
			grantRoleFn: func(_ context.Context, userID string, role auth.Role, grantedBy string) error {
				gotUser, gotRole, gotBy = userID, role, grantedBy
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/grants",
			`{"user_id":"user-2","role":"publisher"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleGrantRole(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-2", gotUser)
		assert.Equal(t, auth.RolePublisher, gotRole)
		assert.Equal(t, "user-1", gotBy)
	})

	t.Run("unknown role returns 400", func(t *testing.T) {
		req := requestWithPrincipal(http.MethodPost, "/admin/grants",
			`{"user_id":"user-2","role":"superuser"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleGrantRole(&stubIAM{})(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		svc := &stubIAM{
			grantRoleFn: func(_ context.Context, _ string, _ auth.Role, _ string) error {
				return repository.ErrNotFound
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/grants",
			`{"user_id":"ghost","role":"publisher"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleGrantRole(svc)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleRevokeRole(t *testing.T) {
	var gotUser string
	var gotRole auth.Role
	svc := &stubIAM{
		revokeRoleFn: func(_ context.Context, userID string, role auth.Role) error {
			gotUser, gotRole = userID, role
			return nil
		},
	}
	req := requestWithPrincipal(http.MethodPost, "/admin/grants/revoke",
		`{"user_id":"user-2","role":"advertiser"}`, adminPrincipal())
	rec := httptest.NewRecorder()

	HandleRevokeRole(svc)(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-2", gotUser)
	assert.Equal(t, auth.RoleAdvertiser, gotRole)
}

func TestHandleListGrants(t *testing.T) {
	svc := &stubIAM{
		listGrantedRolesFn: func(_ context.Context, userID string) ([]auth.Role, error) {
			require.Equal(t, "user-2", userID)
			return []auth.Role{auth.RoleAdvertiser, auth.RoleStakeholder}, nil
		},
	}
	req := requestWithPrincipal(http.MethodGet, "/admin/grants/user-2", "", adminPrincipal())
	req = withURLParams(req, map[string]string{"userID": "user-2"})
	rec := httptest.NewRecorder()

	HandleListGrants(svc)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"advertiser", "stakeholder"}, resp["roles"])
}

func TestHandleCreateOrg(t *testing.T) {
	t.Run("creates org", func(t *testing.T) {
		svc := &stubIAM{
			createOrgFn: func(_ context.Context, name, kind string) (*models.Org, error) {
				return &models.Org{ID: "org-1", Name: name, Kind: kind, CreatedAt: time.Now()}, nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/orgs",
			`{"name":"acme","kind":"advertiser"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCreateOrg(svc)(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp OrgResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "acme", resp.Name)
		assert.Equal(t, "advertiser", resp.Kind)
	})

	t.Run("invalid kind returns 400", func(t *testing.T) {
		svc := &stubIAM{
			createOrgFn: func(_ context.Context, _, _ string) (*models.Org, error) {
				return nil, errors.New("invalid org kind")
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/orgs",
			`{"name":"acme","kind":"network"}`, adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCreateOrg(svc)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleOrgMembers(t *testing.T) {
	org := &models.Org{ID: "org-1", Name: "acme", Kind: models.OrgKindAdvertiser}

	t.Run("add member resolves org by name", func(t *testing.T) {
		var gotOrgID, gotUserID, gotAddedBy string
		svc := &stubIAM{
			getOrgByNameFn: func(_ context.Context, name string) (*models.Org, error) {
				require.Equal(t, "acme", name)
				return org, nil
			},
			addOrgMemberFn: func(_ context.Context, orgID, userID, addedBy string) error {
				gotOrgID, gotUserID, gotAddedBy = orgID, userID, addedBy
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/orgs/acme/members",
			`{"user_id":"user-2"}`, adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme"})
		rec := httptest.NewRecorder()

		HandleAddOrgMember(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "org-1", gotOrgID)
		assert.Equal(t, "user-2", gotUserID)
		assert.Equal(t, "user-1", gotAddedBy)
	})

	t.Run("unknown org returns 404", func(t *testing.T) {
		svc := &stubIAM{
			getOrgByNameFn: func(_ context.Context, _ string) (*models.Org, error) {
				return nil, repository.ErrNotFound
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/orgs/ghost/members",
			`{"user_id":"user-2"}`, adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "ghost"})
		rec := httptest.NewRecorder()

		HandleAddOrgMember(svc)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Org not found")
	})

	t.Run("list members", func(t *testing.T) {
		added := time.Now().Truncate(time.Millisecond)
		svc := &stubIAM{
			getOrgByNameFn: func(_ context.Context, _ string) (*models.Org, error) {
				return org, nil
			},
			listOrgMembersFn: func(_ context.Context, orgID string) ([]models.OrgMembership, error) {
				require.Equal(t, "org-1", orgID)
				return []models.OrgMembership{
					{ID: "m1", OrgID: orgID, UserID: "user-2", AddedAt: added, AddedBy: "user-1"},
				}, nil
			},
		}
		req := requestWithPrincipal(http.MethodGet, "/admin/orgs/acme/members", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme"})
		rec := httptest.NewRecorder()

		HandleListOrgMembers(svc)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var out []OrgMemberResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
		require.Len(t, out, 1)
		assert.Equal(t, "user-2", out[0].UserID)
		assert.Equal(t, added.UnixMilli(), out[0].AddedAt)
	})

	t.Run("remove member", func(t *testing.T) {
		var removed string
		svc := &stubIAM{
			getOrgByNameFn: func(_ context.Context, _ string) (*models.Org, error) {
				return org, nil
			},
			removeOrgMemberFn: func(_ context.Context, orgID, userID string) error {
				require.Equal(t, "org-1", orgID)
				removed = userID
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodDelete, "/admin/orgs/acme/members/user-2", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme", "userID": "user-2"})
		rec := httptest.NewRecorder()

		HandleRemoveOrgMember(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-2", removed)
	})
}

func TestHandleOrgRoles(t *testing.T) {
	t.Run("assign extra role", func(t *testing.T) {
		var gotOrg string
		var gotRole auth.Role
		svc := &stubIAM{
			assignOrgRoleFn: func(_ context.Context, orgName string, role auth.Role, assignedBy string) error {
				gotOrg, gotRole = orgName, role
				require.Equal(t, "user-1", assignedBy)
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/orgs/acme/roles",
			`{"role":"stakeholder"}`, adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme"})
		rec := httptest.NewRecorder()

		HandleAssignOrgRole(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "acme", gotOrg)
		assert.Equal(t, auth.RoleStakeholder, gotRole)
	})

	t.Run("remove extra role", func(t *testing.T) {
		var gotRole auth.Role
		svc := &stubIAM{
			removeOrgRoleFn: func(_ context.Context, orgName string, role auth.Role) error {
				require.Equal(t, "acme", orgName)
				gotRole = role
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodDelete, "/admin/orgs/acme/roles/stakeholder", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme", "role": "stakeholder"})
		rec := httptest.NewRecorder()

		HandleRemoveOrgRole(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, auth.RoleStakeholder, gotRole)
	})

	t.Run("unknown role returns 400", func(t *testing.T) {
		req := requestWithPrincipal(http.MethodDelete, "/admin/orgs/acme/roles/superuser", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"orgName": "acme", "role": "superuser"})
		rec := httptest.NewRecorder()

		HandleRemoveOrgRole(&stubIAM{})(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleSessionsAdmin(t *testing.T) {
	t.Run("list user sessions", func(t *testing.T) {
		expires := time.Now().Add(time.Hour).Truncate(time.Millisecond)
		svc := &stubIAM{
			listUserSessionsFn: func(_ context.Context, userID string) ([]models.Session, error) {
				require.Equal(t, "user-2", userID)
				return []models.Session{
					{ID: "sess-9", UserID: userID, ActiveRole: "publisher", ExpiresAt: expires},
				}, nil
			},
		}
		req := requestWithPrincipal(http.MethodGet, "/admin/users/user-2/sessions", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"userID": "user-2"})
		rec := httptest.NewRecorder()

		HandleListUserSessions(svc)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var out []SessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
		require.Len(t, out, 1)
		assert.Equal(t, "sess-9", out[0].ID)
		assert.Equal(t, "publisher", out[0].ActiveRole)
	})

	t.Run("revoke single session", func(t *testing.T) {
		var revoked string
		svc := &stubIAM{
			revokeSessionFn: func(_ context.Context, sessionID string) error {
				revoked = sessionID
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodDelete, "/admin/sessions/sess-9", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"sessionID": "sess-9"})
		rec := httptest.NewRecorder()

		HandleRevokeSession(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "sess-9", revoked)
	})

	t.Run("revoke unknown session returns 404", func(t *testing.T) {
		svc := &stubIAM{
			revokeSessionFn: func(_ context.Context, _ string) error {
				return repository.ErrNotFound
			},
		}
		req := requestWithPrincipal(http.MethodDelete, "/admin/sessions/ghost", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"sessionID": "ghost"})
		rec := httptest.NewRecorder()

		HandleRevokeSession(svc)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("revoke all sessions for user", func(t *testing.T) {
		var revoked string
		svc := &stubIAM{
			revokeAllSessionsFn: func(_ context.Context, userID string) error {
				revoked = userID
				return nil
			},
		}
		req := requestWithPrincipal(http.MethodDelete, "/admin/users/user-2/sessions", "", adminPrincipal())
		req = withURLParams(req, map[string]string{"userID": "user-2"})
		rec := httptest.NewRecorder()

		HandleRevokeUserSessions(svc)(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-2", revoked)
	})
}

func TestHandleCacheEndpoints(t *testing.T) {
	snapshot := iam.OrgRoleSnapshot{
		Mappings:  map[string][]auth.Role{"acme": {auth.RoleStakeholder}},
		CreatedAt: time.Now(),
		Version:   3,
	}

	t.Run("refresh reports new snapshot", func(t *testing.T) {
		refreshed := false
		svc := &stubIAM{
			refreshCacheFn: func(_ context.Context) error {
				refreshed = true
				return nil
			},
			snapshotFn: func() iam.OrgRoleSnapshot { return snapshot },
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/cache/refresh", "", adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCacheRefresh(svc)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, refreshed)

		var resp map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "success", resp["status"])
		assert.EqualValues(t, 3, resp["version"])
		assert.EqualValues(t, 1, resp["orgs"])
	})

	t.Run("refresh failure returns 500", func(t *testing.T) {
		svc := &stubIAM{
			refreshCacheFn: func(_ context.Context) error {
				return errors.New("db down")
			},
		}
		req := requestWithPrincipal(http.MethodPost, "/admin/cache/refresh", "", adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCacheRefresh(svc)(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("snapshot lists mappings", func(t *testing.T) {
		svc := &stubIAM{
			snapshotFn: func() iam.OrgRoleSnapshot { return snapshot },
		}
		req := requestWithPrincipal(http.MethodGet, "/admin/cache", "", adminPrincipal())
		rec := httptest.NewRecorder()

		HandleCacheSnapshot(svc)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Version  int                 `json:"version"`
			Mappings map[string][]string `json:"mappings"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 3, resp.Version)
		assert.Equal(t, []string{"stakeholder"}, resp.Mappings["acme"])
	})
}
