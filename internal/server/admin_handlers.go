package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
)

// CreateUserRequest represents the body of POST /admin/users
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AdminUserResponse represents user records on the admin surface
type AdminUserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Disabled    bool   `json:"disabled"`
	IsTest      bool   `json:"is_test,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	LastLoginAt *int64 `json:"last_login_at,omitempty"`
}

func adminUserResponse(u *models.User) AdminUserResponse {
	resp := AdminUserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Disabled:  u.Disabled(),
		IsTest:    u.IsTest,
		CreatedAt: u.CreatedAt.UnixMilli(),
	}
	if u.LastLoginAt != nil {
		ms := u.LastLoginAt.UnixMilli()
		resp.LastLoginAt = &ms
	}
	return resp
}

// HandleCreateUser creates a marketplace user.
func HandleCreateUser(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		user, err := iamService.CreateUser(r.Context(), req.Email, req.Name, req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, adminUserResponse(user))
	}
}

// HandleListUsers returns all marketplace users.
func HandleListUsers(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := iamService.ListUsers(r.Context())
		if err != nil {
			http.Error(w, "Failed to list users", http.StatusInternalServerError)
			return
		}

		out := make([]AdminUserResponse, 0, len(users))
		for i := range users {
			out = append(out, adminUserResponse(&users[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleDisableUser disables an account and revokes all of its sessions.
func HandleDisableUser(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		if err := iamService.DisableUser(r.Context(), userID); err != nil {
			notFoundOr500(w, err, "User not found")
			return
		}

		principal, _ := auth.GetUserFromContext(r.Context())
		log.Printf("user %s disabled by %s", userID, principal.InternalID)

		w.WriteHeader(http.StatusNoContent)
	}
}

// GrantRequest represents the body of POST /admin/grants and /admin/grants/revoke
type GrantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// HandleGrantRole grants a role to a user.
func HandleGrantRole(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		role, err := auth.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		principal, _ := auth.GetUserFromContext(r.Context())
		if err := iamService.GrantRole(r.Context(), req.UserID, role, principal.InternalID); err != nil {
			if errors.Is(err, iam.ErrInvalidRole) {
				http.Error(w, "Unknown role", http.StatusBadRequest)
				return
			}
			notFoundOr500(w, err, "User not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRevokeRole removes a role grant from a user.
func HandleRevokeRole(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		role, err := auth.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		if err := iamService.RevokeRole(r.Context(), req.UserID, role); err != nil {
			notFoundOr500(w, err, "Grant not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListGrants returns a user's explicit role grants.
func HandleListGrants(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		roles, err := iamService.ListGrantedRoles(r.Context(), userID)
		if err != nil {
			http.Error(w, "Failed to list grants", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string][]string{"roles": roleNames(roles)})
	}
}

// CreateOrgRequest represents the body of POST /admin/orgs
type CreateOrgRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // advertiser | publisher
}

// OrgResponse represents org data in API responses
type OrgResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	CreatedAt int64  `json:"created_at"`
}

func orgResponse(o *models.Org) OrgResponse {
	return OrgResponse{
		ID:        o.ID,
		Name:      o.Name,
		Kind:      o.Kind,
		CreatedAt: o.CreatedAt.UnixMilli(),
	}
}

// HandleCreateOrg creates an advertiser or publisher org.
func HandleCreateOrg(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		org, err := iamService.CreateOrg(r.Context(), req.Name, req.Kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, orgResponse(org))
	}
}

// HandleListOrgs returns all orgs.
func HandleListOrgs(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgs, err := iamService.ListOrgs(r.Context())
		if err != nil {
			http.Error(w, "Failed to list orgs", http.StatusInternalServerError)
			return
		}

		out := make([]OrgResponse, 0, len(orgs))
		for i := range orgs {
			out = append(out, orgResponse(&orgs[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// OrgMemberRequest represents the body of POST /admin/orgs/{orgName}/members
type OrgMemberRequest struct {
	UserID string `json:"user_id"`
}

// HandleAddOrgMember adds a user to an org.
func HandleAddOrgMember(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgName := chi.URLParam(r, "orgName")

		var req OrgMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		org, err := iamService.GetOrgByName(r.Context(), orgName)
		if err != nil {
			notFoundOr500(w, err, "Org not found")
			return
		}

		principal, _ := auth.GetUserFromContext(r.Context())
		if err := iamService.AddOrgMember(r.Context(), org.ID, req.UserID, principal.InternalID); err != nil {
			notFoundOr500(w, err, "User not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRemoveOrgMember removes a user from an org.
func HandleRemoveOrgMember(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgName := chi.URLParam(r, "orgName")
		userID := chi.URLParam(r, "userID")

		org, err := iamService.GetOrgByName(r.Context(), orgName)
		if err != nil {
			notFoundOr500(w, err, "Org not found")
			return
		}

		if err := iamService.RemoveOrgMember(r.Context(), org.ID, userID); err != nil {
			notFoundOr500(w, err, "Membership not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// OrgMemberResponse represents an org membership in API responses
type OrgMemberResponse struct {
	UserID  string `json:"user_id"`
	AddedAt int64  `json:"added_at"`
	AddedBy string `json:"added_by"`
}

// HandleListOrgMembers returns all memberships for an org.
func HandleListOrgMembers(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgName := chi.URLParam(r, "orgName")

		org, err := iamService.GetOrgByName(r.Context(), orgName)
		if err != nil {
			notFoundOr500(w, err, "Org not found")
			return
		}

		members, err := iamService.ListOrgMembers(r.Context(), org.ID)
		if err != nil {
			http.Error(w, "Failed to list members", http.StatusInternalServerError)
			return
		}

		out := make([]OrgMemberResponse, 0, len(members))
		for i := range members {
			out = append(out, OrgMemberResponse{
				UserID:  members[i].UserID,
				AddedAt: members[i].AddedAt.UnixMilli(),
				AddedBy: members[i].AddedBy,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// OrgRoleRequest represents the body of POST /admin/orgs/{orgName}/roles
type OrgRoleRequest struct {
	Role string `json:"role"`
}

// HandleAssignOrgRole attaches an extra role to every member of an org.
func HandleAssignOrgRole(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgName := chi.URLParam(r, "orgName")

		var req OrgRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		role, err := auth.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		principal, _ := auth.GetUserFromContext(r.Context())
		if err := iamService.AssignOrgRole(r.Context(), orgName, role, principal.InternalID); err != nil {
			notFoundOr500(w, err, "Org not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRemoveOrgRole detaches an extra role from an org.
func HandleRemoveOrgRole(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgName := chi.URLParam(r, "orgName")

		role, err := auth.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		if err := iamService.RemoveOrgRole(r.Context(), orgName, role); err != nil {
			notFoundOr500(w, err, "Mapping not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListUserSessions returns all sessions for a user.
func HandleListUserSessions(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		sessions, err := iamService.ListUserSessions(r.Context(), userID)
		if err != nil {
			http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
			return
		}

		out := make([]SessionResponse, 0, len(sessions))
		for i := range sessions {
			out = append(out, SessionResponse{
				ID:         sessions[i].ID,
				ActiveRole: sessions[i].ActiveRole,
				ExpiresAt:  sessions[i].ExpiresAt.UnixMilli(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleRevokeSession revokes a single session by ID.
func HandleRevokeSession(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		if err := iamService.RevokeSession(r.Context(), sessionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to revoke session", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRevokeUserSessions revokes every session belonging to a user.
func HandleRevokeUserSessions(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		if err := iamService.RevokeAllSessions(r.Context(), userID); err != nil {
			http.Error(w, "Failed to revoke sessions", http.StatusInternalServerError)
			return
		}

		principal, _ := auth.GetUserFromContext(r.Context())
		log.Printf("all sessions for user %s revoked by %s", userID, principal.InternalID)

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleCacheRefresh handles POST /admin/cache/refresh
// Manually triggers a refresh of the org→role cache
//
// Authorization: enforced by the authz middleware (admin:cache-refresh)
// Response: JSON with cache version, org count, and timestamp
func HandleCacheRefresh(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := iamService.RefreshOrgRoleCache(ctx); err != nil {
			log.Printf("ERROR: Manual cache refresh failed: %v", err)
			http.Error(w, "Cache refresh failed", http.StatusInternalServerError)
			return
		}

		snapshot := iamService.GetOrgRoleCacheSnapshot()

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "success",
			"version":   snapshot.Version,
			"orgs":      len(snapshot.Mappings),
			"timestamp": snapshot.CreatedAt.Unix(),
		})

		principal, _ := auth.GetUserFromContext(ctx)
		log.Printf("INFO: Manual cache refresh triggered by %s (version=%d, orgs=%d)",
			principal.PrincipalID, snapshot.Version, len(snapshot.Mappings))
	}
}

// HandleCacheSnapshot returns the current org→role cache contents.
func HandleCacheSnapshot(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := iamService.GetOrgRoleCacheSnapshot()

		mappings := make(map[string][]string, len(snapshot.Mappings))
		for org, roles := range snapshot.Mappings {
			mappings[org] = roleNames(roles)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"version":    snapshot.Version,
			"created_at": snapshot.CreatedAt.Unix(),
			"mappings":   mappings,
		})
	}
}
