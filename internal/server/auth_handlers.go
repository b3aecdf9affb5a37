package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

// LoginRequest represents credentials for password authentication
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data in API responses
type UserResponse struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// SessionResponse represents session data in API responses
type SessionResponse struct {
	ID         string `json:"id"`
	ActiveRole string `json:"active_role,omitempty"`
	ExpiresAt  int64  `json:"expires_at"`
}

// LoginResponse represents the response from POST /auth/login
type LoginResponse struct {
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// WhoamiResponse represents the response from GET /auth/whoami
type WhoamiResponse struct {
	User       UserResponse     `json:"user"`
	ActingRole string           `json:"acting_role"`
	RoleSource string           `json:"role_source"`
	Session    *SessionResponse `json:"session,omitempty"`
	TestMode   bool             `json:"test_mode,omitempty"`
}

// RoleResponse represents the response from the role endpoints
type RoleResponse struct {
	ActingRole     string   `json:"acting_role"`
	RoleSource     string   `json:"role_source"`
	AvailableRoles []string `json:"available_roles"`
}

// TokenResponse represents the response from POST /auth/token
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

func roleNames(roles []auth.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return names
}

func sessionCookie(value string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HandleLogin authenticates users with email/password and establishes a session
func HandleLogin(iamService iamAdminService, cfg *config.Config) http.HandlerFunc {
	secureCookies := cfg != nil && cfg.Auth.SecureCookies
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Email == "" || req.Password == "" {
			http.Error(w, "Missing email or password", http.StatusBadRequest)
			return
		}

		session, token, err := iamService.Login(ctx, req.Email, req.Password, r.UserAgent(), r.RemoteAddr)
		if err != nil {
			switch {
			case errors.Is(err, iam.ErrInvalidCredentials):
				http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			case errors.Is(err, iam.ErrUserDisabled):
				http.Error(w, "Account disabled", http.StatusForbidden)
			default:
				log.Printf("login failed for %s: %v", req.Email, err)
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
			}
			return
		}

		user, err := iamService.GetUserByID(ctx, session.UserID)
		if err != nil {
			http.Error(w, "User not found", http.StatusInternalServerError)
			return
		}

		roles, err := iamService.ResolveRoles(ctx, user.ID, nil)
		if err != nil {
			roles = []auth.Role{auth.RoleViewer}
		}

		http.SetCookie(w, sessionCookie(token, session.ExpiresAt, secureCookies))

		writeJSON(w, http.StatusOK, LoginResponse{
			User: UserResponse{
				ID:    user.ID,
				Email: user.Email,
				Name:  user.Name,
				Roles: roleNames(roles),
			},
			Session: SessionResponse{
				ID:         session.ID,
				ActiveRole: session.ActiveRole,
				ExpiresAt:  session.ExpiresAt.UnixMilli(),
			},
		})
	}
}

// HandleLogout revokes the caller's session and clears the cookie.
func HandleLogout(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "No active session", http.StatusUnauthorized)
			return
		}

		// Bearer-only callers have no session row to revoke; their tokens
		// expire on their own or get denylisted through the admin surface.
		if principal.SessionID == "" {
			http.Error(w, "No active session", http.StatusBadRequest)
			return
		}

		if err := iamService.RevokeSession(r.Context(), principal.SessionID); err != nil {
			http.Error(w, "Failed to revoke session", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, sessionCookie("", time.Unix(0, 0), false))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Logged out"))
	}
}

// HandleWhoAmI returns the authenticated user's identity, roles, acting role,
// and session metadata
func HandleWhoAmI(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		acting, _ := auth.GetActingRole(ctx)

		resp := WhoamiResponse{
			User: UserResponse{
				ID:    principal.InternalID,
				Email: principal.Email,
				Name:  principal.Name,
				Roles: roleNames(principal.Roles),
			},
			ActingRole: string(acting.Role),
			RoleSource: acting.Source,
			TestMode:   principal.TestMode,
		}

		if principal.SessionID != "" {
			session, err := iamService.GetSessionByID(ctx, principal.SessionID)
			if err == nil {
				resp.Session = &SessionResponse{
					ID:         session.ID,
					ActiveRole: session.ActiveRole,
					ExpiresAt:  session.ExpiresAt.UnixMilli(),
				}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleIssueToken mints a short-lived bearer token for the authenticated user.
// Cookie-authenticated dashboard users call this to obtain API credentials.
func HandleIssueToken(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		issued, err := iamService.IssueToken(r.Context(), principal.InternalID)
		if err != nil {
			if errors.Is(err, iam.ErrUserDisabled) {
				http.Error(w, "Account disabled", http.StatusForbidden)
				return
			}
			log.Printf("token issue failed for %s: %v", principal.InternalID, err)
			http.Error(w, "Failed to issue token", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, TokenResponse{
			Token:     issued.Token,
			TokenType: "Bearer",
			ExpiresAt: issued.ExpiresAt.UnixMilli(),
		})
	}
}

// HandleGetRole returns the caller's current acting role and the roles
// available to switch to. Both were resolved by the middleware chain.
func HandleGetRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		acting, ok := auth.GetActingRole(ctx)
		if !ok {
			http.Error(w, "acting role not resolved", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, RoleResponse{
			ActingRole:     string(acting.Role),
			RoleSource:     acting.Source,
			AvailableRoles: roleNames(principal.Roles),
		})
	}
}

// SwitchRoleRequest represents the body of POST /auth/role/switch
type SwitchRoleRequest struct {
	Role string `json:"role"`
}

// HandleSwitchRole changes the caller's acting role. The new role is
// persisted on the session and as the user's preference, so it survives
// both the request and the session.
func HandleSwitchRole(iamService iamAdminService, metrics *telemetry.ServerMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		var req SwitchRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		target, err := auth.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		err = iamService.SwitchRole(ctx, &principal, target)
		if metrics != nil {
			metrics.RecordRoleSwitch(ctx, req.Role, err == nil)
		}
		if err != nil {
			switch {
			case errors.Is(err, iam.ErrInvalidRole):
				http.Error(w, "Unknown role", http.StatusBadRequest)
			case errors.Is(err, iam.ErrRoleNotGranted):
				http.Error(w, "Role not granted", http.StatusForbidden)
			default:
				log.Printf("role switch failed for %s: %v", principal.InternalID, err)
				http.Error(w, "Failed to switch role", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, RoleResponse{
			ActingRole:     string(target),
			RoleSource:     "session",
			AvailableRoles: roleNames(principal.Roles),
		})
	}
}

// PreferenceResponse represents the stored default acting role
type PreferenceResponse struct {
	PreferredRole string `json:"preferred_role"`
	UpdatedAt     int64  `json:"updated_at"`
}

// HandleGetPreference returns the caller's stored role preference.
func HandleGetPreference(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		pref, err := iamService.GetRolePreference(r.Context(), principal.InternalID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "No preference set", http.StatusNotFound)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, PreferenceResponse{
			PreferredRole: pref.PreferredRole,
			UpdatedAt:     pref.UpdatedAt.UnixMilli(),
		})
	}
}

// HandleSetPreference stores the caller's default acting role.
func HandleSetPreference(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		var req SwitchRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		role, err := auth.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		if err := iamService.SetRolePreference(r.Context(), principal.InternalID, role); err != nil {
			if errors.Is(err, iam.ErrRoleNotGranted) {
				http.Error(w, "Role not granted", http.StatusForbidden)
				return
			}
			http.Error(w, "Failed to store preference", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"preferred_role": req.Role})
	}
}

// HandleClearPreference removes the caller's stored role preference.
func HandleClearPreference(iamService iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		if err := iamService.ClearRolePreference(r.Context(), principal.InternalID); err != nil {
			http.Error(w, "Failed to clear preference", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
