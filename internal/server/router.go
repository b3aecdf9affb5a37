package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

// RouterOptions controls the construction of the marketplace HTTP router.
// The zero value is valid; sensible defaults are applied where fields are not set.
type RouterOptions struct {
	IAMService    iamAdminService // Compile-time verified IAM service contract
	Campaigns     repository.CampaignRepository
	AdSpaces      repository.AdSpaceRepository
	Cfg           *config.Config
	Metrics       *telemetry.ServerMetrics
	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the CORS policy for the dashboard frontend.
// origins overrides the development default when non-empty.
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Acting-Role",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the marketplace handlers mounted. The router can be tailored via
// RouterOptions for CLI usage, tests, or other entrypoints.
//
// Authentication, acting-role resolution, and authorization are NOT mounted
// here; they arrive through opts.Middleware so tests can substitute their
// own chain.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions(nil)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	} else if opts.Cfg != nil {
		corsCfg = DefaultCORSOptions(opts.Cfg.AllowedOrigins)
	}
	r.Use(cors.Handler(corsCfg))

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if opts.IAMService != nil {
		// Auth surface: login/logout/token are exempt from the authz
		// middleware; the rest is gated on account capabilities.
		r.Post("/auth/login", HandleLogin(opts.IAMService, opts.Cfg))
		r.Post("/auth/logout", HandleLogout(opts.IAMService))
		r.Post("/auth/token", HandleIssueToken(opts.IAMService))
		r.Get("/auth/whoami", HandleWhoAmI(opts.IAMService))
		r.Get("/auth/role", HandleGetRole())
		r.Post("/auth/role/switch", HandleSwitchRole(opts.IAMService, opts.Metrics))
		r.Get("/auth/preference", HandleGetPreference(opts.IAMService))
		r.Put("/auth/preference", HandleSetPreference(opts.IAMService))
		r.Delete("/auth/preference", HandleClearPreference(opts.IAMService))

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/users", HandleCreateUser(opts.IAMService))
			r.Get("/users", HandleListUsers(opts.IAMService))
			r.Post("/users/{userID}/disable", HandleDisableUser(opts.IAMService))

			r.Post("/grants", HandleGrantRole(opts.IAMService))
			r.Post("/grants/revoke", HandleRevokeRole(opts.IAMService))
			r.Get("/grants/{userID}", HandleListGrants(opts.IAMService))

			r.Post("/orgs", HandleCreateOrg(opts.IAMService))
			r.Get("/orgs", HandleListOrgs(opts.IAMService))
			r.Post("/orgs/{orgName}/members", HandleAddOrgMember(opts.IAMService))
			r.Get("/orgs/{orgName}/members", HandleListOrgMembers(opts.IAMService))
			r.Delete("/orgs/{orgName}/members/{userID}", HandleRemoveOrgMember(opts.IAMService))
			r.Post("/orgs/{orgName}/roles", HandleAssignOrgRole(opts.IAMService))
			r.Delete("/orgs/{orgName}/roles/{role}", HandleRemoveOrgRole(opts.IAMService))

			r.Get("/sessions/user/{userID}", HandleListUserSessions(opts.IAMService))
			r.Delete("/sessions/user/{userID}", HandleRevokeUserSessions(opts.IAMService))
			r.Delete("/sessions/{sessionID}", HandleRevokeSession(opts.IAMService))

			r.Post("/cache/refresh", HandleCacheRefresh(opts.IAMService))
			r.Get("/cache", HandleCacheSnapshot(opts.IAMService))
		})
	}

	if opts.Campaigns != nil {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", HandleCreateCampaign(opts.Campaigns))
			r.Get("/", HandleListCampaigns(opts.Campaigns))
			r.Get("/{campaignID}", HandleGetCampaign())
			r.Put("/{campaignID}", HandleUpdateCampaign(opts.Campaigns))
			r.Delete("/{campaignID}", HandleArchiveCampaign(opts.Campaigns))
		})
	}

	if opts.AdSpaces != nil {
		r.Route("/adspaces", func(r chi.Router) {
			r.Post("/", HandleCreateAdSpace(opts.AdSpaces))
			r.Get("/", HandleListAdSpaces(opts.AdSpaces))
			r.Get("/{adSpaceID}", HandleGetAdSpace())
			r.Put("/{adSpaceID}", HandleUpdateAdSpace(opts.AdSpaces))
			r.Delete("/{adSpaceID}", HandleArchiveAdSpace(opts.AdSpaces))
		})
	}

	if opts.Campaigns != nil && opts.AdSpaces != nil && opts.IAMService != nil {
		r.Get("/dashboard", HandleDashboard(opts.Campaigns, opts.AdSpaces))
		r.Get("/reports", HandleReports(opts.IAMService, opts.Campaigns, opts.AdSpaces))
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/healthz", healthHandler)

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
