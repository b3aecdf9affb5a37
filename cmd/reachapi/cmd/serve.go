package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	reachmiddleware "github.com/ProofOfReach/ProofOfReachApp-sub001/internal/middleware"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/server"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/services/iam"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace API server",
	Long:  `Starts the HTTP server with authentication, role resolution, and the marketplace endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Telemetry first so every later component picks up the global providers.
		otelShutdown, err := telemetry.Init(cmd.Context(), cfg.Observability)
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(ctx); err != nil {
				log.Printf("Warning: telemetry shutdown: %v", err)
			}
		}()

		metrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("initialize metrics: %w", err)
		}

		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() { _ = bunx.Close(db) }()

		log.Printf("Connected to database")

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		sessionRepo := repository.NewBunSessionRepository(db)
		roleGrantRepo := repository.NewBunRoleGrantRepository(db)
		rolePrefRepo := repository.NewBunRolePreferenceRepository(db)
		orgRepo := repository.NewBunOrgRepository(db)
		orgMembershipRepo := repository.NewBunOrgMembershipRepository(db)
		orgRoleMappingRepo := repository.NewBunOrgRoleMappingRepository(db)
		revokedJTIRepo := repository.NewBunRevokedJTIRepository(db)
		campaignRepo := repository.NewBunCampaignRepository(db)
		adSpaceRepo := repository.NewBunAdSpaceRepository(db)

		// Casbin policies are seeded by migrations; the request path only reads.
		enforcer, err := auth.InitEnforcer(db)
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}
		enforcer.EnableAutoSave(false)

		iamService, err := iam.NewIAMService(
			iam.Dependencies{
				Users:           userRepo,
				Sessions:        sessionRepo,
				RoleGrants:      roleGrantRepo,
				RolePreferences: rolePrefRepo,
				Orgs:            orgRepo,
				OrgMemberships:  orgMembershipRepo,
				OrgRoleMappings: orgRoleMappingRepo,
				RevokedJTIs:     revokedJTIRepo,
				Enforcer:        enforcer,
			},
			cfg,
		)
		if err != nil {
			return fmt.Errorf("create IAM service: %w", err)
		}
		log.Printf("IAM service initialized with authenticators")
		if cfg.Auth.TestMode {
			log.Printf("WARNING: AUTH_TEST_MODE is enabled; unauthenticated requests get a synthetic identity")
		}

		// Background org role cache refresh picks up mappings written by
		// other processes (admin CLI, another replica).
		cacheCtx, cancelCache := context.WithCancel(cmd.Context())
		defer cancelCache()
		go func() {
			ticker := time.NewTicker(cfg.Auth.CacheRefreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if err := iamService.RefreshOrgRoleCache(cacheCtx); err != nil {
						log.Printf("ERROR: Background cache refresh failed: %v", err)
					} else {
						snapshot := iamService.GetOrgRoleCacheSnapshot()
						log.Printf("INFO: Background cache refreshed (version=%d, orgs=%d)",
							snapshot.Version, len(snapshot.Mappings))
					}
				case <-cacheCtx.Done():
					log.Printf("INFO: Stopping background cache refresh")
					return
				}
			}
		}()

		// Request middleware chain. Order matters: the legacy header shim must
		// run before authentication, authentication before acting-role
		// resolution, and acting-role resolution before authorization.
		var chiMiddleware []func(http.Handler) http.Handler
		chiMiddleware = append(chiMiddleware, reachmiddleware.RequestMetrics(metrics))
		chiMiddleware = append(chiMiddleware, auth.LegacyTokenShim)
		chiMiddleware = append(chiMiddleware, reachmiddleware.MultiAuthMiddleware(iamService))
		chiMiddleware = append(chiMiddleware, reachmiddleware.ActingRoleMiddleware(iamService))

		authzMiddleware, err := reachmiddleware.NewAuthzMiddleware(reachmiddleware.AuthzDependencies{
			IAM:       iamService,
			Campaigns: campaignRepo,
			AdSpaces:  adSpaceRepo,
			Metrics:   metrics,
		})
		if err != nil {
			return fmt.Errorf("configure authorization middleware: %w", err)
		}
		chiMiddleware = append(chiMiddleware, authzMiddleware)

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"ok","test_mode":%t}`, cfg.Auth.TestMode)
		}

		// Assemble the shared router with the production-specific middleware.
		r := server.NewRouter(server.RouterOptions{
			IAMService:    iamService,
			Campaigns:     campaignRepo,
			AdSpaces:      adSpaceRepo,
			Cfg:           cfg,
			Metrics:       metrics,
			Middleware:    chiMiddleware,
			HealthHandler: healthHandler,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal or cache refresh signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// SIGHUP triggers an immediate cache refresh (for ops and E2E tests)
		cacheRefresh := make(chan os.Signal, 1)
		signal.Notify(cacheRefresh, syscall.SIGHUP)

		for {
			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case sig := <-cacheRefresh:
				log.Printf("Received signal %v, refreshing org role cache", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := iamService.RefreshOrgRoleCache(ctx); err != nil {
					log.Printf("ERROR: Manual cache refresh failed: %v", err)
				} else {
					snapshot := iamService.GetOrgRoleCacheSnapshot()
					log.Printf("INFO: Manual cache refresh complete via %v (version=%d, orgs=%d)",
						sig, snapshot.Version, len(snapshot.Mappings))
				}
				cancel()

			case sig := <-shutdown:
				log.Printf("Received signal %v, shutting down gracefully", sig)

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}

				log.Printf("Server stopped")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
