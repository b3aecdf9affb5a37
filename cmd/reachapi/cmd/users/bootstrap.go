package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd/cmdutil"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
)

var (
	bootstrapName     string
	bootstrapPassword string
)

// bootstrapCmd creates the first admin account on a fresh deployment. It is
// a one-shot: once any user holds an admin grant, further admins are created
// through the dashboard or `users create --role admin`.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap [email]",
	Short: "Create the first admin account",
	Long: `Create the initial admin user on a fresh deployment.

Run this once after 'db migrate'. The command refuses to run when any user
already holds the admin role, so it cannot be used to mint extra admins on a
live system.

Example:
  reachapi users bootstrap ops@example.com --name "Ops" --password changeme
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		if bootstrapPassword == "" {
			return fmt.Errorf("--password is required for the first admin")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bundle, err := cmdutil.NewIAMServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()

		// One-shot guard: any existing admin grant means bootstrap already ran.
		existing, err := bundle.Service.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for i := range existing {
			grants, err := bundle.Service.ListGrantedRoles(ctx, existing[i].ID)
			if err != nil {
				return fmt.Errorf("failed to list grants for %s: %w", existing[i].Email, err)
			}
			if auth.ContainsRole(grants, auth.RoleAdmin) {
				return fmt.Errorf("an admin already exists (%s); use 'users create --role admin' instead", existing[i].Email)
			}
		}

		user, err := bundle.Service.CreateUser(ctx, email, bootstrapName, bootstrapPassword)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if err := bundle.Service.GrantRole(ctx, user.ID, auth.RoleAdmin, auth.SystemUserID); err != nil {
			return fmt.Errorf("failed to grant admin: %w", err)
		}

		fmt.Println("Bootstrap complete!")
		fmt.Println("----------------------------------------")
		fmt.Printf("ID: %s\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Println("Granted roles: [admin]")
		fmt.Println("----------------------------------------")
		fmt.Println("Log in to the dashboard with this account to manage further users.")

		return nil
	},
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapName, "name", "", "Display name")
	bootstrapCmd.Flags().StringVar(&bootstrapPassword, "password", "", "Initial password (required)")
}
