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
	createName     string
	createPassword string
	createRoles    []string
)

var createCmd = &cobra.Command{
	Use:   "create [email]",
	Short: "Create a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

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

		// Validate role names before touching the database. The flag is
		// repeatable, so the same role may arrive more than once.
		roles := make([]auth.Role, 0, len(createRoles))
		for _, name := range createRoles {
			role, err := auth.ParseRole(name)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}
		roles = auth.DedupeRoles(roles)

		user, err := bundle.Service.CreateUser(ctx, email, createName, createPassword)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		for _, role := range roles {
			if err := bundle.Service.GrantRole(ctx, user.ID, role, auth.SystemUserID); err != nil {
				return fmt.Errorf("failed to grant role %s: %w", role, err)
			}
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("ID: %s\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		if len(roles) > 0 {
			fmt.Printf("Granted roles: %v\n", roles)
		}
		fmt.Println("----------------------------------------")
		fmt.Println("Every user additionally holds the viewer role.")

		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Display name")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Initial password (omit for token-only accounts)")
	createCmd.Flags().StringSliceVar(&createRoles, "role", nil, "Role to grant (repeatable): advertiser, publisher, stakeholder, admin")
}
