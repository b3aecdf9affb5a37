package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd/cmdutil"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
)

var grantCmd = &cobra.Command{
	Use:   "grant [email] [role]",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := auth.ParseRole(args[1])
		if err != nil {
			return err
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
		user, err := bundle.Service.GetUserByEmail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		if err := bundle.Service.GrantRole(ctx, user.ID, role, auth.SystemUserID); err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}

		fmt.Printf("Granted %s to %s\n", role, user.Email)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke [email] [role]",
	Short: "Revoke a role grant from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := auth.ParseRole(args[1])
		if err != nil {
			return err
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
		user, err := bundle.Service.GetUserByEmail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		if err := bundle.Service.RevokeRole(ctx, user.ID, role); err != nil {
			return fmt.Errorf("failed to revoke role: %w", err)
		}

		fmt.Printf("Revoked %s from %s\n", role, user.Email)
		return nil
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles [email]",
	Short: "Show a user's effective roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		user, err := bundle.Service.GetUserByEmail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		grants, err := bundle.Service.ListGrantedRoles(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list grants: %w", err)
		}
		effective, err := bundle.Service.ResolveRoles(ctx, user.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to resolve roles: %w", err)
		}

		fmt.Printf("User: %s\n", user.Email)
		fmt.Printf("Explicit grants: %v\n", grants)
		fmt.Printf("Effective roles (incl. org-derived and viewer): %v\n", effective)
		return nil
	},
}
