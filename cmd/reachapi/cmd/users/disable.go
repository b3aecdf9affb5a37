package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd/cmdutil"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
)

var disableCmd = &cobra.Command{
	Use:   "disable [email]",
	Short: "Disable a user account and revoke its sessions",
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

		if err := bundle.Service.DisableUser(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to disable user: %w", err)
		}

		fmt.Printf("User %s disabled; all sessions revoked\n", user.Email)
		return nil
	},
}
