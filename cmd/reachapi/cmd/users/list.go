package users

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd/cmdutil"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
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
		users, err := bundle.Service.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tSTATUS\tGRANTS")
		for i := range users {
			u := &users[i]
			status := "active"
			if u.Disabled() {
				status = "disabled"
			}
			grants, err := bundle.Service.ListGrantedRoles(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("failed to list grants for %s: %w", u.Email, err)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", u.ID, u.Email, u.Name, status, grants)
		}
		return w.Flush()
	},
}
