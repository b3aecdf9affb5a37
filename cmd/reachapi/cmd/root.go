package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd/users"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reachapi",
	Short: "ProofOfReach marketplace API server",
	Long: `ProofOfReach API Server backs the multi-role ad marketplace dashboard.
It exposes HTTP endpoints for authentication, role switching, campaigns,
ad spaces, reporting, and administration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Server base URL for issued tokens (env: SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
