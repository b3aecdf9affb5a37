package users

import (
	"github.com/spf13/cobra"
)

// UsersCmd groups user administration commands for operators without
// dashboard access (bootstrap, break-glass).
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage marketplace users and role grants",
}

func init() {
	UsersCmd.AddCommand(bootstrapCmd)
	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(disableCmd)
	UsersCmd.AddCommand(grantCmd)
	UsersCmd.AddCommand(revokeCmd)
	UsersCmd.AddCommand(rolesCmd)
}
