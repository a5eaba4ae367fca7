package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/remote"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer the gallery server (tokens and roles)",
	Long: `Administer the gallery server using its static admin token. The
token is read from the GALLERY_ADMIN_TOKEN environment variable or the
--admin-token flag.`,
}

var adminTokenFlag string

func init() {
	adminCmd.PersistentFlags().StringVar(&adminTokenFlag, "admin-token", "", "Static admin token (or set GALLERY_ADMIN_TOKEN)")
	adminTokenCreateCmd.Flags().String("description", "", "Token description")

	tokenCmd := &cobra.Command{Use: "token", Short: "Manage API tokens"}
	tokenCmd.AddCommand(adminTokenCreateCmd)
	tokenCmd.AddCommand(adminTokenListCmd)
	tokenCmd.AddCommand(adminTokenDeleteCmd)

	roleCmd := &cobra.Command{Use: "role", Short: "Manage role assignments"}
	roleCmd.AddCommand(adminRoleGrantCmd)
	roleCmd.AddCommand(adminRoleRevokeCmd)
	roleCmd.AddCommand(adminRoleListCmd)

	adminCmd.AddCommand(tokenCmd)
	adminCmd.AddCommand(roleCmd)
}

// initAdminClient builds an admin client from the workspace config and the
// static admin token.
func initAdminClient() *remote.AdminClient {
	c := initContext()

	token := adminTokenFlag
	if token == "" {
		token = os.Getenv("GALLERY_ADMIN_TOKEN")
	}
	if token == "" {
		exitError("admin token required: set GALLERY_ADMIN_TOKEN or pass --admin-token")
	}

	return remote.NewAdminClient(c.Config.ServerURL, token)
}

var adminTokenCreateCmd = &cobra.Command{
	Use:   "create <user-id>",
	Short: "Mint an API token for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		desc, _ := cmd.Flags().GetString("description")
		ac := initAdminClient()

		resp, err := ac.CreateToken(context.Background(), args[0], desc)
		if err != nil {
			exitError("%v", err)
		}

		fmt.Printf("Created token %s for user %s\n", resp.ID, resp.UserID)
		color.New(color.Bold).Printf("Token: %s\n", resp.Token)
		fmt.Println("Store it now; the raw token is not shown again.")
	},
}

var adminTokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API tokens",
	Run: func(cmd *cobra.Command, args []string) {
		ac := initAdminClient()

		tokens, err := ac.ListTokens(context.Background())
		if err != nil {
			exitError("%v", err)
		}
		if len(tokens) == 0 {
			fmt.Println("No tokens.")
			return
		}
		for _, t := range tokens {
			fmt.Printf("%s  %-16s  %s\n", t.ID, t.UserID, t.Description)
		}
	},
}

var adminTokenDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an API token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ac := initAdminClient()

		if err := ac.DeleteToken(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted token %s\n", args[0])
	},
}

var adminRoleGrantCmd = &cobra.Command{
	Use:   "grant <user-id> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ac := initAdminClient()

		if err := ac.GrantRole(context.Background(), args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Granted role '%s' to %s\n", args[1], args[0])
	},
}

var adminRoleRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <role>",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ac := initAdminClient()

		if err := ac.RevokeRole(context.Background(), args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Revoked role '%s' from %s\n", args[1], args[0])
	},
}

var adminRoleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List role assignments",
	Run: func(cmd *cobra.Command, args []string) {
		ac := initAdminClient()

		roles, err := ac.ListRoles(context.Background())
		if err != nil {
			exitError("%v", err)
		}
		if len(roles) == 0 {
			fmt.Println("No role assignments.")
			return
		}
		for _, r := range roles {
			fmt.Printf("%-16s  %s\n", r.UserID, r.Role)
		}
	},
}
