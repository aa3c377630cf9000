package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/auth"
	"github.com/fnos-tools/fnauth/internal/credentials"
)

var logoutAll bool

func init() {
	logoutCmd.Flags().BoolVarP(&logoutAll, "all", "a", false, "also delete saved credentials")
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear tokens and remove git authentication",
	Long: `Remove the git extraheader configuration and refresh hooks, and
discard all stored tokens. The NAS address is kept for the next login.

With --all, saved credentials are deleted as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting logout command")
		spinner, cleanup := startSpinner("Logging out...", verbose)
		defer cleanup()

		manager := auth.NewManager(Logger)
		hadTokens, err := manager.Logout()
		if err != nil {
			return Logger.ErrorfAndReturn("logout failed: %v", err)
		}

		if logoutAll {
			if err := credentials.Delete(); err != nil {
				Logger.WarnfUser("Failed to delete saved credentials: %v", err)
			}
		}

		if !hadTokens && !logoutAll {
			spinner.FinalMSG = color.YellowString("!") + " Not logged in; nothing to do"
			return nil
		}

		finalMessage := color.GreenString("✓") + " Logged out"
		if logoutAll {
			finalMessage += " and deleted saved credentials"
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
