package cmd

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/auth"
	"github.com/fnos-tools/fnauth/internal/configs"
	kerrors "github.com/fnos-tools/fnauth/internal/errors"
)

var refreshForce bool

func init() {
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "refresh even when the entry token is still fresh")
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the entry token",
	Long: `Renew the entry token, trying the cheapest strategy first: resume the
existing session, fall back to the long-lived token, and finally re-login
with saved credentials. This is the command the installed git hooks run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting refresh command")

		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}

		if !refreshForce && config.Server.EntryToken != "" && !config.EntryTokenNeedsRefresh() {
			Logger.Infof("Entry token still fresh, nothing to do")
			return nil
		}

		spinner, cleanup := startSpinner("Refreshing entry token...", verbose)
		defer cleanup()

		// No deadline here: Refresh bounds each strategy on its own, so a
		// slow first strategy still leaves time for the fallbacks.
		manager := auth.NewManager(Logger)

		if err := manager.Refresh(context.Background()); err != nil {
			switch {
			case errors.Is(err, kerrors.ErrNotLoggedIn):
				spinner.FinalMSG = color.YellowString("!") + " Not logged in\n" +
					color.CyanString("→") + " Run " + color.YellowString("fnauth login") + " first"
			case errors.Is(err, kerrors.ErrRefreshExhausted):
				spinner.FinalMSG = color.RedString("✗") + " All refresh strategies failed\n" +
					color.CyanString("→") + " Run " + color.YellowString("fnauth login") + " again"
			default:
				spinner.FinalMSG = color.RedString("✗") + " Refresh failed: " + err.Error()
			}
			return nil
		}

		spinner.FinalMSG = color.GreenString("✓") + " Entry token refreshed"
		return nil
	},
}
