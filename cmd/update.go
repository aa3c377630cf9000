package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/update"
)

var (
	updateCheckOnly bool
	updateForce     bool
)

func init() {
	updateCmd.Flags().BoolVarP(&updateCheckOnly, "check", "c", false, "only check for a new release, do not install")
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "reinstall even when already up to date")
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update fnauth to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting update command")
		spinner, cleanup := startSpinner("Checking for updates...", verbose)
		defer cleanup()

		result, err := update.Check(Version)
		if err != nil {
			spinner.FinalMSG = color.RedString("✗") + " Update check failed: " + err.Error()
			return nil
		}

		if !result.HasUpdate && !updateForce {
			spinner.FinalMSG = color.GreenString("✓") + " Already up to date (" + Version + ")"
			return nil
		}

		if updateCheckOnly {
			spinner.FinalMSG = color.GreenString("✓") + " New release available: " + color.YellowString(result.Latest.Version) + "\n" +
				color.CyanString("→") + " Run " + color.YellowString("fnauth update") + " to install"
			return nil
		}

		spinner.Suffix = " Downloading " + result.Latest.Version + "..."
		if err := update.Apply(result.Latest, Version); err != nil {
			spinner.FinalMSG = color.RedString("✗") + " Update failed: " + err.Error()
			if result.Latest.ReleaseURL != "" {
				spinner.FinalMSG += "\n" + color.CyanString("→") + " Download manually: " + result.Latest.ReleaseURL
			}
			return nil
		}

		spinner.FinalMSG = color.GreenString("✓") + " Updated to " + color.YellowString(result.Latest.Version)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fnauth version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fnauth " + Version)
	},
}
