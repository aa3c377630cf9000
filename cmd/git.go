package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
)

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Inspect and manage the git configuration fnauth writes",
}

func init() {
	gitCmd.AddCommand(gitShowCmd)
	gitCmd.AddCommand(gitRemoveCmd)
	gitCmd.AddCommand(gitClearCmd)
	gitCmd.AddCommand(gitCacheTimeoutCmd)
}

var gitShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show fnauth-managed git configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gitcfg.Require(); err != nil {
			return Logger.ErrorfAndReturn("git not found: %v", err)
		}

		headers := gitcfg.ListExtraHeaders()
		if len(headers) == 0 {
			fmt.Println(color.YellowString("!") + " No auth headers configured")
		} else {
			fmt.Println("Auth headers:")
			for _, line := range headers {
				fmt.Println("  " + line)
			}
		}

		if gitcfg.HooksInstalled() {
			fmt.Println(color.GreenString("✓") + " Refresh hooks installed:")
			for _, name := range gitcfg.InstalledHookNames() {
				fmt.Println("  " + name)
			}
		} else {
			fmt.Println(color.RedString("✗") + " Refresh hooks not installed")
		}
		return nil
	},
}

var gitRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the auth header for the configured server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gitcfg.Require(); err != nil {
			return Logger.ErrorfAndReturn("git not found: %v", err)
		}
		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}
		if config.Server.URL == "" {
			fmt.Println(color.YellowString("!") + " No server configured")
			return nil
		}
		if gitcfg.RemoveExtraHeader(config.Server.URL) {
			fmt.Println(color.GreenString("✓") + " Removed auth header for " + config.Server.URL)
		} else {
			fmt.Println(color.YellowString("!") + " No auth header found for " + config.Server.URL)
		}
		return nil
	},
}

var gitClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every fnauth-managed auth header and the refresh hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gitcfg.Require(); err != nil {
			return Logger.ErrorfAndReturn("git not found: %v", err)
		}
		removed := gitcfg.ClearExtraHeaders()
		for _, key := range removed {
			Logger.Infof("Removed %s", key)
		}
		if err := gitcfg.RemoveHooks(); err != nil {
			Logger.WarnfUser("Failed to remove hooks: %v", err)
		}
		fmt.Printf("%s Cleared %d auth header(s) and removed hooks\n", color.GreenString("✓"), len(removed))
		return nil
	},
}

var gitCacheTimeoutCmd = &cobra.Command{
	Use:   "cache-timeout <seconds>",
	Short: "Set the git credential cache timeout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gitcfg.Require(); err != nil {
			return Logger.ErrorfAndReturn("git not found: %v", err)
		}
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			return Logger.ErrorfAndReturn("invalid timeout: %s", args[0])
		}
		if err := gitcfg.SetCredentialCacheTimeout(seconds); err != nil {
			return Logger.ErrorfAndReturn("failed to set cache timeout: %v", err)
		}
		fmt.Printf("%s Credential cache timeout set to %d seconds\n", color.GreenString("✓"), seconds)
		return nil
	},
}
