package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/configs"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change fnauth preferences",
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List all preferences and their values",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}
		for _, key := range configs.PreferenceKeys() {
			value, _ := config.Preferences.GetPreference(key)
			line := fmt.Sprintf("%-30s %s", key, value)
			if !config.Preferences.IsDefault(key) {
				line += color.CyanString("  (modified)")
			}
			fmt.Println(line)
		}
		fmt.Println("\nConfig file: " + configs.ConfigFilePath())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single preference value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}
		value, ok := config.Preferences.GetPreference(args[0])
		if !ok {
			return Logger.ErrorfAndReturn("unknown preference: %s", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference",
	Long: `Change a preference. Run 'fnauth config show' to list available keys.

Examples:
  fnauth config set timeout_seconds 60
  fnauth config set auto_save_credentials false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}
		if err := config.Preferences.SetPreference(args[0], args[1]); err != nil {
			return Logger.ErrorfAndReturn("failed to set %s: %v", args[0], err)
		}
		if err := configs.SaveConfig(config); err != nil {
			return Logger.ErrorfAndReturn("failed to save config: %v", err)
		}
		value, _ := config.Preferences.GetPreference(args[0])
		fmt.Println(color.GreenString("✓") + " " + args[0] + " = " + value)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore all preferences to their defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}
		config.Preferences = configs.DefaultPreferences()
		if err := configs.SaveConfig(config); err != nil {
			return Logger.ErrorfAndReturn("failed to save config: %v", err)
		}
		fmt.Println(color.GreenString("✓") + " Preferences restored to defaults")
		return nil
	},
}
