package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/auth"
	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/credentials"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
)

var (
	loginServer   string
	loginUsername string
	loginPassword string
	loginNoSave   bool
)

func init() {
	loginCmd.Flags().StringVarP(&loginServer, "server", "s", "", "NAS address (host[:port])")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "fnOS username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "fnOS password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginNoSave, "no-save", false, "do not offer to save credentials for automatic refresh")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the NAS and configure git authentication",
	Long: `Log in to an fnOS NAS over its websocket protocol, obtain an entry
token, and configure git to send it with HTTPS requests to the NAS.

Missing connection details are prompted for interactively.

Examples:
  fnauth login
  fnauth login --server nas.local:5666 --username anna`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting login command")

		if err := gitcfg.Require(); err != nil {
			fmt.Println(color.RedString("✗") + " git was not found on PATH\n" +
				color.CyanString("→") + " Install git and run " + color.YellowString("fnauth login") + " again")
			return nil
		}

		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}

		server := normalizeServer(loginServer)
		if server == "" {
			defaultServer := config.Server.URL
			prompt := "NAS address: "
			if defaultServer != "" {
				prompt = fmt.Sprintf("NAS address [%s]: ", defaultServer)
			}
			input, err := promptInput(prompt)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read NAS address: %v", err)
			}
			server = normalizeServer(input)
			if server == "" {
				server = defaultServer
			}
		}
		if server == "" {
			fmt.Println(color.RedString("✗") + " No NAS address given")
			return nil
		}

		username := loginUsername
		if username == "" {
			username, err = promptInput("Username: ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read username: %v", err)
			}
		}
		if username == "" {
			fmt.Println(color.RedString("✗") + " No username given")
			return nil
		}

		password := loginPassword
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read password: %v", err)
			}
		}
		if password == "" {
			fmt.Println(color.RedString("✗") + " No password given")
			return nil
		}

		spinner, cleanup := startSpinner("Logging in to "+server+"...", verbose)
		defer cleanup()

		manager := auth.NewManager(Logger)
		ctx, cancel := context.WithTimeout(context.Background(), config.Preferences.Timeout())
		defer cancel()

		result, err := manager.Login(ctx, server, username, password)
		if err != nil {
			spinner.FinalMSG = color.RedString("✗") + " Login failed: " + err.Error()
			return nil
		}

		finalMessage := color.GreenString("✓") + " Logged in to " + color.YellowString(server) +
			" as " + color.YellowString(username)
		if result.Admin {
			finalMessage += " (admin)"
		}
		if result.Degraded {
			finalMessage += "\n" + color.YellowString("!") +
				" Entry token exchange failed; using session token directly. Some git operations may not work."
		}
		spinner.FinalMSG = finalMessage
		cleanup()

		if !loginNoSave && config.Preferences.AutoSaveCredentials {
			if promptYesNo("Save credentials for automatic token refresh?", true) {
				if err := credentials.Save(Logger, username, password); err != nil {
					Logger.WarnfUser("Failed to save credentials: %v", err)
				} else {
					fmt.Println(color.GreenString("✓") + " Credentials saved (encrypted) in " +
						configs.FnauthSettings.ConfigDir)
				}
			}
		}
		return nil
	},
}
