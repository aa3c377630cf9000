package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/configs"
	"github.com/fnos-tools/fnauth/internal/credentials"
	"github.com/fnos-tools/fnauth/internal/gitcfg"
	"github.com/fnos-tools/fnauth/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show login, token, and git configuration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		config, err := configs.LoadConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}

		var out strings.Builder

		if config.Server.URL == "" {
			out.WriteString(color.YellowString("!") + " Not configured\n")
			out.WriteString(color.CyanString("→") + " Run " + color.YellowString("fnauth login") + " to get started\n")
			fmt.Print(out.String())
			return nil
		}

		out.WriteString("Server:   " + ui.Highlight.Sprint(config.Server.URL) + "\n")
		if config.Server.Username != "" {
			user := config.Server.Username
			if config.Server.Admin {
				user += " (admin)"
			}
			out.WriteString("User:     " + user + "\n")
		}
		if config.Server.LastLogin != "" {
			out.WriteString("Login:    " + ui.Muted.Sprint(config.Server.LastLogin) + "\n")
		}
		out.WriteString("\nTokens:\n")
		out.WriteString("  entry token:   " + tokenState(config.Server.EntryToken, config.Server.EntryTokenExpiresAt, config.EntryTokenExpired()) + "\n")
		out.WriteString("  session token: " + tokenState(config.Server.FnosToken, config.Server.FnosTokenExpiresAt, config.FnosTokenExpired()) + "\n")
		out.WriteString("  long token:    " + tokenState(config.Server.LongToken, config.Server.LongTokenExpiresAt, config.LongTokenExpired()) + "\n")

		out.WriteString("\nGit:\n")
		if installed, version := gitcfg.Installed(); installed {
			out.WriteString("  " + version + "\n")
			if gitcfg.HasExtraHeader(config.Server.URL) {
				out.WriteString("  " + color.GreenString("✓") + " auth header configured\n")
			} else {
				out.WriteString("  " + color.RedString("✗") + " auth header not configured\n")
			}
			if gitcfg.HooksInstalled() {
				out.WriteString("  " + color.GreenString("✓") + " refresh hooks installed\n")
			} else {
				out.WriteString("  " + color.RedString("✗") + " refresh hooks not installed\n")
			}
		} else {
			out.WriteString("  " + color.RedString("✗") + " git not found on PATH\n")
		}

		saved, _ := credentials.Load(Logger)
		if saved != nil {
			out.WriteString("\n" + color.GreenString("✓") + " Credentials saved for automatic refresh\n")
		}

		if config.EntryTokenExpired() {
			out.WriteString("\n" + color.CyanString("→") + " Run " + ui.Code.Sprint("fnauth refresh") + " to renew the entry token\n")
		}

		fmt.Print(out.String())
		return nil
	},
}

func tokenState(token, expiresAt string, expired bool) string {
	if token == "" {
		return ui.Muted.Sprint("absent")
	}
	if expired {
		return ui.Error.Sprint("expired") + " (since " + expiresAt + ")"
	}
	if expiresAt == "" {
		return ui.Success.Sprint("present")
	}
	return ui.Success.Sprint("valid") + " until " + expiresAt
}
