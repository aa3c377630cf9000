package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	logger "github.com/fnos-tools/fnauth/internal/logging"
)

// Version is stamped at build time via -ldflags.
var Version = "1.2.0"

var (
	verbose bool
	debug   bool
	Logger  logger.Logger
)

var RootCmd = &cobra.Command{
	Use:   "fnauth",
	Short: "fnauth - Git authentication for fnOS NAS devices",
	Long: `fnauth manages git authentication against an fnOS NAS.

It logs in over the fnOS websocket protocol, obtains an entry token,
and configures git to send it with every HTTPS request, so that
clone/pull/push against repositories hosted on the NAS just work.

Tokens are refreshed automatically by an installed git pre-push hook,
or manually with 'fnauth refresh'.

Run 'fnauth help <command>' for details on a specific command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Initializing fnauth with verbose=%t, debug=%t", verbose, debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		banner := figure.NewColorFigure("fnauth", "alligator2", "green", true)
		banner.Print()
		fmt.Printf("\nfnauth %s — run 'fnauth --help' to see available commands.\n", Version)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(loginCmd)
	RootCmd.AddCommand(logoutCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(refreshCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(gitCmd)
	RootCmd.AddCommand(diagnosticCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(versionCmd)
}

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
