package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fnos-tools/fnauth/internal/diagnostic"
)

var (
	diagnosticOutput string
	diagnosticPrint  bool
)

func init() {
	diagnosticCmd.Flags().StringVarP(&diagnosticOutput, "output", "o", "", "directory to write the bundle into (default: current directory)")
	diagnosticCmd.Flags().BoolVarP(&diagnosticPrint, "print", "p", false, "print the report to stdout instead of writing a bundle")
}

var diagnosticCmd = &cobra.Command{
	Use:   "diagnostic",
	Short: "Collect redacted troubleshooting information",
	Long: `Collect system, git, and configuration information into a tar.gz
bundle suitable for attaching to a bug report. All tokens, passwords, and
keys are redacted before anything is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting diagnostic command")

		if diagnosticPrint {
			return diagnostic.Print(Version)
		}

		spinner, cleanup := startSpinner("Collecting diagnostic information...", verbose)
		defer cleanup()

		path, err := diagnostic.CreateBundle(Version, diagnosticOutput)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to create diagnostic bundle: %v", err)
		}

		spinner.FinalMSG = color.GreenString("✓") + " Diagnostic bundle written to " + color.YellowString(path) + "\n" +
			color.CyanString("→") + " Sensitive values are redacted; safe to attach to an issue"
		return nil
	},
}
