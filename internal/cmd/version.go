package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopgenie/shopgenie/internal/server/handlers"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for Crucible, Gofulmen and Go versions, or --json for the /version payload.",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := handlers.CurrentVersion()
		info.App.Version = versionInfo.Version
		info.App.Commit = versionInfo.Commit
		info.App.BuildDate = versionInfo.BuildDate
		out := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		_, _ = fmt.Fprintf(out, "%s %s\n", info.App.Name, info.App.Version)
		if extended, _ := cmd.Flags().GetBool("extended"); extended {
			_, _ = fmt.Fprintf(out, "Commit: %s\n", info.App.Commit)
			_, _ = fmt.Fprintf(out, "Built: %s\n", info.App.BuildDate)
			_, _ = fmt.Fprintf(out, "Go: %s\n\n", info.App.GoVersion)
			_, _ = fmt.Fprintf(out, "Gofulmen: %s\n", info.Dependencies.Gofulmen)
			_, _ = fmt.Fprintf(out, "Crucible: %s\n", info.Dependencies.Crucible)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
	versionCmd.Flags().Bool("json", false, "print version information as JSON")
}
