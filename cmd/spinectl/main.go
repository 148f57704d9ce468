// Command spinectl is a thin cobra wrapper over the spine's components. It
// owns process-level concerns only — flag parsing, config/storage wiring,
// exit codes — and calls straight into internal/claims, internal/validation,
// internal/projection, and internal/remote for everything else.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/debug"
)

var (
	dbPath     string
	logPath    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "spinectl",
	Short: "Content-addressed storage core for the artifact spine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logPath != "" {
			debug.Enable(logPath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".spine/spine.db", "path to the spine database")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "enable debug logging to this file (stderr always receives it)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "views", Title: "View & Sync Commands:"},
	)
	rootCmd.AddCommand(projectCmd, sessionCmd, claimCmd, projectionCmd, syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
