// Package cli implements the fiambond command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fiambond",
	Short: "Personal and family finance tracker",
	Long: `FiamBond tracks shared finances for people, not banks: an append-only
transaction ledger plus a loan lifecycle where informal loans between family
members (or to people outside the household) move through explicit,
double-confirmed states.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fiambond version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fiambond %s\n", Version)
	},
}

// defaultConfigPath returns ~/.fiambond/config.toml, or "" when the home
// directory cannot be resolved.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fiambond", "config.toml")
}
