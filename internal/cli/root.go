// Package cli wires the git-pm commands. Commands stay thin: they build the
// runtime context and hand off to the core packages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "git-pm",
		Short: "git-pm installs slices of git monorepos as project dependencies",
		Long: `git-pm is a dependency manager for git repositories. It fetches sparse
slices of monorepos into a local packages directory, resolves transitive
dependencies declared in nested manifests, and produces a reproducible,
ordered installation recorded in a lockfile.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newCleanCmd())

	return rootCmd
}
