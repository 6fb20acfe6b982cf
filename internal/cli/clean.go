package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// newCleanCmd creates the clean command
func newCleanCmd() *cobra.Command {
	var cleanCache bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove installed packages",
		Long: `Clean removes the packages directory. With --cache the shared content
cache is removed as well; the next install repopulates it from the remotes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRunContext()
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			if err := os.RemoveAll(rc.PackagesDir); err != nil {
				return err
			}
			rc.Splog.Info("Removed %s", rc.PackagesDir)

			if cleanCache {
				if err := os.RemoveAll(rc.CacheDir); err != nil {
					return err
				}
				rc.Splog.Info("Removed cache at %s", rc.CacheDir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanCache, "cache", false, "Also remove the shared content cache")

	return cmd
}
