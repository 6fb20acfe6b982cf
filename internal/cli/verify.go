package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitpm.dev/gitpm/internal/cache"
	"gitpm.dev/gitpm/internal/git"
	"gitpm.dev/gitpm/internal/lockfile"
)

// newVerifyCmd creates the verify command
func newVerifyCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the installed tree against the lockfile",
		Long: `Verify confirms every locked package is present on disk, that linked
packages still point at their recorded source, and that cached content sits at
the locked commit. All mismatches are reported before the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRunContext()
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			rc.Splog.SetQuiet(quiet)

			lf, err := lockfile.Read(rc.ProjectRoot)
			if err != nil {
				return fmt.Errorf("cannot verify without a lockfile: %w", err)
			}

			store := cache.NewStore(rc.CacheDir, git.NewCLIRunner())
			problems := lockfile.Verify(lf, rc.PackagesDir, store)
			if len(problems) == 0 {
				rc.Splog.Info("All %d package(s) verified", len(lf.Packages))
				return nil
			}

			for _, p := range problems {
				rc.Splog.Error("%v", p)
			}
			return fmt.Errorf("%d integrity problem(s) found", len(problems))
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Report via exit status only")

	return cmd
}
