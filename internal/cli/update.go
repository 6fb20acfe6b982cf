package cli

import (
	"github.com/spf13/cobra"

	"gitpm.dev/gitpm/internal/manifest"
)

// newUpdateCmd creates the update command
func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Refresh branch-tracking packages to their latest commits",
		Aliases: []string{"u"},
		Long: `Update re-resolves every branch-tracking package to the commit its branch
currently points at, reinstalls, and rewrites git-pm.lock. Packages pinned to
a tag or commit never move; they are reported and left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireGit(cmd.Context()); err != nil {
				return err
			}
			rc, err := newRunContext()
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			m, err := manifest.Load(rc.ProjectRoot)
			if err != nil {
				return err
			}
			for name, decl := range m.Packages {
				if ref := decl.EffectiveRef(); !ref.IsMutable() {
					rc.Splog.Info("%s is pinned to %s %s, skipping", name, ref.Type, ref.Value)
				}
			}

			return runInstall(cmd.Context(), rc, true)
		},
	}

	return cmd
}
