package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gitpm.dev/gitpm/internal/lockfile"
	"gitpm.dev/gitpm/internal/tui"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List installed packages from the lockfile",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRunContext()
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			lf, err := lockfile.Read(rc.ProjectRoot)
			if err != nil {
				if os.IsNotExist(err) {
					rc.Splog.Info("No packages installed (no %s)", lockfile.FileName)
					return nil
				}
				return err
			}

			styled := tui.IsInteractive()
			for _, name := range lf.InstallationOrder {
				rec, ok := lf.Packages[name]
				if !ok {
					continue
				}
				rc.Splog.Info("%s", renderPackageLine(name, rec, rc.PackagesDir, styled))
			}
			return nil
		},
	}

	return cmd
}

// renderPackageLine formats one lockfile entry, styled when on a terminal.
func renderPackageLine(name string, rec lockfile.Record, packagesDir string, styled bool) string {
	present := true
	if _, err := os.Lstat(filepath.Join(packagesDir, name)); err != nil {
		present = false
	}

	var origin, status string
	if rec.Type == lockfile.TypeLocal {
		origin = fmt.Sprintf("local %s", rec.LocalPath)
	} else {
		ref := rec.Ref.Type + ":" + rec.Ref.Value
		if rec.Ref.Branch != "" {
			ref = "branch:" + rec.Ref.Branch
		}
		origin = fmt.Sprintf("%s (%s @ %s)", rec.Repo, ref, shortCommit(rec.ResolvedCommit))
	}
	if present {
		status = "installed"
	} else {
		status = "missing"
	}

	if !styled {
		return fmt.Sprintf("%s  %s  [%s]", name, origin, status)
	}

	styledName := tui.ColorPackageName(name)
	styledStatus := tui.ColorGreen(status)
	if !present {
		styledStatus = tui.ColorRed(status)
	}
	if rec.Type == lockfile.TypeLocal {
		return fmt.Sprintf("%s  %s  [%s]", styledName, tui.ColorDim(origin), styledStatus)
	}
	return fmt.Sprintf("%s  %s @ %s  [%s]",
		styledName, tui.ColorDim(rec.Repo), tui.ColorCommit(rec.ResolvedCommit), styledStatus)
}
