package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/tui"
)

// newAddCmd creates the add command
func newAddCmd() *cobra.Command {
	var (
		path     string
		refType  string
		refValue string
	)

	cmd := &cobra.Command{
		Use:   "add <name> <repo>",
		Short: "Add a package to the manifest",
		Long: `Add writes one package declaration to git-pm.yaml. When the name already
exists, confirmation is asked before overwriting (non-interactive runs fail
instead). Run install afterwards to materialize it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, repo := args[0], args[1]

			switch refType {
			case "", manifest.RefBranch, manifest.RefTag, manifest.RefCommit:
			default:
				return fmt.Errorf("unknown ref type %q (want branch, tag or commit)", refType)
			}
			if refType != "" && refValue == "" {
				return fmt.Errorf("--ref-value is required with --ref-type")
			}

			// No project root yet is fine: add bootstraps the manifest in
			// the working directory.
			root := ""
			splog := tui.NewSplog()
			if rc, err := newRunContext(); err == nil {
				defer func() { _ = rc.Close() }()
				root = rc.ProjectRoot
				splog = rc.Splog
			} else if root, err = os.Getwd(); err != nil {
				return err
			}

			m, err := manifest.Load(root)
			if err != nil {
				if !os.IsNotExist(err) {
					return err
				}
				m = &manifest.Manifest{}
			}
			if m.Packages == nil {
				m.Packages = map[string]manifest.Declaration{}
			}

			if _, exists := m.Packages[name]; exists {
				if !tui.IsInteractive() {
					return fmt.Errorf("package %s already exists in %s", name, manifest.FileName)
				}
				overwrite, err := tui.Confirm(fmt.Sprintf("Package %s already exists. Overwrite?", name))
				if err != nil {
					return err
				}
				if !overwrite {
					splog.Info("Leaving %s unchanged", name)
					return nil
				}
			}

			decl := manifest.Declaration{Repo: repo, Path: path}
			if refType != "" {
				decl.Ref = &manifest.Ref{Type: refType, Value: refValue}
			}
			m.Packages[name] = decl

			if err := manifest.Save(root, m); err != nil {
				return err
			}
			splog.Tip("Added %s. Run 'git-pm install' to materialize it.", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Subpath within the repository to install")
	cmd.Flags().StringVar(&refType, "ref-type", "", "Reference type: branch, tag or commit (default branch)")
	cmd.Flags().StringVar(&refValue, "ref-value", "", "Reference value (branch name, tag name or commit sha)")

	return cmd
}
