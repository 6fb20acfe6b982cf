package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gitpm.dev/gitpm/internal/cache"
	"gitpm.dev/gitpm/internal/discover"
	"gitpm.dev/gitpm/internal/git"
	"gitpm.dev/gitpm/internal/install"
	"gitpm.dev/gitpm/internal/lockfile"
	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/project"
	"gitpm.dev/gitpm/internal/resolver"
	"gitpm.dev/gitpm/internal/runtime"
)

// newInstallCmd creates the install command
func newInstallCmd() *cobra.Command {
	var locked bool

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install all packages declared in the manifest",
		Aliases: []string{"i"},
		Long: `Install resolves every package in git-pm.yaml (and the manifests nested
inside them), fetches their content into the shared cache, materializes them
under the packages directory in dependency order and writes git-pm.lock.

With --locked the lockfile alone drives the install: no manifests are
re-read, no branches are re-resolved, and every package is fetched at
exactly its locked commit.`,
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

			if locked {
				return runLockedInstall(cmd.Context(), rc)
			}
			return runInstall(cmd.Context(), rc, false)
		},
	}

	cmd.Flags().BoolVar(&locked, "locked", false, "Reinstall exactly what git-pm.lock records, without re-resolving branches")

	return cmd
}

// runInstall is the full pipeline: discover, sort, materialize, lock.
// refreshBranches forces branch re-pinning even when auto-update is off.
func runInstall(ctx context.Context, rc *runtime.Context, refreshBranches bool) error {
	m, err := manifest.Load(rc.ProjectRoot)
	if err != nil {
		return err
	}
	overrides, err := manifest.LoadOverrides(rc.ProjectRoot)
	if err != nil {
		return err
	}

	runner := git.NewCLIRunner()
	res := resolver.New(rc.Config, rc.ProjectRoot)
	refs := resolver.NewRefResolver(runner)
	store := cache.NewStore(rc.CacheDir, runner)

	if !refreshBranches && !rc.Config.ShouldAutoUpdateBranches() {
		seedLockedPins(ctx, rc, res, refs)
	}

	auth := func(base, token string) {
		git.ConfigureBearerAuth(runner, base, token)
	}

	d := discover.New(res, refs, store, auth)
	rc.Splog.Info("Resolving packages...")
	graph, err := d.Discover(ctx, m.Packages, overrides)
	if err != nil {
		return err
	}

	order, err := discover.TopologicalOrder(graph)
	if err != nil {
		return err
	}

	installedOrder, symlinked, failures := materialize(rc, graph, order)
	failures = append(d.Failures(), failures...)

	lf := lockfile.Build(graph, installedOrder, symlinked)
	if err := lockfile.Write(rc.ProjectRoot, lf); err != nil {
		return err
	}

	return summarize(rc, len(installedOrder), failures)
}

// runLockedInstall replays the lockfile: cache entries are ensured at their
// locked commits in parallel, then packages materialize in the locked order.
func runLockedInstall(ctx context.Context, rc *runtime.Context) error {
	lf, err := lockfile.Read(rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("cannot replay without a lockfile: %w", err)
	}

	runner := git.NewCLIRunner()
	res := resolver.New(rc.Config, rc.ProjectRoot)
	store := cache.NewStore(rc.CacheDir, runner)

	rc.Splog.Info("Replaying lockfile (%d packages)...", len(lf.Packages))
	resolve := func(repo string) (string, error) {
		resolved, err := res.Resolve(ctx, repo)
		if err != nil {
			return "", err
		}
		if resolved.BearerAuth != "" {
			git.ConfigureBearerAuth(runner, resolved.BearerBase, resolved.BearerAuth)
		}
		return resolved.URL, nil
	}
	replayFailures := lockfile.Replay(ctx, lf, store, resolve)

	// Packages whose replay failed are skipped; everything else installs.
	graph := graphFromLockfile(lf, store)
	order := make([]string, 0, len(lf.InstallationOrder))
	var failures []error
	for _, name := range lf.InstallationOrder {
		if err, failed := replayFailures[name]; failed {
			failures = append(failures, err)
			continue
		}
		order = append(order, name)
	}

	installedOrder, _, installFailures := materialize(rc, graph, order)
	failures = append(failures, installFailures...)
	return summarize(rc, len(installedOrder), failures)
}

// materialize installs packages in order and builds the dependency link
// graph, then regenerates the project files. Returns the names that actually
// installed, which of them are links, and the per-package failures.
func materialize(rc *runtime.Context, graph *discover.Graph, order []string) ([]string, map[string]bool, []error) {
	inst := install.New(rc.PackagesDir)
	installed := map[string]bool{}
	symlinked := map[string]bool{}
	destinations := map[string]string{}
	var installedOrder []string
	var failures []error

	for _, name := range order {
		pkg := graph.Get(name)
		if pkg == nil {
			continue
		}
		rec, err := inst.Install(pkg)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		installed[name] = true
		symlinked[name] = rec.Symlinked
		destinations[name] = inst.Destination(name)
		installedOrder = append(installedOrder, name)

		if pkg.IsLocal {
			rc.Splog.Info("  %s -> %s (%s)", name, pkg.LocalPath, linkLabel(rec))
		} else {
			rc.Splog.Info("  %s @ %s", name, shortCommit(pkg.ResolvedCommit))
		}
	}

	for _, err := range inst.LinkDependencies(graph, installed) {
		rc.Splog.Warn("dependency link skipped: %v", err)
	}

	if err := project.EnsureGitignore(rc.ProjectRoot, rc.PackagesDir); err != nil {
		rc.Splog.Warn("could not update .gitignore: %v", err)
	}
	if err := project.WriteEnvFile(rc.ProjectRoot, rc.PackagesDir, destinations); err != nil {
		rc.Splog.Warn("could not write %s: %v", project.EnvFileName, err)
	}

	return installedOrder, symlinked, failures
}

// seedLockedPins pre-loads branch pins from the lockfile so discovery reuses
// them instead of asking remotes, honoring auto_update_branches: false.
func seedLockedPins(ctx context.Context, rc *runtime.Context, res *resolver.Resolver, refs *resolver.RefResolver) {
	lf, err := lockfile.Read(rc.ProjectRoot)
	if err != nil {
		return // nothing to seed from
	}
	for _, rec := range lf.Packages {
		if rec.Type != lockfile.TypeRemote || rec.Ref == nil || rec.Ref.Branch == "" {
			continue
		}
		resolved, err := res.Resolve(ctx, rec.Repo)
		if err != nil || resolved.IsLocal() {
			continue
		}
		refs.Seed(resolved.URL, rec.Ref.Branch, rec.Ref.Value)
	}
}

func summarize(rc *runtime.Context, installed int, failures []error) error {
	rc.Splog.Newline()
	rc.Splog.Info("Installed %d package(s)", installed)
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		rc.Splog.Error("%v", f)
	}
	return fmt.Errorf("%d package(s) failed", len(failures))
}

func linkLabel(rec install.Record) string {
	if rec.Symlinked {
		return string(rec.LinkMethod)
	}
	return "copied"
}

func shortCommit(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
