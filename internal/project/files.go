// Package project maintains the generated files an install leaves at the
// project root: the .gitignore entries and the environment file consumers
// source to locate installed packages.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitpm.dev/gitpm/internal/manifest"
)

// EnvFileName is the generated environment file. It carries absolute paths
// for the current machine, so it is ignored rather than committed.
const EnvFileName = ".git-pm.env"

// gitignoreMarker heads the managed block so repeated installs recognize it.
const gitignoreMarker = "# git-pm managed"

// EnsureGitignore makes sure the project .gitignore excludes the installed
// tree and the per-machine files. The lockfile is deliberately absent: it is
// the one generated file meant to be committed. Existing entries are kept;
// the call is idempotent.
func EnsureGitignore(projectRoot, packagesDir string) error {
	wanted := []string{
		filepath.Base(packagesDir) + "/",
		EnvFileName,
		manifest.OverrideFileName,
	}

	path := filepath.Join(projectRoot, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	existing := map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range wanted {
		if !existing[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.Write(data)
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		b.WriteString("\n")
	}
	if !existing[gitignoreMarker] {
		b.WriteString(gitignoreMarker + "\n")
	}
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteEnvFile regenerates the environment file: the packages directory, the
// project root, and one GIT_PM_PKG_<NAME> variable per installed package, all
// as absolute paths. The file is rewritten whole on every install.
func WriteEnvFile(projectRoot, packagesDir string, destinations map[string]string) error {
	var b strings.Builder
	b.WriteString("# Generated by git-pm. Do not edit; regenerated on every install.\n")
	fmt.Fprintf(&b, "GIT_PM_PACKAGES_DIR=%s\n", packagesDir)
	fmt.Fprintf(&b, "GIT_PM_PROJECT_ROOT=%s\n", projectRoot)

	names := make([]string, 0, len(destinations))
	for name := range destinations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&b, "GIT_PM_PKG_%s=%s\n", envName(name), destinations[name])
	}

	return os.WriteFile(filepath.Join(projectRoot, EnvFileName), []byte(b.String()), 0o644)
}

// envName normalizes a package name into an environment variable fragment.
func envName(name string) string {
	upper := strings.ToUpper(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, upper)
}
