package install

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpm.dev/gitpm/internal/discover"
	"gitpm.dev/gitpm/internal/manifest"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestInstallLocalPackageSymlinksAndTracksEdits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test relies on unix symlink semantics")
	}
	source := t.TempDir()
	writeTree(t, source, map[string]string{"lib.txt": "v1"})

	inst := New(filepath.Join(t.TempDir(), ".git-packages"))
	pkg := &discover.Package{Name: "local-pkg", IsLocal: true, LocalPath: source}

	rec, err := inst.Install(pkg)
	require.NoError(t, err)
	require.True(t, rec.Symlinked)
	require.Equal(t, LinkSymlink, rec.LinkMethod)

	dest := inst.Destination("local-pkg")
	target, err := os.Readlink(dest)
	require.NoError(t, err)
	require.Equal(t, source, target)

	// Edits at the source must show up without reinstalling.
	require.NoError(t, os.WriteFile(filepath.Join(source, "lib.txt"), []byte("v2"), 0o644))
	got, err := os.ReadFile(filepath.Join(dest, "lib.txt"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))
}

func TestInstallRemotePackageCopiesContentWithoutGitDir(t *testing.T) {
	cacheEntry := t.TempDir()
	writeTree(t, cacheEntry, map[string]string{
		"libs/core/main.go":      "package core",
		"libs/core/sub/util.go":  "package sub",
		".git/config":            "should not ship",
		"libs/core/.git/objects": "nested .git at content root is also skipped",
	})

	inst := New(filepath.Join(t.TempDir(), ".git-packages"))
	pkg := &discover.Package{
		Name:        "core",
		Declaration: manifest.Declaration{Repo: "example.com/repo", Path: "libs/core"},
		CachePath:   cacheEntry,
	}

	_, err := inst.Install(pkg)
	require.NoError(t, err)

	dest := inst.Destination("core")
	require.FileExists(t, filepath.Join(dest, "main.go"))
	require.FileExists(t, filepath.Join(dest, "sub", "util.go"))
	require.NoDirExists(t, filepath.Join(dest, ".git"))
}

func TestInstallRemoteMissingSubpathFails(t *testing.T) {
	inst := New(filepath.Join(t.TempDir(), ".git-packages"))
	pkg := &discover.Package{
		Name:        "core",
		Declaration: manifest.Declaration{Repo: "example.com/repo", Path: "libs/missing"},
		CachePath:   t.TempDir(),
	}

	_, err := inst.Install(pkg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "libs/missing")
}

func TestInstallReplacesStaleDestination(t *testing.T) {
	packagesDir := filepath.Join(t.TempDir(), ".git-packages")
	inst := New(packagesDir)

	stale := filepath.Join(packagesDir, "pkg")
	writeTree(t, stale, map[string]string{"old.txt": "stale"})

	src := t.TempDir()
	writeTree(t, src, map[string]string{"new.txt": "fresh"})
	pkg := &discover.Package{
		Name:        "pkg",
		Declaration: manifest.Declaration{Repo: "example.com/repo"},
		CachePath:   src,
	}

	_, err := inst.Install(pkg)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(stale, "old.txt"))
	require.FileExists(t, filepath.Join(stale, "new.txt"))
}

func TestLinkDependenciesBuildsSiblingLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test relies on unix symlink semantics")
	}
	packagesDir := filepath.Join(t.TempDir(), ".git-packages")
	inst := New(packagesDir)

	for _, name := range []string{"app", "lib"} {
		src := t.TempDir()
		writeTree(t, src, map[string]string{"f.txt": name})
		_, err := inst.Install(&discover.Package{
			Name:        name,
			Declaration: manifest.Declaration{Repo: "example.com/" + name},
			CachePath:   src,
		})
		require.NoError(t, err)
	}

	g := discover.NewGraph()
	g.Add(&discover.Package{Name: "lib"})
	g.Add(&discover.Package{Name: "app", Dependencies: []string{"lib"}})

	failures := inst.LinkDependencies(g, map[string]bool{"app": true, "lib": true})
	require.Empty(t, failures)

	link := filepath.Join(inst.Destination("app"), filepath.Base(packagesDir), "lib")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, inst.Destination("lib"), target)

	// The linked dependency resolves to the sibling's content.
	got, err := os.ReadFile(filepath.Join(link, "f.txt"))
	require.NoError(t, err)
	require.Equal(t, "lib", string(got))
}

func TestLinkDependenciesSkipsFailedInstalls(t *testing.T) {
	packagesDir := filepath.Join(t.TempDir(), ".git-packages")
	inst := New(packagesDir)

	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.txt": "app"})
	_, err := inst.Install(&discover.Package{
		Name:        "app",
		Declaration: manifest.Declaration{Repo: "example.com/app"},
		CachePath:   src,
	})
	require.NoError(t, err)

	g := discover.NewGraph()
	g.Add(&discover.Package{Name: "app", Dependencies: []string{"lib"}})

	failures := inst.LinkDependencies(g, map[string]bool{"app": true})
	require.Empty(t, failures, "an uninstalled dependency is skipped, not an error")
	require.NoFileExists(t, filepath.Join(inst.Destination("app"), filepath.Base(packagesDir), "lib"))
}
