package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("github.com/org/repo", "libs/core", "branch", "main")
	b := Key("github.com/org/repo", "libs/core", "branch", "main")
	require.Equal(t, a, b)
	require.Len(t, a, 16)
}

func TestKeyDivergesOnEveryComponent(t *testing.T) {
	base := Key("github.com/org/repo", "libs/core", "branch", "main")

	require.NotEqual(t, base, Key("github.com/org/other", "libs/core", "branch", "main"))
	require.NotEqual(t, base, Key("github.com/org/repo", "libs/extra", "branch", "main"))
	require.NotEqual(t, base, Key("github.com/org/repo", "libs/core", "tag", "main"))
	require.NotEqual(t, base, Key("github.com/org/repo", "libs/core", "branch", "develop"))
}

func TestKeySeparatesAmbiguousConcatenations(t *testing.T) {
	// The separators must keep (repo, path) splits from colliding.
	a := Key("repo", "a/b", "commit", "abc")
	b := Key("repo#a", "b", "commit", "abc")
	require.NotEqual(t, a, b)
}
