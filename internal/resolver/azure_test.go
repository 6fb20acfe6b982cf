package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAzureShapes(t *testing.T) {
	expected := AzureRepo{Organization: "org", Project: "My Project", Repository: "repo"}

	cases := []struct {
		name       string
		identifier string
	}{
		{"ssh v3", "git@ssh.dev.azure.com:v3/org/My%20Project/repo"},
		{"hybrid v3", "dev.azure.com:v3/org/My%20Project/repo"},
		{"https", "https://dev.azure.com/org/My%20Project/_git/repo"},
		{"https with user", "https://someone@dev.azure.com/org/My%20Project/_git/repo"},
		{"shorthand _git", "dev.azure.com/org/My%20Project/_git/repo"},
		{"shorthand", "dev.azure.com/org/My%20Project/repo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, ok := ParseAzure(tc.identifier)
			require.True(t, ok, "should parse %s", tc.identifier)
			require.Equal(t, expected, repo)
		})
	}
}

func TestParseAzureStripsGitSuffix(t *testing.T) {
	repo, ok := ParseAzure("https://dev.azure.com/org/proj/_git/repo.git")
	require.True(t, ok)
	require.Equal(t, "repo", repo.Repository)
}

func TestParseAzureRejectsOtherHosts(t *testing.T) {
	_, ok := ParseAzure("github.com/org/repo")
	require.False(t, ok)

	_, ok = ParseAzure("gitlab.com/org/project/repo")
	require.False(t, ok)
}

func TestAzureSSHURLKeepsProjectVerbatim(t *testing.T) {
	repo := AzureRepo{Organization: "org", Project: "My Project", Repository: "repo"}
	require.Equal(t, "git@ssh.dev.azure.com:v3/org/My Project/repo", repo.SSHURL())
}

func TestAzureHTTPSURLEscapesProject(t *testing.T) {
	repo := AzureRepo{Organization: "org", Project: "My Project", Repository: "repo"}

	require.Equal(t, "https://dev.azure.com/org/My%20Project/_git/repo", repo.HTTPSURL(""))
	require.Equal(t, "https://tok123@dev.azure.com/org/My%20Project/_git/repo", repo.HTTPSURL("tok123"))
}
