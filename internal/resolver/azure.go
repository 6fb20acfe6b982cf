package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// AzureRepo is the canonical identity of an Azure DevOps repository.
type AzureRepo struct {
	Organization string
	Project      string
	Repository   string
}

// AzureBaseURL is the https endpoint bearer-token auth headers attach to.
const AzureBaseURL = "https://dev.azure.com/"

// The accepted Azure DevOps identifier shapes. Anything that matches none of
// these is not treated as Azure DevOps at all.
var azurePatterns = []*regexp.Regexp{
	// git@ssh.dev.azure.com:v3/org/project/repo
	regexp.MustCompile(`^git@ssh\.dev\.azure\.com:v3/([^/]+)/([^/]+)/([^/]+?)(?:\.git)?$`),
	// dev.azure.com:v3/org/project/repo (malformed hybrid seen in the wild)
	regexp.MustCompile(`^dev\.azure\.com:v3/([^/]+)/([^/]+)/([^/]+?)(?:\.git)?$`),
	// https://dev.azure.com/org/project/_git/repo, optionally with user@
	regexp.MustCompile(`^https://(?:[^@/]+@)?dev\.azure\.com/([^/]+)/([^/]+)/_git/([^/]+?)(?:\.git)?$`),
	// dev.azure.com/org/project/_git/repo
	regexp.MustCompile(`^dev\.azure\.com/([^/]+)/([^/]+)/_git/([^/]+?)(?:\.git)?$`),
	// dev.azure.com/org/project/repo
	regexp.MustCompile(`^dev\.azure\.com/([^/]+)/([^/]+)/([^/]+?)(?:\.git)?$`),
}

// ParseAzure parses an Azure DevOps repository identifier into its
// (organization, project, repository) triple. URL-encoded project names are
// decoded. Returns false when the identifier is not an Azure DevOps shape.
func ParseAzure(identifier string) (AzureRepo, bool) {
	for _, re := range azurePatterns {
		m := re.FindStringSubmatch(identifier)
		if m == nil {
			continue
		}
		project, err := url.PathUnescape(m[2])
		if err != nil {
			project = m[2]
		}
		return AzureRepo{
			Organization: m[1],
			Project:      project,
			Repository:   m[3],
		}, true
	}
	return AzureRepo{}, false
}

// SSHURL renders the repository's SSH remote. Azure's v3 SSH syntax takes the
// project name verbatim, spaces included.
func (a AzureRepo) SSHURL() string {
	return fmt.Sprintf("git@ssh.dev.azure.com:v3/%s/%s/%s", a.Organization, a.Project, a.Repository)
}

// HTTPSURL renders the repository's https remote, with an optional personal
// access token embedded as the user part. Azure https remotes take no .git
// suffix.
func (a AzureRepo) HTTPSURL(token string) string {
	user := ""
	if token != "" {
		user = token + "@"
	}
	return fmt.Sprintf("https://%sdev.azure.com/%s/%s/_git/%s",
		user, a.Organization, escapeSegment(a.Project), a.Repository)
}

// escapeSegment percent-encodes one path segment, keeping it readable for
// the common case of spaces in project names.
func escapeSegment(s string) string {
	escaped := url.PathEscape(s)
	// PathEscape leaves some sub-delims alone, which Azure accepts.
	return strings.ReplaceAll(escaped, "+", "%2B")
}
