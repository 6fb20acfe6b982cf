// Package resolver turns repository identifiers from manifests into concrete
// fetch URLs or local paths, and pins mutable branch refs to commits.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitpm.dev/gitpm/internal/config"
	"gitpm.dev/gitpm/internal/git"
)

// Env var names consulted during resolution.
const (
	// EnvTokenPrefix prefixes per-domain token variables; the domain's dots
	// become underscores (GIT_PM_TOKEN_github_com).
	EnvTokenPrefix = "GIT_PM_TOKEN_"
	// EnvAzurePAT is a personal access token for Azure DevOps.
	EnvAzurePAT = "AZURE_DEVOPS_PAT"
	// EnvAzureBearer is the CI-provided bearer token (Azure Pipelines sets it).
	EnvAzureBearer = "SYSTEM_ACCESSTOKEN"
)

// Resolved is the outcome of resolving one repository identifier: either a
// fetch URL or an absolute local path, never both.
type Resolved struct {
	// URL is the git remote to fetch from.
	URL string
	// LocalPath is set instead of URL for local-form identifiers; local
	// packages are read in place and never fetched.
	LocalPath string
	// BearerAuth is set when the URL must be fetched with a side-channel
	// Authorization header rather than credentials in the URL.
	BearerAuth string
	// BearerBase is the URL prefix the auth header applies to.
	BearerBase string
}

// IsLocal reports whether the identifier resolved to a local path.
func (r Resolved) IsLocal() bool {
	return r.LocalPath != ""
}

// Resolver resolves repository identifiers. Resolution is referentially
// transparent for a fixed config and environment: the ssh reachability probe
// is memoized per domain so repeated calls cannot flip their answer mid-run.
type Resolver struct {
	cfg         *config.Config
	projectRoot string

	getenv func(string) string
	probe  func(ctx context.Context, domain string) bool

	probeMemo map[string]bool
}

// New creates a Resolver for the given project root and config.
func New(cfg *config.Config, projectRoot string) *Resolver {
	return &Resolver{
		cfg:         cfg,
		projectRoot: projectRoot,
		getenv:      os.Getenv,
		probe:       git.ProbeSSH,
		probeMemo:   map[string]bool{},
	}
}

// WithEnv overrides environment lookup, for tests.
func (r *Resolver) WithEnv(getenv func(string) string) *Resolver {
	r.getenv = getenv
	return r
}

// WithProbe overrides the ssh reachability probe, for tests.
func (r *Resolver) WithProbe(probe func(ctx context.Context, domain string) bool) *Resolver {
	r.probe = probe
	return r
}

// Resolve turns a repository identifier into a fetch URL or local path.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Resolved, error) {
	if identifier == "" {
		return Resolved{}, fmt.Errorf("empty repository identifier")
	}

	if local, ok := r.resolveLocal(identifier); ok {
		return Resolved{LocalPath: local}, nil
	}

	if azure, ok := ParseAzure(identifier); ok {
		return r.resolveAzure(azure), nil
	}

	return r.resolveGeneric(ctx, identifier)
}

// resolveLocal normalizes the local identifier forms to an absolute path.
// Relative forms resolve against the project root, not the process cwd.
func (r *Resolver) resolveLocal(identifier string) (string, bool) {
	switch {
	case strings.HasPrefix(identifier, "file://"):
		p := strings.TrimPrefix(identifier, "file://")
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.projectRoot, p)
		}
		return filepath.Clean(p), true
	case strings.HasPrefix(identifier, "./"), strings.HasPrefix(identifier, "../"):
		return filepath.Clean(filepath.Join(r.projectRoot, identifier)), true
	case strings.HasPrefix(identifier, "~/"):
		return filepath.Clean(config.ExpandHome(identifier)), true
	case filepath.IsAbs(identifier):
		return filepath.Clean(identifier), true
	}
	return "", false
}

// resolveAzure applies the Azure DevOps auth precedence: a configured PAT
// forces https with the token embedded; a CI bearer token forces https with
// the token carried out-of-band in an auth header; otherwise the configured
// protocol preference decides.
func (r *Resolver) resolveAzure(repo AzureRepo) Resolved {
	pat := r.cfg.AzureDevOpsPAT
	if pat == "" {
		pat = r.getenv(EnvAzurePAT)
	}
	if pat != "" {
		return Resolved{URL: repo.HTTPSURL(pat)}
	}

	if bearer := r.getenv(EnvAzureBearer); bearer != "" {
		return Resolved{
			URL:        repo.HTTPSURL(""),
			BearerAuth: bearer,
			BearerBase: AzureBaseURL,
		}
	}

	if r.cfg.GitProtocol["dev.azure.com"] == "https" {
		return Resolved{URL: repo.HTTPSURL("")}
	}
	return Resolved{URL: repo.SSHURL()}
}

// resolveGeneric handles every non-Azure remote identifier of the form
// domain/path...
func (r *Resolver) resolveGeneric(ctx context.Context, identifier string) (Resolved, error) {
	slash := strings.IndexByte(identifier, '/')
	if slash <= 0 || slash == len(identifier)-1 {
		return Resolved{}, fmt.Errorf("repository identifier %q is not of the form domain/path", identifier)
	}
	domain := identifier[:slash]
	path := identifier[slash+1:]

	// A per-domain token always wins and always means https.
	envKey := EnvTokenPrefix + strings.ReplaceAll(domain, ".", "_")
	if token := r.getenv(envKey); token != "" {
		return Resolved{URL: tokenURL(domain, path, token)}, nil
	}

	if pattern, ok := r.cfg.URLPatterns[domain]; ok {
		return Resolved{URL: strings.ReplaceAll(pattern, "{path}", path)}, nil
	}

	protocol, configured := r.cfg.GitProtocol[domain]
	if !configured {
		// No preference on record: probe ssh once per domain and fall back
		// to https when the host does not answer.
		if r.probeDomain(ctx, domain) {
			protocol = "ssh"
		} else {
			protocol = "https"
		}
	}

	if protocol == "ssh" {
		return Resolved{URL: fmt.Sprintf("git@%s:%s.git", domain, path)}, nil
	}
	return Resolved{URL: fmt.Sprintf("https://%s/%s.git", domain, path)}, nil
}

func (r *Resolver) probeDomain(ctx context.Context, domain string) bool {
	if ok, seen := r.probeMemo[domain]; seen {
		return ok
	}
	ok := r.probe(ctx, domain)
	r.probeMemo[domain] = ok
	return ok
}

// tokenURL renders an https remote with an embedded token. The user part
// varies by host family.
func tokenURL(domain, path, token string) string {
	switch {
	case strings.Contains(domain, "github.com"):
		return fmt.Sprintf("https://%s@github.com/%s.git", token, path)
	case strings.Contains(domain, "dev.azure.com"), strings.Contains(domain, "visualstudio.com"):
		return fmt.Sprintf("https://%s@%s/%s.git", token, domain, path)
	default:
		return fmt.Sprintf("https://oauth2:%s@%s/%s.git", token, domain, path)
	}
}
