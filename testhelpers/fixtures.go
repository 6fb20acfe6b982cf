package testhelpers

// NewPackageRepo creates a repository containing the given files committed on
// main, returning the repo and the commit sha. Keys are slash-separated
// relative paths; a "git-pm.yaml" entry gives the package its own manifest.
func NewPackageRepo(dir string, files map[string]string) (*GitRepo, string, error) {
	repo, err := NewGitRepo(dir)
	if err != nil {
		return nil, "", err
	}
	for path, content := range files {
		if err := repo.WriteFile(path, content); err != nil {
			return nil, "", err
		}
	}
	sha, err := repo.CommitAll("initial content")
	if err != nil {
		return nil, "", err
	}
	return repo, sha, nil
}
