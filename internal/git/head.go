package git

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// ReadHeadCommit reads the commit HEAD points at without spawning a
// subprocess. Used by verify and list, which inspect many checkouts that are
// known to be plain on-disk repositories.
func ReadHeadCommit(dir string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD of %s: %w", dir, err)
	}
	return head.Hash().String(), nil
}
