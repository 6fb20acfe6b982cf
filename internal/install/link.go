package install

import (
	"os"
)

// LinkMethod describes how a directory link was materialized.
type LinkMethod string

const (
	// LinkSymlink is a plain symbolic link.
	LinkSymlink LinkMethod = "symlink"
	// LinkJunction is a Windows directory junction, usable without elevation.
	LinkJunction LinkMethod = "junction"
	// LinkNone means no link mechanism was available.
	LinkNone LinkMethod = ""
)

// linkDir creates a directory link at linkPath pointing at target, trying a
// symbolic link first and falling back to a directory junction when symlink
// creation is denied for privilege reasons. Returns the method used, or
// LinkNone with the original error when neither mechanism is available.
func linkDir(target, linkPath string) (LinkMethod, error) {
	err := os.Symlink(target, linkPath)
	if err == nil {
		return LinkSymlink, nil
	}

	if jerr := makeJunction(target, linkPath); jerr == nil {
		return LinkJunction, nil
	}

	return LinkNone, err
}
