//go:build !windows

package install

import (
	"errors"
)

// makeJunction is Windows-only; elsewhere the symlink attempt is the only
// link mechanism.
func makeJunction(target, linkPath string) error {
	return errors.New("directory junctions are not supported on this platform")
}
