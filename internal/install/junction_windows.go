//go:build windows

package install

import (
	"os/exec"
)

// makeJunction creates a directory junction, which most Windows hosts allow
// without the symlink privilege.
func makeJunction(target, linkPath string) error {
	return exec.Command("cmd", "/c", "mklink", "/J", linkPath, target).Run()
}
