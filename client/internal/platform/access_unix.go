//go:build !windows

package platform

import "golang.org/x/sys/unix"

func checkExecutable(path string) error {
	return unix.Access(path, unix.X_OK)
}
