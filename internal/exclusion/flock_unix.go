//go:build unix

package exclusion

import (
	"os"

	"golang.org/x/sys/unix"
)

func lockFile(f *os.File) error {
	return flock(f, unix.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return flock(f, unix.LOCK_UN)
}

func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
