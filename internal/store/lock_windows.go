//go:build windows

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// acquireLock takes an exclusive LockFileEx lock on path+".lock" so that two
// app instances never interleave writes to the same store file.
func acquireLock(path string) (release func() error, err error) {
	f, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	handle := windows.Handle(f.Fd())
	if err := windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &windows.Overlapped{}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return func() error {
		unlockErr := windows.UnlockFileEx(handle, 0, 1, 0, &windows.Overlapped{})
		closeErr := f.Close()
		if unlockErr != nil {
			return fmt.Errorf("failed to release lock: %w", unlockErr)
		}
		return closeErr
	}, nil
}
