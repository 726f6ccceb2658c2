//go:build !windows

package store

import (
	"fmt"
	"os"
	"syscall"
)

// acquireLock takes an exclusive flock on path+".lock" so that two app
// instances never interleave writes to the same store file.
func acquireLock(path string) (release func() error, err error) {
	f, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return func() error {
		unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		closeErr := f.Close()
		if unlockErr != nil {
			return fmt.Errorf("failed to release lock: %w", unlockErr)
		}
		return closeErr
	}, nil
}
