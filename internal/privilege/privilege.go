//go:build linux

// Package privilege drops elevated privileges once GPIO access is held.
package privilege

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Drop resets the effective gid and uid to the real ids. It is a no-op when
// the process was not started setuid/setgid. Since Go 1.16 the change
// applies to every thread of the process.
func Drop() error {
	return drop(unix.Getuid(), unix.Geteuid(), unix.Getgid(), unix.Getegid())
}

func drop(uid, euid, gid, egid int) error {
	// Group first: after setuid the process may no longer change its gid.
	if gid != egid {
		if err := unix.Setgid(gid); err != nil {
			return fmt.Errorf("setgid %d: %w", gid, err)
		}
	}
	if uid != euid {
		if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf("setuid %d: %w", uid, err)
		}
	}

	if got := unix.Geteuid(); got != uid {
		return fmt.Errorf("effective uid still %d after drop to %d", got, uid)
	}
	if got := unix.Getegid(); got != gid {
		return fmt.Errorf("effective gid still %d after drop to %d", got, gid)
	}
	return nil
}
