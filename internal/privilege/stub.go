//go:build !linux

package privilege

// Drop is a no-op on non-Linux platforms, where GPIO access is unsupported.
func Drop() error {
	return nil
}
