//go:build !unix

package tableengine

// lockFile is a no-op where flock is unavailable.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
