//go:build !unix

package conversation

// lockFile is a no-op where advisory file locks are unavailable; only the
// in-process mutex applies.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
