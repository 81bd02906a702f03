//go:build !unix

package exclusion

import "os"

// Without flock the lock file only marks the shared path; writes are not
// serialized.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
