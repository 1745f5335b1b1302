package flow

import (
	"fmt"
	"os"
)

// removeFile deletes path, tolerating it already being absent (a flow
// whose log was never written to still has a valid catalog row).
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing %s: %v", ErrIoFailure, path, err)
	}
	return nil
}
